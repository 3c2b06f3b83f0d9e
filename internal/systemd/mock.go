package systemd

// MockManager implements ServiceManager for tests. Control calls are recorded as
// "<action> <unit>"; queries are not recorded and default to false.
type MockManager struct {
	Errors        map[string]error
	IsEnabledFunc func(unitName string) (bool, error)
	IsActiveFunc  func(unitName string) (bool, error)

	Calls []string
}

func (m *MockManager) control(action, unitName string) error {
	call := action + " " + unitName
	m.Calls = append(m.Calls, call)
	return m.Errors[call]
}

func (m *MockManager) Stop(unitName string) error    { return m.control("stop", unitName) }
func (m *MockManager) Restart(unitName string) error { return m.control("restart", unitName) }
func (m *MockManager) Enable(unitName string) error  { return m.control("enable", unitName) }
func (m *MockManager) Disable(unitName string) error { return m.control("disable", unitName) }

func (m *MockManager) IsEnabled(unitName string) (bool, error) {
	if m.IsEnabledFunc != nil {
		return m.IsEnabledFunc(unitName)
	}
	return false, nil
}

func (m *MockManager) IsActive(unitName string) (bool, error) {
	if m.IsActiveFunc != nil {
		return m.IsActiveFunc(unitName)
	}
	return false, nil
}
