package version

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Name is the program name reported by String and the CLI.
const Name = "yast-vpn"

// Build-time metadata injected via -ldflags.
var (
	AppVersion = "dev"
	GitCommit  = "unknown"
	BuildTime  = "unknown"
)

// Info describes the running binary build metadata.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// Current returns the build metadata for this binary, with defaults filled in.
func Current() Info {
	return Info{
		Name:      Name,
		Version:   orDefault(AppVersion, "dev"),
		Commit:    orDefault(GitCommit, "unknown"),
		BuildTime: orDefault(BuildTime, "unknown"),
	}
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)",
		orDefault(i.Name, Name),
		orDefault(i.Version, "dev"),
		orDefault(i.Commit, "unknown"),
		orDefault(i.BuildTime, "unknown"))
}

// JSON returns the metadata encoded as JSON.
func (i Info) JSON() ([]byte, error) {
	return json.Marshal(i)
}
