package version

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCurrentUsesBuildVars(t *testing.T) {
	origVersion, origCommit, origBuild := AppVersion, GitCommit, BuildTime
	t.Cleanup(func() {
		AppVersion, GitCommit, BuildTime = origVersion, origCommit, origBuild
	})

	AppVersion = " v1.2.3 "
	GitCommit = "abc1234"
	BuildTime = ""

	info := Current()
	if info.Name != Name || info.Version != "v1.2.3" || info.Commit != "abc1234" || info.BuildTime != "unknown" {
		t.Fatalf("unexpected metadata: %+v", info)
	}
}

func TestInfoStringFillsDefaults(t *testing.T) {
	text := Info{Version: "v2.0.0"}.String()
	if text != "yast-vpn v2.0.0 (commit unknown, built unknown)" {
		t.Fatalf("unexpected version string %q", text)
	}
}

func TestInfoJSONFieldNames(t *testing.T) {
	data, err := Info{Name: Name, Version: "v1", Commit: "c", BuildTime: "b"}.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"name", "version", "commit", "buildTime"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing key %q in %s", key, strings.TrimSpace(string(data)))
		}
	}
}
