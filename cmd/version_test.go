package cmd

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"github.com/killallgit/sttclient/api/types"
)

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		checkOutput func(string) bool
	}{
		{
			name:    "version command shows build table",
			args:    []string{"version"},
			wantErr: false,
			checkOutput: func(output string) bool {
				return strings.Contains(strings.ToLower(output), "sttclient") &&
					strings.Contains(output, "v"+Version) &&
					strings.Contains(output, GitCommit) &&
					strings.Contains(output, runtime.GOOS+"/"+runtime.GOARCH)
			},
		},
		{
			name:    "version command with --short flag",
			args:    []string{"version", "--short"},
			wantErr: false,
			checkOutput: func(output string) bool {
				return output == "v"+Version+"\n"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.checkOutput != nil && !tt.checkOutput(output) {
				t.Errorf("Output check failed: %q", output)
			}
		})
	}
}

func TestVersionCommand_JSONMatchesServerBuild(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	Version, GitCommit = "1.4.0", "abc1234"
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })

	output, err := execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got types.BuildInfo
	if err := json.Unmarshal([]byte(output), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", output, err)
	}
	if got != buildInfo() {
		t.Errorf("got %+v, want %+v", got, buildInfo())
	}
	if got.Version != "1.4.0" || got.Commit != "abc1234" {
		t.Errorf("ldflags values not reported: %+v", got)
	}
}

func TestVersionCommandFlags(t *testing.T) {
	cmd := NewRootCmd()
	versionCmd, _, err := cmd.Find([]string{"version"})
	if err != nil {
		t.Fatalf("Failed to find version command: %v", err)
	}

	for _, name := range []string{"short", "json"} {
		if versionCmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected %s flag to be registered", name)
		}
	}
	if versionCmd.Annotations[skipConfig] != "true" {
		t.Error("Expected version to run without configuration")
	}
}
