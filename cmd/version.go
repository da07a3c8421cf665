package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/killallgit/sttclient/api/types"
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/killallgit/sttclient/cmd.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// buildInfo is shared by the version command and the control API's /version
func buildInfo() types.BuildInfo {
	return types.BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuiltAt:   BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Display the build of this sttclient binary.

The same information is served by a running control API at /version,
so --json output can be compared against a server directly.`,
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "print just the version number")
	versionCmd.Flags().Bool("json", false, "print the build as JSON")
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	build := buildInfo()

	if short, _ := cmd.Flags().GetBool("short"); short {
		fmt.Fprintf(out, "v%s\n", build.Version)
		return nil
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(build, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode build info: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, renderTable(
		[]string{"sttclient", ""},
		[][]string{
			{"version", "v" + build.Version},
			{"commit", build.Commit},
			{"built", build.BuiltAt},
			{"go", build.GoVersion},
			{"platform", build.Platform},
		},
		nil,
	))
	return nil
}
