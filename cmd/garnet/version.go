package main

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chazu/garnet/vm/snapshot"
)

// Version information. These variables can be overridden at build time via
// -ldflags.
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	BuildDate = ""
)

var versionColor = color.New(color.FgYellow, color.Bold)

type versionPayload struct {
	Tool           string `json:"tool"`
	Version        string `json:"version"`
	GoVersion      string `json:"go_version"`
	SnapshotSchema uint16 `json:"snapshot_schema"`
	GitCommit      string `json:"git_commit,omitempty"`
	BuildDate      string `json:"build_date,omitempty"`
}

var versionFormat string

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := versionPayload{
			Tool:           "garnet",
			Version:        Version,
			SnapshotSchema: snapshot.SchemaVersion,
			GitCommit:      GitCommit,
			BuildDate:      BuildDate,
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			payload.GoVersion = info.GoVersion
		}

		out := cmd.OutOrStdout()
		switch strings.ToLower(versionFormat) {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		case "pretty":
			fmt.Fprintf(out, "garnet %s\n", versionColor.Sprint(payload.Version))
			fmt.Fprintf(out, "  go:       %s\n", payload.GoVersion)
			fmt.Fprintf(out, "  snapshot: schema %d\n", payload.SnapshotSchema)
			if payload.GitCommit != "" {
				fmt.Fprintf(out, "  commit:   %s\n", payload.GitCommit)
			}
			if payload.BuildDate != "" {
				fmt.Fprintf(out, "  built:    %s\n", payload.BuildDate)
			}
			return nil
		}
		return fmt.Errorf("unknown format %q (want pretty or json)", versionFormat)
	},
}
