// Garnet CLI - runs hash scripts against the garnet runtime and manages
// stored snapshots.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"github.com/chazu/garnet/config"
	"github.com/chazu/garnet/store"
	"github.com/chazu/garnet/vm"
)

var (
	configDir string
	verbosity int
	logPath   string
	colorMode string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "garnet",
	Short: "Garnet object runtime",
	Long:  `Garnet runs hash scripts against an ordered-hash object runtime and stores value snapshots.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configDir != "" {
			cfg, err = config.Load(configDir)
		} else {
			cfg, err = config.FindAndLoad(".")
		}
		if err != nil {
			return err
		}

		v := cfg.Log.Verbosity + verbosity
		path := cfg.Log.Path
		if logPath != "" {
			path = logPath
		}
		if path != "" {
			commonlog.Configure(v, &path)
		} else {
			commonlog.Configure(v, nil)
		}

		switch colorMode {
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory containing garnet.toml (default: search upward from .)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "colorize output (auto|on|off)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	resultColor = color.New(color.FgCyan)
	promptColor = color.New(color.FgGreen, color.Bold)
	nameColor   = color.New(color.FgYellow)
)

// newVM builds a VM from the loaded configuration.
func newVM() *vm.VM {
	return vm.NewVM(cfg.VMOptions()...)
}

// openStore opens the snapshot store named by the configuration.
func openStore() (*store.Store, error) {
	format, err := cfg.StoreFormat()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.StorePath(), format)
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// splitBinding parses VAR=SNAPSHOT.
func splitBinding(s string) (string, string, error) {
	name, snap, ok := strings.Cut(s, "=")
	if !ok || name == "" || snap == "" {
		return "", "", fmt.Errorf("expected VAR=SNAPSHOT, got %q", s)
	}
	return name, snap, nil
}
