package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/garnet/script"
	"github.com/chazu/garnet/vm"
)

var (
	runLoads []string
	runSaves []string
	runEcho  bool
)

func init() {
	runCmd.Flags().StringArrayVar(&runLoads, "load", nil, "bind VAR=SNAPSHOT before running (repeatable)")
	runCmd.Flags().StringArrayVar(&runSaves, "save", nil, "store VAR as SNAPSHOT after running (repeatable)")
	runCmd.Flags().BoolVarP(&runEcho, "echo", "e", false, "print the value of every statement")
}

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a hash script, or start an interactive session",
	Long: `Run evaluates a script file. With no file it reads standard input; on a
terminal it starts an interactive session that evaluates one line at a time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newVM()
		in := script.New(rt,
			script.WithOutput(cmd.OutOrStdout()),
			script.WithCollectThreshold(cfg.Heap.CollectThreshold))

		if len(runLoads) > 0 || len(runSaves) > 0 {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			for _, b := range runLoads {
				name, snap, err := splitBinding(b)
				if err != nil {
					return err
				}
				v, err := st.Load(rt, snap)
				if err != nil {
					return err
				}
				in.Set(name, v)
			}
			defer func() {
				for _, b := range runSaves {
					if err := saveBinding(st, in, b); err != nil {
						errorColor.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
					}
				}
			}()
		}

		switch {
		case len(args) == 1:
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return runScript(cmd, in, f)
		case isTerminal(os.Stdin):
			return repl(cmd, in, os.Stdin)
		default:
			return runScript(cmd, in, cmd.InOrStdin())
		}
	},
}

func runScript(cmd *cobra.Command, in *script.Interpreter, r io.Reader) error {
	if !runEcho {
		return in.Run(r)
	}
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	_, err = in.EvalEach(string(src), func(v vm.Value) {
		resultColor.Fprintln(cmd.OutOrStdout(), in.FormatResult(v))
	})
	return err
}

// repl evaluates one line at a time, printing each result. Errors are
// reported and the session continues.
func repl(cmd *cobra.Command, in *script.Interpreter, r io.Reader) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(r)
	for {
		promptColor.Fprint(out, "garnet> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		v, err := in.Eval(line)
		if err != nil {
			errorColor.Fprintln(out, err)
			continue
		}
		resultColor.Fprintln(out, in.FormatResult(v))
	}
}
