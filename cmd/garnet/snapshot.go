package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chazu/garnet/script"
	"github.com/chazu/garnet/store"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage stored value snapshots",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save NAME EXPR",
	Short: "Evaluate EXPR and store the result as NAME",
	Example: `  garnet snapshot save defaults '{retries: 3, hosts: ["a", "b"]}'
  garnet snapshot save empty 'Hash.new(0)'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		rt := newVM()
		v, err := script.New(rt).Eval(args[1])
		if err != nil {
			return err
		}
		id, err := st.Save(rt, args[0], v)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", nameColor.Sprint(args[0]), id)
		return nil
	},
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load NAME",
	Short: "Print a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		rt := newVM()
		v, err := st.Load(rt, args[0])
		if err != nil {
			return err
		}
		resultColor.Fprintln(cmd.OutOrStdout(), rt.Inspect(v))
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.List()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFORMAT\tSIZE\tCREATED\tID")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				nameColor.Sprint(e.Name), e.Format, e.Size, e.Created.Format("2006-01-02 15:04:05"), e.ID)
		}
		return w.Flush()
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		return st.Delete(args[0])
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotLoadCmd, snapshotListCmd, snapshotDeleteCmd)
}

// saveBinding stores the variable named by a VAR=SNAPSHOT binding.
func saveBinding(st *store.Store, in *script.Interpreter, binding string) error {
	name, snap, err := splitBinding(binding)
	if err != nil {
		return err
	}
	v, ok := in.Lookup(name)
	if !ok {
		return fmt.Errorf("--save: no variable %q", name)
	}
	_, err = st.Save(in.VM(), snap, v)
	return err
}
