package commands

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/mcckpt/internal/inspect"
	"github.com/hupe1980/mcckpt/persistence"
)

func newInspectCommand() *cobra.Command {
	var (
		df     decodeFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "inspect <checkpoint>",
		Short: "Print the header, counts and section layout of a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := df.options()
			if err != nil {
				return err
			}
			snap, layout, err := persistence.ReadFile(args[0], opts)
			if err != nil {
				return err
			}
			return inspect.Summarize(args[0], snap, layout).Write(cmd.OutOrStdout(), output)
		},
	}

	df.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", inspect.FormatTable, "output format (table|yaml)")
	return cmd
}
