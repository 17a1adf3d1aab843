package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hupe1980/mcckpt/internal/inspect"
	"github.com/hupe1980/mcckpt/persistence"
)

// ErrCheckpointsDiffer is returned by diff --exit-code when the inputs differ.
var ErrCheckpointsDiffer = errors.New("checkpoints differ")

func newDiffCommand() *cobra.Command {
	var (
		df        decodeFlags
		output    string
		tolerance float64
		exitCode  bool
	)

	cmd := &cobra.Command{
		Use:   "diff <a> <b>",
		Short: "Compare two checkpoints",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := df.options()
			if err != nil {
				return err
			}
			a, _, err := persistence.ReadFile(args[0], opts)
			if err != nil {
				return err
			}
			b, _, err := persistence.ReadFile(args[1], opts)
			if err != nil {
				return err
			}

			d := inspect.Compare(a, b, tolerance)
			if err := d.Write(cmd.OutOrStdout(), output); err != nil {
				return err
			}
			if exitCode && !d.Identical() {
				return ErrCheckpointsDiffer
			}
			return nil
		},
	}

	df.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", inspect.FormatTable, "output format (table|yaml)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "coordinate differences up to this value are ignored")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "fail when the checkpoints differ")
	return cmd
}
