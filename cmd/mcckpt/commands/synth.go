package commands

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/mcckpt/config"
	"github.com/hupe1980/mcckpt/testutil"
)

// ErrCheckpointDisabled is returned when the configuration disables output.
var ErrCheckpointDisabled = errors.New("checkpoint output is disabled by configuration")

func newSynthCommand(g *globalFlags) *cobra.Command {
	var (
		sc        testutil.SnapshotConfig
		seed      int64
		directory string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a synthetic checkpoint through the configured store",
		Long: `Generate a random, shape-consistent snapshot and write it with the
configured Checkpointer. Useful for exercising a store backend or for
producing fixtures.

Examples:
  mcckpt synth --atoms 10000 --boxes 2 --directory ./out
  MCCKPT_STORE_BACKEND=minio mcckpt synth -c mcckpt.yaml --pt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			if directory != "" {
				cfg.Checkpoint.Directory = directory
			}

			cp, err := cfg.NewCheckpointer(cmd.Context())
			if err != nil {
				return err
			}
			if !cp.Enabled() {
				return ErrCheckpointDisabled
			}

			snap := testutil.NewRNG(seed).Snapshot(sc)
			layout, err := cp.Write(cmd.Context(), snap)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote step %d to %s (%s, %s)\n",
				snap.Step, cp.Name(snap.Step), layout.Format, humanize.IBytes(uint64(layout.Size)))
			return nil
		},
	}

	cmd.Flags().Uint64Var(&sc.Step, "step", 999, "last completed step")
	cmd.Flags().IntVar(&sc.Boxes, "boxes", 1, "number of boxes")
	cmd.Flags().IntVar(&sc.Atoms, "atoms", 1000, "number of atoms")
	cmd.Flags().IntVar(&sc.Molecules, "molecules", 0, "number of molecules (default: atoms)")
	cmd.Flags().IntVar(&sc.Kinds, "kinds", 1, "number of molecule kinds")
	cmd.Flags().IntVar(&sc.MoveKinds, "move-kinds", 8, "number of move kinds")
	cmd.Flags().BoolVar(&sc.ParallelTempering, "pt", false, "include a parallel tempering generator")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().StringVarP(&directory, "directory", "d", "", "output directory for the local store")
	return cmd
}
