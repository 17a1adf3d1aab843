package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/mcckpt/codec"
	"github.com/hupe1980/mcckpt/config"
	"github.com/hupe1980/mcckpt/internal/fs"
	"github.com/hupe1980/mcckpt/persistence"
)

func newConvertCommand() *cobra.Command {
	var (
		df          decodeFlags
		format      string
		outputOrder string
		noPTFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Rewrite a checkpoint in another format or byte order",
		Long: `Decode a checkpoint and write it again with the requested framing.

Examples:
  mcckpt convert --format legacy checkpoint.dat restart.dat
  mcckpt convert --format v1 --out-byte-order big restart.dat checkpoint.dat`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := df.options()
			if err != nil {
				return err
			}
			f, err := persistence.ParseFormat(format)
			if err != nil {
				return err
			}
			order := opts.ByteOrder
			if outputOrder != "" {
				var ok bool
				if order, ok = codec.ByteOrderByName(outputOrder); !ok {
					return fmt.Errorf("%w: %q", config.ErrInvalidByteOrder, outputOrder)
				}
			}

			snap, _, err := persistence.ReadFile(args[0], opts)
			if err != nil {
				return err
			}

			layout, err := persistence.WriteFile(fs.LocalFS{}, args[1], snap, persistence.WriteOptions{
				Format:                    f,
				ByteOrder:                 order,
				OmitParallelTemperingFlag: noPTFlag,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d bytes)\n", args[1], layout.Format, layout.Size)
			return nil
		},
	}

	df.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "v1", "output format (v1|legacy)")
	cmd.Flags().StringVar(&outputOrder, "out-byte-order", "", "output byte order (default: same as input)")
	cmd.Flags().BoolVar(&noPTFlag, "no-pt-flag", false, "omit the parallel tempering flag byte (legacy only)")
	return cmd
}
