package commands

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/mcckpt"
	"github.com/hupe1980/mcckpt/codec"
	"github.com/hupe1980/mcckpt/config"
	"github.com/hupe1980/mcckpt/internal/fs"
	"github.com/hupe1980/mcckpt/persistence"
	"github.com/hupe1980/mcckpt/resource"
)

func newFetchCommand(g *globalFlags) *cobra.Command {
	var noVerify bool

	cmd := &cobra.Command{
		Use:   "fetch <out>",
		Short: "Download the latest checkpoint from the configured store",
		Long: `Resolve the latest committed checkpoint of the configured store and copy
it to a local file, honoring io.limit. The file is replaced atomically and
decoded afterwards unless --no-verify is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			rc, err := cfg.NewResourceController()
			if err != nil {
				return err
			}
			cp, err := cfg.NewCheckpointer(ctx, mcckpt.WithResourceController(rc))
			if err != nil {
				return err
			}

			_, name, err := cp.Latest(ctx)
			if err != nil {
				return err
			}
			blob, err := cp.Store().Open(ctx, name)
			if err != nil {
				return fmt.Errorf("open %s: %w", name, err)
			}
			defer func() { _ = blob.Close() }()

			rd, err := blob.ReadRange(ctx, 0, blob.Size())
			if err != nil {
				return err
			}
			defer func() { _ = rd.Close() }()

			var n int64
			err = persistence.SaveToFile(fs.LocalFS{}, args[0], func(f *fs.AtomicFile) error {
				n, err = io.Copy(f, resource.NewRateLimitedReader(ctx, rd, rc))
				return err
			})
			if err != nil {
				return err
			}

			if !noVerify {
				order, _ := codec.ByteOrderByName(cfg.Checkpoint.ByteOrder)
				if _, _, err := persistence.ReadFile(args[0], persistence.DecodeOptions{ByteOrder: order}); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "fetched %s to %s (%s)\n", name, args[0], humanize.IBytes(uint64(n)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip decoding the downloaded file")
	return cmd
}
