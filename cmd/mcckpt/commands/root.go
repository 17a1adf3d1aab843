// Package commands implements the mcckpt subcommands.
package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/mcckpt/codec"
	"github.com/hupe1980/mcckpt/config"
	"github.com/hupe1980/mcckpt/persistence"
)

// Build metadata, set with -ldflags "-X".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

type globalFlags struct {
	configPath string
	noColor    bool
}

// NewRootCommand builds the mcckpt command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "mcckpt",
		Short: "Inspect, verify and produce Monte Carlo simulation checkpoints",
		Long: `mcckpt works with binary restart checkpoints of multi-box Monte Carlo runs.

Commands:
  inspect   Print the header, counts and section layout of a checkpoint
  verify    Decode checkpoints and check their integrity
  convert   Rewrite a checkpoint in another format or byte order
  diff      Compare two checkpoints
  synth     Write a synthetic checkpoint through the configured store
  fetch     Download the latest checkpoint from the configured store`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if g.noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default ./mcckpt.yaml)")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newInspectCommand(),
		newVerifyCommand(),
		newConvertCommand(),
		newDiffCommand(),
		newSynthCommand(g),
		newFetchCommand(g),
		newVersionCommand(),
	)
	return root
}

// decodeFlags are shared by commands that read local checkpoint files.
type decodeFlags struct {
	byteOrder    string
	strict       bool
	skipChecksum bool
}

func (f *decodeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.byteOrder, "byte-order", "little", "byte order of legacy files (little|big)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "reject non-zero padding in uint32 fields")
	cmd.Flags().BoolVar(&f.skipChecksum, "skip-checksum", false, "do not verify the v1 CRC32 trailer")
}

func (f *decodeFlags) options() (persistence.DecodeOptions, error) {
	order, ok := codec.ByteOrderByName(f.byteOrder)
	if !ok {
		return persistence.DecodeOptions{}, config.ErrInvalidByteOrder
	}
	return persistence.DecodeOptions{
		ByteOrder:    order,
		Strict:       f.strict,
		SkipChecksum: f.skipChecksum,
	}, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcckpt %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}
