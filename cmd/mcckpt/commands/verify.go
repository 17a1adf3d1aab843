package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/mcckpt/persistence"
)

// ErrVerifyFailed is returned when at least one checkpoint fails to decode.
var ErrVerifyFailed = errors.New("checkpoint verification failed")

// ErrInvalidJobs is returned when --jobs is less than one.
var ErrInvalidJobs = errors.New("--jobs must be at least 1")

type verifyResult struct {
	path   string
	layout *persistence.Layout
	step   uint64
	err    error
}

func newVerifyCommand() *cobra.Command {
	var (
		df   decodeFlags
		jobs int
	)

	cmd := &cobra.Command{
		Use:   "verify <checkpoint>...",
		Short: "Decode checkpoints and check their integrity",
		Long: `Decode every given checkpoint completely, checking the v1 header and
CRC32 trailer and the consistency of all size fields.

Examples:
  mcckpt verify out/checkpoint.dat
  mcckpt verify --strict temp_*/checkpoint.dat`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobs < 1 {
				return fmt.Errorf("%w: got %d", ErrInvalidJobs, jobs)
			}
			opts, err := df.options()
			if err != nil {
				return err
			}

			results := make([]verifyResult, len(args))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(jobs)
			for i, path := range args {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					snap, layout, err := persistence.ReadFile(path, opts)
					results[i] = verifyResult{path: path, layout: layout, err: err}
					if snap != nil {
						results[i].step = snap.Step
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			return reportVerify(cmd, results)
		},
	}

	df.register(cmd)
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.GOMAXPROCS(0), "number of files verified concurrently")
	return cmd
}

func reportVerify(cmd *cobra.Command, results []verifyResult) error {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	out := cmd.OutOrStdout()

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			bad.Fprintf(out, "FAIL %s: %v\n", r.path, r.err)
			continue
		}
		ok.Fprintf(out, "OK   %s", r.path)
		fmt.Fprintf(out, " (%s, %s, step %d)\n", r.layout.Format, humanize.IBytes(uint64(r.layout.Size)), r.step)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrVerifyFailed, failed, len(results))
	}
	return nil
}
