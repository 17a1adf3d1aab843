// Package inspect renders checkpoint summaries and differences for the
// mcckpt command line tool.
package inspect

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/mcckpt/codec"
	"github.com/hupe1980/mcckpt/model"
	"github.com/hupe1980/mcckpt/persistence"
)

// Output formats.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
)

// SectionSummary describes one section of a checkpoint file.
type SectionSummary struct {
	Name   string `yaml:"name"`
	Offset int64  `yaml:"offset"`
	Size   int64  `yaml:"size"`
}

// Summary is a human-oriented description of a checkpoint.
type Summary struct {
	Path              string           `yaml:"path"`
	Format            string           `yaml:"format"`
	ByteOrder         string           `yaml:"byte_order"`
	Size              int64            `yaml:"size"`
	Checksum          string           `yaml:"checksum,omitempty"`
	Step              uint64           `yaml:"step"`
	ResumeStep        uint64           `yaml:"resume_step"`
	Boxes             int              `yaml:"boxes"`
	Atoms             int              `yaml:"atoms"`
	Molecules         int              `yaml:"molecules"`
	Kinds             uint32           `yaml:"kinds"`
	FixedMolecules    uint64           `yaml:"fixed_molecules"`
	MoveKinds         int              `yaml:"move_kinds"`
	SubMoves          int              `yaml:"sub_moves"`
	RNGSeed           uint32           `yaml:"rng_seed"`
	RNGLeft           uint32           `yaml:"rng_left"`
	ParallelTempering bool             `yaml:"parallel_tempering"`
	Sections          []SectionSummary `yaml:"sections"`
}

// Summarize builds a Summary from a decoded checkpoint.
func Summarize(path string, snap *model.Snapshot, layout *persistence.Layout) *Summary {
	s := &Summary{
		Path:              path,
		Format:            layout.Format.String(),
		ByteOrder:         codec.ByteOrderName(layout.ByteOrder),
		Size:              layout.Size,
		Step:              snap.Step,
		ResumeStep:        snap.ResumeStep(),
		Boxes:             len(snap.Boxes),
		Atoms:             len(snap.Coordinates),
		Molecules:         len(snap.Lookup.Molecules),
		Kinds:             snap.Lookup.NumKinds,
		FixedMolecules:    FixedSet(snap.Lookup).GetCardinality(),
		RNGSeed:           snap.RNG.Seed,
		RNGLeft:           snap.RNG.Left,
		ParallelTempering: snap.ParallelTemperingEnabled(),
	}
	if layout.Format == persistence.FormatV1 {
		s.Checksum = fmt.Sprintf("%08x", layout.Checksum)
	}
	if len(snap.Moves.Scale) > 0 {
		s.MoveKinds = len(snap.Moves.Scale[0])
	}
	if len(snap.Moves.MPTries) > 0 {
		s.SubMoves = len(snap.Moves.MPTries[0])
	}
	for _, sec := range layout.Sections {
		s.Sections = append(s.Sections, SectionSummary{Name: sec.Name, Offset: sec.Offset, Size: sec.Size})
	}
	return s
}

// Write renders s in the given output format.
func (s *Summary) Write(w io.Writer, format string) error {
	switch format {
	case FormatYAML:
		return writeYAML(w, s)
	case FormatTable, "":
		return s.writeTable(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutput, format)
	}
}

func (s *Summary) writeTable(w io.Writer) error {
	info := newTable()
	info.AppendRows([]table.Row{
		{"path", s.Path},
		{"format", s.Format},
		{"byte order", s.ByteOrder},
		{"size", fmt.Sprintf("%s (%d bytes)", humanize.IBytes(uint64(s.Size)), s.Size)},
	})
	if s.Checksum != "" {
		info.AppendRow(table.Row{"crc32", s.Checksum})
	}
	info.AppendRows([]table.Row{
		{"step", s.Step},
		{"resume step", s.ResumeStep},
		{"boxes", s.Boxes},
		{"atoms", humanize.Comma(int64(s.Atoms))},
		{"molecules", humanize.Comma(int64(s.Molecules))},
		{"kinds", s.Kinds},
		{"fixed molecules", s.FixedMolecules},
		{"move kinds", s.MoveKinds},
		{"sub-moves", s.SubMoves},
		{"rng seed", s.RNGSeed},
		{"rng words left", s.RNGLeft},
		{"parallel tempering", s.ParallelTempering},
	})

	sections := newTable()
	sections.AppendHeader(table.Row{"section", "offset", "size"})
	for _, sec := range s.Sections {
		sections.AppendRow(table.Row{sec.Name, sec.Offset, humanize.IBytes(uint64(sec.Size))})
	}
	sections.AppendFooter(table.Row{"", "total", humanize.IBytes(uint64(s.Size))})

	_, err := fmt.Fprintf(w, "%s\n\n%s\n", info.Render(), sections.Render())
	return err
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	return tbl
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
