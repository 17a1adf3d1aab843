package inspect

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hupe1980/mcckpt/model"
)

// ErrUnknownOutput is returned for an unsupported output format.
var ErrUnknownOutput = errors.New("unknown output format")

// maxListed bounds the atom indices printed by the table renderer.
const maxListed = 16

// FixedSet returns the indices of immobilized molecules.
func FixedSet(l model.MoleculeLookup) *roaring.Bitmap {
	bm := roaring.New()
	for i, f := range l.Fixed {
		if f != 0 {
			bm.Add(uint32(i))
		}
	}
	return bm
}

// Diff is the difference between two checkpoints of the same system.
type Diff struct {
	StepA uint64 `yaml:"step_a"`
	StepB uint64 `yaml:"step_b"`

	// AtomCountA and AtomCountB differ when the systems are unrelated;
	// coordinates are then compared over the common prefix.
	AtomCountA int `yaml:"atoms_a"`
	AtomCountB int `yaml:"atoms_b"`

	ChangedAtoms    *roaring.Bitmap `yaml:"-"`
	ChangedCount    uint64          `yaml:"changed_atoms"`
	MaxDisplacement float64         `yaml:"max_displacement"`

	ChangedBoxes []int `yaml:"changed_boxes,omitempty"`

	FixedAdded   []uint32 `yaml:"fixed_added,omitempty"`
	FixedRemoved []uint32 `yaml:"fixed_removed,omitempty"`

	RNGEqual    bool `yaml:"rng_equal"`
	PTEqual     bool `yaml:"pt_equal"`
	LookupEqual bool `yaml:"lookup_equal"`
	MovesEqual  bool `yaml:"moves_equal"`
}

// Compare reports how b differs from a. Coordinates closer than tol along
// every axis count as unchanged.
func Compare(a, b *model.Snapshot, tol float64) *Diff {
	d := &Diff{
		StepA:        a.Step,
		StepB:        b.Step,
		AtomCountA:   len(a.Coordinates),
		AtomCountB:   len(b.Coordinates),
		ChangedAtoms: roaring.New(),
		RNGEqual:     a.RNG == b.RNG,
		PTEqual:      ptEqual(a.ParallelTempering, b.ParallelTempering),
		LookupEqual:  lookupEqual(a.Lookup, b.Lookup),
		MovesEqual:   movesEqual(a.Moves, b.Moves),
	}

	n := min(len(a.Coordinates), len(b.Coordinates))
	for i := 0; i < n; i++ {
		p, q := a.Coordinates[i], b.Coordinates[i]
		dx, dy, dz := q.X-p.X, q.Y-p.Y, q.Z-p.Z
		if math.Abs(dx) <= tol && math.Abs(dy) <= tol && math.Abs(dz) <= tol {
			continue
		}
		d.ChangedAtoms.Add(uint32(i))
		d.MaxDisplacement = max(d.MaxDisplacement, math.Sqrt(dx*dx+dy*dy+dz*dz))
	}
	d.ChangedCount = d.ChangedAtoms.GetCardinality()

	for i := 0; i < max(len(a.Boxes), len(b.Boxes)); i++ {
		if i >= len(a.Boxes) || i >= len(b.Boxes) || a.Boxes[i] != b.Boxes[i] {
			d.ChangedBoxes = append(d.ChangedBoxes, i)
		}
	}

	fa, fb := FixedSet(a.Lookup), FixedSet(b.Lookup)
	d.FixedAdded = roaring.AndNot(fb, fa).ToArray()
	d.FixedRemoved = roaring.AndNot(fa, fb).ToArray()
	return d
}

// Identical reports whether the checkpoints describe the same state.
func (d *Diff) Identical() bool {
	return d.StepA == d.StepB &&
		d.AtomCountA == d.AtomCountB &&
		d.ChangedCount == 0 &&
		len(d.ChangedBoxes) == 0 &&
		d.RNGEqual && d.PTEqual && d.LookupEqual && d.MovesEqual
}

// Write renders d in the given output format.
func (d *Diff) Write(w io.Writer, format string) error {
	switch format {
	case FormatYAML:
		return writeYAML(w, d)
	case FormatTable, "":
		return d.writeTable(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutput, format)
	}
}

func (d *Diff) writeTable(w io.Writer) error {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"", "a", "b"})
	tbl.AppendRow(table.Row{"step", d.StepA, d.StepB})
	tbl.AppendRow(table.Row{"atoms", humanize.Comma(int64(d.AtomCountA)), humanize.Comma(int64(d.AtomCountB))})
	tbl.AppendSeparator()
	tbl.AppendRow(table.Row{"changed atoms", humanize.Comma(int64(d.ChangedCount)), listAtoms(d.ChangedAtoms)})
	tbl.AppendRow(table.Row{"max displacement", fmt.Sprintf("%.6g", d.MaxDisplacement), ""})
	tbl.AppendRow(table.Row{"changed boxes", fmt.Sprint(d.ChangedBoxes), ""})
	tbl.AppendRow(table.Row{"fixed added", len(d.FixedAdded), ""})
	tbl.AppendRow(table.Row{"fixed removed", len(d.FixedRemoved), ""})
	tbl.AppendRow(table.Row{"rng", equalLabel(d.RNGEqual), ""})
	tbl.AppendRow(table.Row{"pt rng", equalLabel(d.PTEqual), ""})
	tbl.AppendRow(table.Row{"lookup", equalLabel(d.LookupEqual), ""})
	tbl.AppendRow(table.Row{"moves", equalLabel(d.MovesEqual), ""})

	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}

func listAtoms(bm *roaring.Bitmap) string {
	if bm.IsEmpty() {
		return ""
	}
	var ids []uint32
	it := bm.Iterator()
	for it.HasNext() && len(ids) < maxListed {
		ids = append(ids, it.Next())
	}
	s := fmt.Sprint(ids)
	if bm.GetCardinality() > maxListed {
		s += " ..."
	}
	return s
}

func equalLabel(eq bool) string {
	if eq {
		return "equal"
	}
	return "differs"
}

func ptEqual(a, b *model.RNGState) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func lookupEqual(a, b model.MoleculeLookup) bool {
	return a.NumKinds == b.NumKinds &&
		slices.Equal(a.Molecules, b.Molecules) &&
		slices.Equal(a.BoxAndKindStart, b.BoxAndKindStart) &&
		slices.Equal(a.Fixed, b.Fixed)
}

func movesEqual(a, b model.MoveSettings) bool {
	return equal3(a.Scale, b.Scale) &&
		equal3(a.AcceptPercent, b.AcceptPercent) &&
		equal3(a.Accepted, b.Accepted) &&
		equal3(a.Tries, b.Tries) &&
		equal3(a.TempAccepted, b.TempAccepted) &&
		equal3(a.TempTries, b.TempTries) &&
		equal2(a.MPTries, b.MPTries) &&
		equal2(a.MPAccepted, b.MPAccepted) &&
		slices.Equal(a.MPTMax, b.MPTMax) &&
		slices.Equal(a.MPRMax, b.MPRMax)
}

func equal2[T comparable](a, b [][]T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !slices.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equal3[T comparable](a, b [][][]T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equal2(a[i], b[i]) {
			return false
		}
	}
	return true
}
