package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrStepOverflow is returned when Step+1 does not fit the stored uint32.
var ErrStepOverflow = errors.New("step counter overflows uint32")

// ShapeError describes an array whose shape cannot be stored.
type ShapeError struct {
	// Field names the offending array, e.g. "Moves.Scale".
	Field string
	// Index is the path to the offending row, outermost first.
	Index []int
	// Reason explains the violation.
	Reason string
}

func (e *ShapeError) Error() string {
	if len(e.Index) == 0 {
		return fmt.Sprintf("shape inconsistency in %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("shape inconsistency in %s%v: %s", e.Field, e.Index, e.Reason)
}

// Validate checks that s can be written without emitting inconsistent size
// fields.
func (s *Snapshot) Validate() error {
	if s.Step >= math.MaxUint32 {
		return fmt.Errorf("%w: step %d", ErrStepOverflow, s.Step)
	}

	counts := []struct {
		field string
		n     int
	}{
		{"Boxes", len(s.Boxes)},
		{"Coordinates", len(s.Coordinates)},
		{"Lookup.Molecules", len(s.Lookup.Molecules)},
		{"Lookup.BoxAndKindStart", len(s.Lookup.BoxAndKindStart)},
		{"Lookup.Fixed", len(s.Lookup.Fixed)},
		{"Moves.MPTMax", len(s.Moves.MPTMax)},
		{"Moves.MPRMax", len(s.Moves.MPRMax)},
	}
	for _, c := range counts {
		if err := checkCount(c.field, nil, c.n); err != nil {
			return err
		}
	}

	m := &s.Moves
	if err := validate3D("Moves.Scale", m.Scale); err != nil {
		return err
	}
	if err := validate3D("Moves.AcceptPercent", m.AcceptPercent); err != nil {
		return err
	}
	for _, a := range []struct {
		field string
		data  [][][]uint32
	}{
		{"Moves.Accepted", m.Accepted},
		{"Moves.Tries", m.Tries},
		{"Moves.TempAccepted", m.TempAccepted},
		{"Moves.TempTries", m.TempTries},
	} {
		if err := validate3D(a.field, a.data); err != nil {
			return err
		}
	}
	if err := validate2D("Moves.MPTries", m.MPTries); err != nil {
		return err
	}
	return validate2D("Moves.MPAccepted", m.MPAccepted)
}

func checkCount(field string, index []int, n int) error {
	if uint64(n) > math.MaxUint32 {
		return &ShapeError{Field: field, Index: index, Reason: fmt.Sprintf("length %d exceeds uint32", n)}
	}
	return nil
}

// Dims2 returns the stored sizes of a 2D array (taken from the first row).
func Dims2[T any](data [][]T) (x, y int) {
	x = len(data)
	if x > 0 {
		y = len(data[0])
	}
	return x, y
}

// Dims3 returns the stored sizes of a 3D array (taken from the first element
// at every level).
func Dims3[T any](data [][][]T) (x, y, z int) {
	x = len(data)
	if x > 0 {
		y = len(data[0])
		if y > 0 {
			z = len(data[0][0])
		}
	}
	return x, y, z
}

func validate2D[T any](field string, data [][]T) error {
	x, y := Dims2(data)
	if x == 0 {
		return &ShapeError{Field: field, Reason: "outer dimension is empty"}
	}
	if err := checkCount(field, nil, x); err != nil {
		return err
	}
	if err := checkCount(field, []int{0}, y); err != nil {
		return err
	}
	for i, row := range data {
		if len(row) != y {
			return &ShapeError{Field: field, Index: []int{i}, Reason: fmt.Sprintf("ragged row: length %d, want %d", len(row), y)}
		}
	}
	return nil
}

func validate3D[T any](field string, data [][][]T) error {
	x, y, z := Dims3(data)
	if x == 0 {
		return &ShapeError{Field: field, Reason: "outer dimension is empty"}
	}
	if y == 0 {
		return &ShapeError{Field: field, Index: []int{0}, Reason: "second dimension is empty"}
	}
	for _, n := range []int{x, y, z} {
		if err := checkCount(field, nil, n); err != nil {
			return err
		}
	}
	for i, plane := range data {
		if len(plane) != y {
			return &ShapeError{Field: field, Index: []int{i}, Reason: fmt.Sprintf("ragged plane: length %d, want %d", len(plane), y)}
		}
		for j, row := range plane {
			if len(row) != z {
				return &ShapeError{Field: field, Index: []int{i, j}, Reason: fmt.Sprintf("ragged row: length %d, want %d", len(row), z)}
			}
		}
	}
	return nil
}
