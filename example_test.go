package mcckpt_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/mcckpt"
	"github.com/hupe1980/mcckpt/blobstore"
	"github.com/hupe1980/mcckpt/mt19937"
	"github.com/hupe1980/mcckpt/persistence"
	"github.com/hupe1980/mcckpt/testutil"
)

// Example writes a checkpoint every 1000 steps to an in-memory store.
func Example() {
	ctx := context.Background()

	cp, err := mcckpt.New(
		mcckpt.WithStore(blobstore.NewMemoryStore()),
		mcckpt.WithFrequency(1000),
	)
	if err != nil {
		log.Fatal(err)
	}

	snap := testutil.SmallSnapshot()
	for step := uint64(0); step < 2000; step++ {
		if !cp.Due(step) {
			continue
		}
		snap.Step = step
		layout, err := cp.Write(ctx, snap)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("step %d: %d bytes\n", step, layout.Size)
	}

	restored, err := cp.Load(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("resume at", restored.ResumeStep())
	// Output:
	// step 999: 5561 bytes
	// step 1999: 5561 bytes
	// resume at 2000
}

// Example_legacy writes the unframed layout read by existing engines and
// restores the generator from it.
func Example_legacy() {
	ctx := context.Background()

	cp, err := mcckpt.New(
		mcckpt.WithStore(blobstore.NewMemoryStore()),
		mcckpt.WithFormat(persistence.FormatLegacy),
	)
	if err != nil {
		log.Fatal(err)
	}

	layout, err := cp.Write(ctx, testutil.SmallSnapshot())
	if err != nil {
		log.Fatal(err)
	}
	for _, s := range layout.Sections {
		fmt.Printf("%-12s %5d %5d\n", s.Name, s.Offset, s.Size)
	}

	snap, err := cp.Load(ctx)
	if err != nil {
		log.Fatal(err)
	}
	rng, err := mt19937.FromState(snap.RNG)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(rng.Uint32() == mt19937.New(42).Uint32())
}
