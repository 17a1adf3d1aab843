package commands

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mcckpt/internal/fs"
	"github.com/hupe1980/mcckpt/persistence"
	"github.com/hupe1980/mcckpt/testutil"
)

func init() {
	color.NoColor = true
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFixture(t *testing.T, dir, name string, opts persistence.WriteOptions) string {
	t.Helper()

	path := filepath.Join(dir, name)
	_, err := persistence.WriteFile(fs.LocalFS{}, path, testutil.SmallSnapshot(), opts)
	require.NoError(t, err)
	return path
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "mcckpt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestInspect(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "checkpoint.dat", persistence.WriteOptions{})

	out, err := run(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "resume step")
	assert.Contains(t, out, "1000")

	out, err = run(t, "inspect", "-o", "yaml", path)
	require.NoError(t, err)
	assert.Contains(t, out, "format: v1")
	assert.Contains(t, out, "step: 999")
}

func TestInspect_Missing(t *testing.T) {
	_, err := run(t, "inspect", filepath.Join(t.TempDir(), "nope.dat"))
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	good := writeFixture(t, dir, "good.dat", persistence.WriteOptions{})
	legacy := writeFixture(t, dir, "legacy.dat", persistence.WriteOptions{Format: persistence.FormatLegacy})

	corrupt := filepath.Join(dir, "corrupt.dat")
	data, err := os.ReadFile(good)
	require.NoError(t, err)
	data[len(data)/2] ^= 0xff
	require.NoError(t, os.WriteFile(corrupt, data, 0o600))

	out, err := run(t, "verify", good, legacy)
	require.NoError(t, err)
	assert.Contains(t, out, "OK   "+good)
	assert.Contains(t, out, "OK   "+legacy)

	out, err = run(t, "verify", "-j", "2", good, corrupt)
	require.ErrorIs(t, err, ErrVerifyFailed)
	assert.Contains(t, out, "FAIL "+corrupt)
	assert.Contains(t, out, "OK   "+good)
}

func TestVerify_InvalidJobs(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "checkpoint.dat", persistence.WriteOptions{})

	_, err := run(t, "verify", "--jobs", "0", path)
	require.ErrorIs(t, err, ErrInvalidJobs)
}

func TestConvert_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := writeFixture(t, dir, "checkpoint.dat", persistence.WriteOptions{})
	legacy := filepath.Join(dir, "legacy.dat")
	back := filepath.Join(dir, "back.dat")

	_, err := run(t, "convert", "--format", "legacy", "--out-byte-order", "big", src, legacy)
	require.NoError(t, err)

	info, err := os.Stat(legacy)
	require.NoError(t, err)
	assert.Equal(t, int64(testutil.SmallSnapshotLegacySize), info.Size())

	_, err = run(t, "convert", "--byte-order", "big", "--out-byte-order", "little", legacy, back)
	require.NoError(t, err)

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestConvert_InvalidFormat(t *testing.T) {
	src := writeFixture(t, t.TempDir(), "checkpoint.dat", persistence.WriteOptions{})
	_, err := run(t, "convert", "--format", "v7", src, src+".out")
	require.ErrorIs(t, err, persistence.ErrUnknownFormat)
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "a.dat", persistence.WriteOptions{})
	b := writeFixture(t, dir, "b.dat", persistence.WriteOptions{ByteOrder: binary.BigEndian})

	out, err := run(t, "diff", "--exit-code", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "changed atoms")

	snap := testutil.SmallSnapshot()
	snap.Coordinates[0].X = 5
	c := filepath.Join(dir, "c.dat")
	_, err = persistence.WriteFile(fs.LocalFS{}, c, snap, persistence.WriteOptions{})
	require.NoError(t, err)

	out, err = run(t, "diff", "--exit-code", "-o", "yaml", a, c)
	require.ErrorIs(t, err, ErrCheckpointsDiffer)
	assert.Contains(t, out, "changed_atoms: 1")
}

func TestSynthAndFetch(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "store")
	require.NoError(t, os.Mkdir(store, 0o750))
	cfg := writeConfig(t, dir, "checkpoint:\n  directory: "+store+"\n  retain: 2\nio:\n  limit: 10MB\nlogging:\n  level: error\n")

	out, err := run(t, "synth", "-c", cfg, "--atoms", "500", "--step", "4999", "--pt")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote step 4999")
	assert.FileExists(t, filepath.Join(store, "checkpoint-000000004999.dat"))

	_, err = run(t, "synth", "-c", cfg, "--atoms", "500", "--step", "9999", "--seed", "2")
	require.NoError(t, err)

	dst := filepath.Join(dir, "restart.dat")
	out, err = run(t, "fetch", "-c", cfg, dst)
	require.NoError(t, err)
	assert.Contains(t, out, "checkpoint-000000009999.dat")

	snap, _, err := persistence.ReadFile(dst, persistence.DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint64(9999), snap.Step)
	assert.Len(t, snap.Coordinates, 500)
	assert.False(t, snap.ParallelTemperingEnabled())
}

func TestSynth_Disabled(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "checkpoint:\n  enabled: false\n  directory: "+dir+"\n")

	_, err := run(t, "synth", "-c", cfg)
	require.ErrorIs(t, err, ErrCheckpointDisabled)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mcckpt dev")
}
