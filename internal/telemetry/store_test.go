package telemetry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magnav-sim/internal/agent"
	"magnav-sim/internal/config"
	mlog "magnav-sim/internal/log"
	"magnav-sim/internal/sim"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "telemetry.db"), mlog.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func shortRun(t *testing.T) (*config.Scenario, []sim.Sample) {
	t.Helper()
	sc := config.Default()
	sc.Sim.Duration = 300
	r, err := sim.NewRunner(sc, mlog.Discard())
	require.NoError(t, err)
	samples, err := r.Run(context.Background())
	require.NoError(t, err)
	return sc, samples
}

func TestOpenMigrates(t *testing.T) {
	s := openStore(t)
	v, dirty, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)
}

func TestReopenIsNoChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	s, err := Open(path, mlog.Discard())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, mlog.Discard())
	require.NoError(t, err)
	defer s.Close()
}

func TestSamplesRoundTrip(t *testing.T) {
	s := openStore(t)
	sc, samples := shortRun(t)

	run, err := s.CreateRun(sc)
	require.NoError(t, err)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, sc.Steps(), run.Steps)

	require.NoError(t, s.InsertSamples(run.RunID, samples))

	got, err := s.Samples(run.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(samples, got); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
}

func TestModeCounts(t *testing.T) {
	s := openStore(t)
	sc, samples := shortRun(t)
	run, err := s.CreateRun(sc)
	require.NoError(t, err)
	require.NoError(t, s.InsertSamples(run.RunID, samples))

	want := map[agent.NavigationMode]int{}
	for _, smp := range samples {
		want[smp.Mode]++
	}
	got, err := s.ModeCounts(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Greater(t, got[agent.ModeMagNav], 0)
}

func TestRunsListsAll(t *testing.T) {
	s := openStore(t)
	sc := config.Default()
	a, err := s.CreateRun(sc)
	require.NoError(t, err)
	b, err := s.CreateRun(sc)
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].RunID, runs[1].RunID}
	assert.ElementsMatch(t, []string{a.RunID, b.RunID}, ids)
	assert.Equal(t, "patrol-jamming", runs[0].Name)
}

func TestInsertSamplesUnknownRun(t *testing.T) {
	s := openStore(t)
	_, samples := shortRun(t)
	err := s.InsertSamples("missing", samples[:1])
	assert.Error(t, err)
}

func TestRunNotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.Run("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveExportImport(t *testing.T) {
	src := openStore(t)
	sc, samples := shortRun(t)
	run, err := src.CreateRun(sc)
	require.NoError(t, err)
	require.NoError(t, src.InsertSamples(run.RunID, samples))

	path := filepath.Join(t.TempDir(), "run.msgpack")
	require.NoError(t, src.Export(run.RunID, path))

	a, err := ReadArchive(path)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, a.Run.RunID)
	assert.True(t, run.CreatedAt.Equal(a.Run.CreatedAt))
	if diff := cmp.Diff(samples, a.Samples); diff != "" {
		t.Errorf("archive samples mismatch (-want +got):\n%s", diff)
	}

	dst := openStore(t)
	require.NoError(t, dst.Import(a))
	got, err := dst.Samples(run.RunID)
	require.NoError(t, err)
	assert.Len(t, got, len(samples))
	assert.Error(t, dst.Import(a), "duplicate run id")
}

func TestSamplesKeepFieldReadings(t *testing.T) {
	s := openStore(t)
	sc, samples := shortRun(t)
	run, err := s.CreateRun(sc)
	require.NoError(t, err)
	require.NoError(t, s.InsertSamples(run.RunID, samples[:10]))

	got, err := s.Samples(run.RunID)
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i := range got {
		assert.NotZero(t, got[i].Field)
		assert.Equal(t, samples[i].Field, got[i].Field)
	}
}

func TestFailedImportLeavesNoRun(t *testing.T) {
	s := openStore(t)
	sc, samples := shortRun(t)
	run, err := NewRun(sc)
	require.NoError(t, err)

	// A repeated step violates the samples primary key half way through.
	bad := append([]sim.Sample(nil), samples[:5]...)
	bad = append(bad, samples[2])
	require.Error(t, s.Import(Archive{Run: run, Samples: bad}))

	_, err = s.Run(run.RunID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := s.Samples(run.RunID)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Nothing was left behind, so a corrected archive imports cleanly.
	require.NoError(t, s.Import(Archive{Run: run, Samples: samples[:5]}))
	got, err = s.Samples(run.RunID)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}
