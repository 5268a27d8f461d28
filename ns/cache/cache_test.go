package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nested-inference/nested-inference/ns"
)

func sampleCache() *ns.ResumeCache {
	return &ns.ResumeCache{
		Dim:        2,
		ParamNames: []string{"a", "b"},
		Points: []ns.CachedPoint{
			{U: []float64{0.1, 0.2}, Params: []float64{0.1, 0.2}, Logl: -3},
			{U: []float64{0.5, 0.6}, Params: []float64{0.5, 0.6}, Logl: -1},
		},
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir(), ns.ResumeModeOverwrite)
	require.NoError(t, err)

	want := sampleCache()
	require.NoError(t, s.Save(want))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_LoadMissingIsNil(t *testing.T) {
	s, err := Open(t.TempDir(), ns.ResumeModeResume)
	require.NoError(t, err)
	got, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_EncodingIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, ns.ResumeModeOverwrite)
	require.NoError(t, err)

	require.NoError(t, s.Save(sampleCache()))
	first, err := os.ReadFile(filepath.Join(dir, "resume.cbor"))
	require.NoError(t, err)
	require.NoError(t, s.Save(sampleCache()))
	second, err := os.ReadFile(filepath.Join(dir, "resume.cbor"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestOpen_OverwriteClearsExistingCache(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, ns.ResumeModeOverwrite)
	require.NoError(t, err)
	require.NoError(t, s.Save(sampleCache()))

	s2, err := Open(dir, ns.ResumeModeOverwrite)
	require.NoError(t, err)
	got, err := s2.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpen_ResumeKeepsExistingCache(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, ns.ResumeModeOverwrite)
	require.NoError(t, err)
	require.NoError(t, s.Save(sampleCache()))

	s2, err := Open(dir, ns.ResumeModeResume)
	require.NoError(t, err)
	got, err := s2.Load()
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestOpen_SubfolderAllocatesSequentialRuns(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir, ns.ResumeModeSubfolder)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run1"), s1.Dir())

	require.NoError(t, s1.Save(sampleCache()))

	s2, err := Open(dir, ns.ResumeModeSubfolder)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run2"), s2.Dir())

	// The first run's cache is untouched.
	got, err := s1.Load()
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestOpen_RejectsUnknownMode(t *testing.T) {
	_, err := Open(t.TempDir(), "restore")
	assert.Error(t, err)
}

func TestSnapshot_CombinesDeadAndLive(t *testing.T) {
	space := ns.NewParameterSpace(1, nil, func(u []float64) []float64 { return u }, func(p []float64) float64 { return 0 })
	dead := []ns.DeadPoint{
		{Point: ns.Point{U: []float64{0.2}, Params: []float64{0.2}, Logl: -2}},
	}
	live := []ns.Point{
		{U: []float64{0.8}, Params: []float64{0.8}, Logl: -1},
	}
	c := Snapshot(space, dead, live)
	assert.Equal(t, 1, c.Dim)
	assert.Equal(t, []string{"p0"}, c.ParamNames)
	require.Len(t, c.Points, 2)
	assert.Equal(t, -2.0, c.Points[0].Logl)
	assert.Equal(t, -1.0, c.Points[1].Logl)
}
