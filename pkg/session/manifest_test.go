package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/gameplay-dagger/pkg/config"
)

func TestBuildLayoutAndSessionPaths(t *testing.T) {
	layout := BuildLayout("/tmp/data")
	assert.Equal(t, filepath.Join("/tmp/data", "frames"), layout.FramesDir)
	assert.Equal(t, filepath.Join("/tmp/data", "csvs"), layout.CSVDir)

	s := layout.Session("2024_5_12_9_30_0")
	assert.Equal(t, filepath.Join("/tmp/data", "frames", "recording_2024_5_12_9_30_0"), s.FramesDir)
	assert.Equal(t, filepath.Join("/tmp/data", "csvs", "data_2024_5_12_9_30_0.csv"), s.CSVPath)
	assert.Equal(t, "Frame_2024_5_12_9_30_0_7.jpg", s.FrameName(7, ".jpg"))
	assert.Equal(t, "frames/recording_2024_5_12_9_30_0/Frame_2024_5_12_9_30_0_7.jpg", s.RelativeFramePath(7, "jpg"))
}

func TestNewIDHasSecondGranularity(t *testing.T) {
	a := time.Date(2024, 5, 2, 9, 3, 7, 100, time.Local)
	b := a.Add(500 * time.Millisecond)
	assert.Equal(t, "2024_5_2_9_3_7", NewID(a))
	assert.Equal(t, NewID(a), NewID(b))
}

func TestIDFromCSV(t *testing.T) {
	id, ok := IDFromCSV("/x/csvs/data_2024_1_2_3_4_5.csv")
	require.True(t, ok)
	assert.Equal(t, "2024_1_2_3_4_5", id)

	_, ok = IDFromCSV("notes.txt")
	assert.False(t, ok)
	_, ok = IDFromCSV("data_.csv")
	assert.False(t, ok)
}

func TestEnsureFilesystemCreatesDirectories(t *testing.T) {
	layout := BuildLayout(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, EnsureFilesystem(layout))

	for _, dir := range []string{layout.Root, layout.FramesDir, layout.CSVDir, layout.ManifestsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestManifestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	layout := BuildLayout(dir)
	require.NoError(t, EnsureFilesystem(layout))
	cfg := config.Default()
	cfg.Source = "explicit"
	paths := layout.Session("2024_5_12_9_30_0")

	man := NewManifest(Options{
		CreatedAt:  time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC),
		Hostname:   "host",
		AppVersion: "test",
		Config:     cfg,
		Layout:     layout,
		Session:    paths,
	})
	assert.Equal(t, SchemaVersion, man.SchemaVersion)
	assert.Equal(t, "csvs/data_2024_5_12_9_30_0.csv", man.Files.CSV)
	assert.Equal(t, "frames/recording_2024_5_12_9_30_0", man.Files.Frames)
	assert.Equal(t, 15.0, man.Capture.RateHz)

	man.Status.State = StateCompleted
	man.Status.Rows = 30
	require.NoError(t, Save(man, paths.ManifestPath))

	loaded, err := Load(paths.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, man.SessionID, loaded.SessionID)
	assert.Equal(t, StateCompleted, loaded.Status.State)
	assert.Equal(t, 30, loaded.Status.Rows)
}
