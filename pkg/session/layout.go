package session

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Directory and file naming used under the data root.
const (
	FramesDirName    = "frames"
	CSVDirName       = "csvs"
	ManifestsDirName = "manifests"

	csvPrefix      = "data_"
	csvExt         = ".csv"
	recordingDir   = "recording_"
	framePrefix    = "Frame_"
	manifestPrefix = "session_"
)

// Layout represents the filesystem locations shared by every session under one data root.
type Layout struct {
	Root         string
	FramesDir    string
	CSVDir       string
	ManifestsDir string
}

// Paths locates the files owned by a single recording session.
type Paths struct {
	ID           string
	FramesDir    string
	CSVPath      string
	ManifestPath string
}

// BuildLayout creates the data-root layout.
func BuildLayout(root string) Layout {
	return Layout{
		Root:         root,
		FramesDir:    filepath.Join(root, FramesDirName),
		CSVDir:       filepath.Join(root, CSVDirName),
		ManifestsDir: filepath.Join(root, ManifestsDirName),
	}
}

// EnsureFilesystem prepares the shared directory tree.
func EnsureFilesystem(layout Layout) error {
	for _, dir := range []string{layout.Root, layout.FramesDir, layout.CSVDir, layout.ManifestsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory %q", dir)
		}
	}
	return nil
}

// NewID derives a session identifier from a wall-clock timestamp with second granularity.
// Two sessions started within the same second share an identifier.
func NewID(now time.Time) string {
	return fmt.Sprintf("%d_%d_%d_%d_%d_%d", now.Year(), int(now.Month()), now.Day(), now.Hour(), now.Minute(), now.Second())
}

// Session resolves the per-session paths for id.
func (l Layout) Session(id string) Paths {
	return Paths{
		ID:           id,
		FramesDir:    filepath.Join(l.FramesDir, recordingDir+id),
		CSVPath:      filepath.Join(l.CSVDir, csvPrefix+id+csvExt),
		ManifestPath: filepath.Join(l.ManifestsDir, manifestPrefix+id+".json"),
	}
}

// FrameName returns the deterministic file name of frame index within the session.
func (p Paths) FrameName(index int, ext string) string {
	return fmt.Sprintf("%s%s_%d.%s", framePrefix, p.ID, index, strings.TrimPrefix(ext, "."))
}

// FramePath returns the absolute location of frame index.
func (p Paths) FramePath(index int, ext string) string {
	return filepath.Join(p.FramesDir, p.FrameName(index, ext))
}

// RelativeFramePath returns the frame location relative to the data root, slash-separated
// so recorded tables stay portable across platforms.
func (p Paths) RelativeFramePath(index int, ext string) string {
	return path.Join(FramesDirName, recordingDir+p.ID, p.FrameName(index, ext))
}

// IDFromCSV extracts the session identifier from a session table file name.
func IDFromCSV(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, csvPrefix) || !strings.HasSuffix(base, csvExt) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(base, csvPrefix), csvExt)
	return id, id != ""
}
