package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/offlinefirst/gameplay-dagger/pkg/config"
)

// SchemaVersion captures the manifest version for compatibility checks.
const SchemaVersion = 1

// Session lifecycle states recorded in manifests.
const (
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// CaptureSettings records how the session was sampled.
type CaptureSettings struct {
	RateHz      float64       `json:"rate_hz"`
	FrameFormat string        `json:"frame_format"`
	Pacing      string        `json:"pacing"`
	ResetCursor bool          `json:"reset_cursor"`
	Region      config.Region `json:"region"`
}

// Files holds the session locations relative to the data root.
type Files struct {
	CSV    string `json:"csv"`
	Frames string `json:"frames"`
}

// Status summarises the lifecycle of a capture session.
type Status struct {
	State          string     `json:"state"`
	Summary        string     `json:"summary,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	Termination    string     `json:"termination,omitempty"`
	Rows           int        `json:"rows"`
	AchievedRateHz float64    `json:"achieved_rate_hz,omitempty"`
}

// Manifest is the durable sidecar describing a recording session.
type Manifest struct {
	SchemaVersion int             `json:"schema_version"`
	SessionID     string          `json:"session_id"`
	CreatedAt     time.Time       `json:"created_at"`
	Hostname      string          `json:"hostname"`
	AppVersion    string          `json:"app_version"`
	ConfigSource  string          `json:"config_source"`
	Capture       CaptureSettings `json:"capture"`
	Files         Files           `json:"files"`
	Status        Status          `json:"status"`
}

// Options captures the knobs for creating a new manifest.
type Options struct {
	CreatedAt  time.Time
	Hostname   string
	AppVersion string
	Config     config.Config
	Layout     Layout
	Session    Paths
}

// NewManifest constructs a pending manifest for a session.
func NewManifest(opts Options) Manifest {
	return Manifest{
		SchemaVersion: SchemaVersion,
		SessionID:     opts.Session.ID,
		CreatedAt:     opts.CreatedAt.UTC(),
		Hostname:      opts.Hostname,
		AppVersion:    opts.AppVersion,
		ConfigSource:  opts.Config.Source,
		Capture: CaptureSettings{
			RateHz:      opts.Config.Capture.RateHz,
			FrameFormat: opts.Config.Capture.FrameFormat,
			Pacing:      opts.Config.Capture.Pacing,
			ResetCursor: opts.Config.Capture.ResetCursor,
			Region:      opts.Config.Capture.Region,
		},
		Files:  opts.Layout.relative(opts.Session),
		Status: Status{State: "pending"},
	}
}

func (l Layout) relative(p Paths) Files {
	files := Files{}
	if rel, err := filepath.Rel(l.Root, p.CSVPath); err == nil {
		files.CSV = filepath.ToSlash(rel)
	}
	if rel, err := filepath.Rel(l.Root, p.FramesDir); err == nil {
		files.Frames = filepath.ToSlash(rel)
	}
	return files
}

// Save writes the manifest JSON to disk with indentation for readability.
func Save(man Manifest, path string) error {
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write manifest")
	}
	return nil
}

// Load reads a manifest JSON file from disk.
func Load(path string) (Manifest, error) {
	var man Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return man, errors.Wrap(err, "read manifest")
	}
	if err := json.Unmarshal(data, &man); err != nil {
		return man, errors.Wrap(err, "decode manifest")
	}
	return man, nil
}
