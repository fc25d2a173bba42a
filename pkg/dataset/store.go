package dataset

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/offlinefirst/gameplay-dagger/pkg/labels"
)

// ManifestName is the file describing a stored dataset.
const ManifestName = "dataset.json"

const storeSchemaVersion = 1

// Manifest describes tensors written by Save.
type Manifest struct {
	SchemaVersion int           `json:"schema_version"`
	CreatedAt     time.Time     `json:"created_at"`
	Vocabularies  Vocabularies  `json:"vocabularies"`
	Widths        labels.Widths `json:"widths"`
	Offsets       Offsets       `json:"offsets"`
	FeatureShape  []int         `json:"feature_shape"`
	TimeSteps     int           `json:"time_steps"`
	Sizes         Sizes         `json:"sizes"`
	Skipped       int           `json:"skipped"`
	Files         []string      `json:"files"`
}

// Save writes the manifest and snappy-compressed little-endian float32 tensors into dir.
func Save(dir string, ds *Dataset, now time.Time) (Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, errors.Wrap(err, "create dataset directory")
	}
	man := Manifest{
		SchemaVersion: storeSchemaVersion,
		CreatedAt:     now.UTC(),
		Vocabularies:  ds.Vocabularies,
		Widths:        ds.Widths,
		Offsets:       OffsetsOf(ds.Widths),
		FeatureShape:  ds.FeatureShape,
		TimeSteps:     ds.TimeSteps,
		Sizes:         ds.Sizes,
		Skipped:       ds.Skipped,
	}
	for _, part := range partitionsOf(ds) {
		features := part.name + "_features.f32.sz"
		lbls := part.name + "_labels.f32.sz"
		if err := writeBlob(filepath.Join(dir, features), part.p.Features); err != nil {
			return Manifest{}, err
		}
		if err := writeBlob(filepath.Join(dir, lbls), rawOf(part.p.Labels)); err != nil {
			return Manifest{}, err
		}
		man.Files = append(man.Files, features, lbls)
	}

	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return Manifest{}, errors.Wrap(err, "marshal dataset manifest")
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644); err != nil {
		return Manifest{}, errors.Wrap(err, "write dataset manifest")
	}
	return man, nil
}

// LoadManifest reads the manifest of a stored dataset. path may be the dataset directory
// or the manifest file itself.
func LoadManifest(path string) (Manifest, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ManifestName)
	}
	var man Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return man, errors.Wrap(err, "read dataset manifest")
	}
	if err := json.Unmarshal(data, &man); err != nil {
		return man, errors.Wrap(err, "decode dataset manifest")
	}
	return man, nil
}

// Load reads a dataset written by Save and re-derives head groups from the stored widths.
func Load(dir string) (*Dataset, error) {
	man, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{
		Vocabularies: man.Vocabularies,
		Widths:       man.Widths,
		FeatureShape: man.FeatureShape,
		TimeSteps:    man.TimeSteps,
		Sizes:        man.Sizes,
		Skipped:      man.Skipped,
	}
	units := map[string]int{"train": man.Sizes.Train, "validation": man.Sizes.Validation, "test": man.Sizes.Test}
	for _, part := range partitionsOf(ds) {
		features, err := readBlob(filepath.Join(dir, part.name+"_features.f32.sz"))
		if err != nil {
			return nil, err
		}
		raw, err := readBlob(filepath.Join(dir, part.name+"_labels.f32.sz"))
		if err != nil {
			return nil, err
		}
		p := Partition{Units: units[part.name], Features: features}
		if len(raw) > 0 {
			if ds.Widths.Total() == 0 || len(raw)%ds.Widths.Total() != 0 {
				return nil, errors.Wrapf(ErrVocabularyMismatch, "%s labels do not match head widths", part.name)
			}
			p.Labels = mat.NewDense(len(raw)/ds.Widths.Total(), ds.Widths.Total(), toFloat64(raw))
			if p.Heads, err = SplitHeads(p.Labels, ds.Widths); err != nil {
				return nil, err
			}
		}
		*part.p = p
	}
	return ds, nil
}

type namedPartition struct {
	name string
	p    *Partition
}

func partitionsOf(ds *Dataset) []namedPartition {
	return []namedPartition{
		{name: "train", p: &ds.Train},
		{name: "validation", p: &ds.Validation},
		{name: "test", p: &ds.Test},
	}
}

func rawOf(m *mat.Dense) []float32 {
	if m == nil {
		return nil
	}
	rows, cols := m.Dims()
	out := make([]float32, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for _, v := range m.RawRowView(r) {
			out = append(out, float32(v))
		}
	}
	return out
}

func toFloat64(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

func writeBlob(path string, values []float32) error {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	if err := os.WriteFile(path, snappy.Encode(nil, buf), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", filepath.Base(path))
	}
	return nil
}

func readBlob(path string) ([]float32, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", filepath.Base(path))
	}
	buf, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrapf(err, "decompress %s", filepath.Base(path))
	}
	if len(buf)%4 != 0 {
		return nil, errors.Errorf("%s is not a float32 blob", filepath.Base(path))
	}
	values := make([]float32, len(buf)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return values, nil
}
