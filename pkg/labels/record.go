package labels

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Header is the column row written at the top of every session table.
var Header = []string{"Image Path", "Delta X", "Delta Y", "Shot", "Hit Edge Flag"}

// SampleRecord is one capture tick as persisted in a session table.
type SampleRecord struct {
	ImagePath string `csv:"Image Path"`
	DeltaX    int    `csv:"Delta X"`
	DeltaY    int    `csv:"Delta Y"`
	Click     bool   `csv:"Shot"`
	HitEdge   bool   `csv:"Hit Edge Flag"`
}

// RecordWriter appends sample records to a session table. It is owned by a single
// capture session and is not safe for concurrent use.
type RecordWriter struct {
	file *os.File
	out  *gocsv.SafeCSVWriter
	rows int
}

// CreateRecordFile creates (truncating) the table at path and writes the header row.
func CreateRecordFile(path string) (*RecordWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "create session table")
	}
	w := &RecordWriter{file: file, out: gocsv.NewSafeCSVWriter(csv.NewWriter(file))}
	if err := w.out.Write(Header); err != nil {
		return nil, multierr.Append(errors.Wrap(err, "write header"), file.Close())
	}
	w.out.Flush()
	if err := w.out.Error(); err != nil {
		return nil, multierr.Append(errors.Wrap(err, "flush header"), file.Close())
	}
	return w, nil
}

// Append writes one row and flushes it so the table is valid up to the last complete row.
func (w *RecordWriter) Append(rec SampleRecord) error {
	if err := gocsv.MarshalCSVWithoutHeaders(&[]SampleRecord{rec}, w.out); err != nil {
		return errors.Wrap(err, "append sample record")
	}
	w.rows++
	return nil
}

// Rows reports how many records were appended.
func (w *RecordWriter) Rows() int { return w.rows }

// Close flushes pending output and closes the table.
func (w *RecordWriter) Close() error {
	w.out.Flush()
	return multierr.Append(w.out.Error(), w.file.Close())
}

// ReadRecords loads every complete row of a session table. A final row without its
// terminating newline, or with a different field count, is an interrupted write and is ignored.
func ReadRecords(path string) ([]SampleRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open session table")
	}
	if n := len(data); n > 0 && data[n-1] != '\n' {
		data = data[:bytes.LastIndexByte(data, '\n')+1]
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := completeRows(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "read session table %q", path)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	var records []SampleRecord
	if err := gocsv.UnmarshalCSV(&rowReader{rows: rows}, &records); err != nil {
		return nil, errors.Wrapf(err, "decode session table %q", path)
	}
	return records, nil
}

func completeRows(r *csv.Reader) ([][]string, error) {
	var rows [][]string
	width := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if width == 0 {
			width = len(row)
		} else if len(row) != width {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// rowReader replays pre-read rows through gocsv's reader interface.
type rowReader struct {
	rows [][]string
	pos  int
}

func (r *rowReader) Read() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *rowReader) ReadAll() ([][]string, error) {
	rest := r.rows[r.pos:]
	r.pos = len(r.rows)
	return rest, nil
}
