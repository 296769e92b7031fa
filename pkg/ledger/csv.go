package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/r3d91ll/urnlab/pkg/errors"
)

// Sink receives finalized participant records.
type Sink interface {
	Append(rec *Record) error
}

// CSVLedger appends participant rows to a CSV file. The file is opened,
// written, and closed inside each Append; rows already on disk are never touched.
type CSVLedger struct {
	path  string
	slots int
}

// Open returns the ledger at path, creating it with a header for slots
// trial slots if it does not exist yet. An existing empty file gets the
// header; an existing header for a different layout is rejected.
func Open(path string, slots int) (*CSVLedger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.WrapIO(err, errors.ErrLedgerOpenFailed, "failed to create ledger directory").
				WithContext("path", path)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	switch {
	case os.IsExist(err):
		return openExisting(path, slots)
	case err != nil:
		return nil, errors.WrapIO(err, errors.ErrLedgerOpenFailed, "failed to create ledger").
			WithContext("path", path)
	}

	if err := writeRows(f, Header(slots)); err != nil {
		return nil, errors.WrapIO(err, errors.ErrLedgerOpenFailed, "failed to write ledger header").
			WithContext("path", path)
	}
	return &CSVLedger{path: path, slots: slots}, nil
}

func openExisting(path string, slots int) (*CSVLedger, error) {
	want := Header(slots)
	got, err := readHeader(path)
	switch {
	case err == io.EOF:
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, errors.WrapIO(err, errors.ErrLedgerOpenFailed, "failed to open empty ledger").
				WithContext("path", path)
		}
		if err := writeRows(f, want); err != nil {
			return nil, errors.WrapIO(err, errors.ErrLedgerOpenFailed, "failed to write ledger header").
				WithContext("path", path)
		}
	case err != nil:
		// unreadable or malformed: counting already fell back to zero and was reported
	case !slices.Equal(got, want):
		return nil, errors.New(errors.ErrLedgerHeaderMismatch, errors.CategoryIO,
			"ledger header does not match this design").
			WithContext("path", path).
			WithContext("columns", fmt.Sprintf("%d, expected %d", len(got), len(want))).
			WithSuggestion("Point ledger.path at a separate file for each design")
	}
	return &CSVLedger{path: path, slots: slots}, nil
}

// readHeader returns the first record of the file at path, or io.EOF if it
// holds no records.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.Read()
}

// Path returns the ledger file path.
func (l *CSVLedger) Path() string {
	return l.path
}

// Append writes rec as one row at the end of the file.
func (l *CSVLedger) Append(rec *Record) error {
	if len(rec.Trials) > l.slots {
		return errors.InternalErrorf(errors.ErrLedgerWriteFailed,
			"record has %d trials, ledger has %d slots", len(rec.Trials), l.slots)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WrapIO(err, errors.ErrLedgerWriteFailed, "failed to open ledger for append").
			WithContext("path", l.path).
			WithContext("sequence", strconv.Itoa(rec.Sequence))
	}
	if err := writeRows(f, rec.Row()); err != nil {
		return errors.WrapIO(err, errors.ErrLedgerWriteFailed, "failed to append ledger row").
			WithContext("path", l.path).
			WithContext("sequence", strconv.Itoa(rec.Sequence))
	}
	return nil
}

// writeRows writes, flushes, and closes f.
func writeRows(f *os.File, rows ...[]string) (err error) {
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return f.Sync()
}

// ExistingParticipants returns the number of data rows in the ledger at path.
// A missing, unreadable, or malformed file counts as empty.
func ExistingParticipants(path string) int {
	n, err := CountRows(path)
	if err != nil {
		return 0
	}
	return n
}

// CountRows is ExistingParticipants with the failure reported, so callers
// can log why the count fell back to zero.
func CountRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	// early exits leave short rows
	r.FieldsPerRecord = -1
	rows := 0
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		rows++
	}
	if rows == 0 {
		return 0, nil
	}
	return rows - 1, nil
}
