package snapshot

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// Files and directories inside a snapshot directory.
const (
	CombinedFile = "all_routes.csv"
	BreakdownDir = "route_breakdown"
	SummaryFile  = "snapshot_summary.json"
)

// Snapshot is the content of one dated snapshot directory.
type Snapshot struct {
	Date    string
	Rows    []PriceRow
	Summary *Summary
}

// ByRoute groups rows per route, preserving row order within each route.
func (s *Snapshot) ByRoute() map[Route][]PriceRow {
	out := make(map[Route][]PriceRow)
	for _, r := range s.Rows {
		out[r.Route()] = append(out[r.Route()], r)
	}
	return out
}

// Store reads and publishes snapshots under a root directory.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string { return s.root }

// Dir returns the directory of the snapshot keyed by date.
func (s *Store) Dir(date string) string {
	return filepath.Join(s.root, date)
}

// Write publishes snap under its date key. Files are written into a private
// temp directory which then replaces any existing snapshot for the same date,
// so readers never observe a partial snapshot.
func (s *Store) Write(snap *Snapshot) (string, error) {
	if !validDate(snap.Date) {
		return "", fmt.Errorf("write snapshot: invalid date key %q", snap.Date)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot root: %w", err)
	}

	tmp := filepath.Join(s.root, fmt.Sprintf(".%s.tmp-%s", snap.Date, uuid.NewString()))
	if err := os.Mkdir(tmp, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	published := false
	defer func() {
		if !published {
			_ = os.RemoveAll(tmp)
		}
	}()

	if err := writeCSV(filepath.Join(tmp, CombinedFile), snap.Rows); err != nil {
		return "", err
	}

	breakdown := filepath.Join(tmp, BreakdownDir)
	if err := os.Mkdir(breakdown, 0o755); err != nil {
		return "", fmt.Errorf("create breakdown dir: %w", err)
	}
	for route, rows := range snap.ByRoute() {
		if err := writeCSV(filepath.Join(breakdown, route.FileName()), rows); err != nil {
			return "", err
		}
	}

	if snap.Summary != nil {
		data, err := json.MarshalIndent(snap.Summary, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode summary: %w", err)
		}
		if err := os.WriteFile(filepath.Join(tmp, SummaryFile), data, 0o644); err != nil {
			return "", fmt.Errorf("write summary: %w", err)
		}
	}

	dest := s.Dir(snap.Date)
	if err := replaceDir(tmp, dest); err != nil {
		return "", fmt.Errorf("publish snapshot %s: %w", snap.Date, err)
	}
	published = true
	return dest, nil
}

// replaceDir renames src onto dest. An existing dest is moved aside first
// because rename(2) refuses to replace a non-empty directory.
func replaceDir(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if _, statErr := os.Stat(dest); statErr != nil {
		return err
	}

	old := fmt.Sprintf("%s.old-%s", dest, uuid.NewString())
	if err := os.Rename(dest, old); err != nil {
		return err
	}
	if err := os.Rename(src, dest); err != nil {
		_ = os.Rename(old, dest)
		return err
	}
	return os.RemoveAll(old)
}

func writeCSV(path string, rows []PriceRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(encodeRow(r)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// Load reads and validates the combined CSV of the snapshot keyed by date.
// It returns *NotFoundError when the key does not resolve to a combined CSV
// and *MalformedError when the file violates the row schema.
func (s *Store) Load(date string) (*Snapshot, error) {
	if !validDate(date) {
		return nil, &NotFoundError{Date: date, Reason: "invalid date key, expected YYYYMMDD"}
	}

	path := filepath.Join(s.Dir(date), CombinedFile)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Date: date, Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", date, err)
	}
	defer f.Close()

	rows, err := readRows(path, f)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].SnapshotDate == "" {
			rows[i].SnapshotDate = date
		}
	}

	snap := &Snapshot{Date: date, Rows: rows}
	if sum, err := s.LoadSummary(date); err == nil {
		snap.Summary = sum
	}
	return snap, nil
}

func readRows(path string, r io.Reader) ([]PriceRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &MalformedError{Path: path, Reason: "empty file, header row missing"}
	}
	if err != nil {
		return nil, malformedFromCSV(path, err)
	}

	idx, err := newColumnIndex(header)
	if err != nil {
		var fe *fieldError
		errors.As(err, &fe)
		return nil, &MalformedError{Path: path, Line: 1, Column: fe.column, Reason: fe.reason}
	}

	var rows []PriceRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformedFromCSV(path, err)
		}
		line, _ := cr.FieldPos(0)

		row, err := idx.decode(rec)
		if err != nil {
			var fe *fieldError
			if errors.As(err, &fe) {
				return nil, &MalformedError{Path: path, Line: line, Column: fe.column, Reason: fe.reason}
			}
			return nil, &MalformedError{Path: path, Line: line, Reason: err.Error()}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func malformedFromCSV(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &MalformedError{Path: path, Line: pe.Line, Reason: pe.Err.Error()}
	}
	return fmt.Errorf("read %s: %w", path, err)
}

// LoadSummary reads snapshot_summary.json of the snapshot keyed by date.
func (s *Store) LoadSummary(date string) (*Summary, error) {
	path := filepath.Join(s.Dir(date), SummaryFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Date: date, Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("read summary %s: %w", date, err)
	}

	var sum Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, &MalformedError{Path: path, Reason: err.Error()}
	}
	return &sum, nil
}

// List returns the date keys of published snapshots in ascending order.
// Directories without a combined CSV and temp directories are skipped.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var dates []string
	for _, e := range entries {
		if !e.IsDir() || !validDate(e.Name()) {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), CombinedFile)); err != nil {
			continue
		}
		dates = append(dates, e.Name())
	}
	sort.Strings(dates)
	return dates, nil
}

// Latest returns the n most recent date keys, oldest first.
func (s *Store) Latest(n int) ([]string, error) {
	dates, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(dates) < n {
		return nil, fmt.Errorf("%w: need %d snapshots under %s, found %d", ErrNotFound, n, s.root, len(dates))
	}
	return dates[len(dates)-n:], nil
}

// Files returns the paths of every file in the snapshot keyed by date,
// relative to the snapshot directory and slash separated.
func (s *Store) Files(date string) ([]string, error) {
	dir := s.Dir(date)
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Date: date, Path: dir}
	}
	if err != nil {
		return nil, fmt.Errorf("walk snapshot %s: %w", date, err)
	}
	sort.Strings(files)
	return files, nil
}
