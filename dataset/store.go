package dataset

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

// Store reads and writes named tables.
type Store interface {
	Load(name string) (*Table, error)
	Save(name string, t *Table) error
}

// FileStore keeps tables as files under Dir. Names ending in ".csv" are plain CSV;
// every other name is a gob snapshot that preserves column kinds, with ".gob" appended
// when the name has no extension.
type FileStore struct {
	Dir string
}

// snapshot is the gob form of a Table. Numeric columns are stored as float64 so values
// survive the round trip exactly; NaN marks a missing cell.
type snapshot struct {
	Columns []snapshotColumn
}

type snapshotColumn struct {
	Name    string
	Type    string
	Floats  []float64
	Strings []string
}

func newSnapshot(t *Table) snapshot {
	snap := snapshot{Columns: make([]snapshotColumn, 0, t.Ncol())}
	for _, s := range t.columns() {
		c := snapshotColumn{Name: s.Name, Type: string(s.Type())}
		if kindOf(s.Type()) == Continuous {
			c.Floats = s.Float()
		} else {
			c.Strings = cells(s, "NaN")
		}
		snap.Columns = append(snap.Columns, c)
	}
	return snap
}

func (snap snapshot) table() (*Table, error) {
	cols := make([]series.Series, len(snap.Columns))
	for i, c := range snap.Columns {
		typ := series.Type(c.Type)
		if kindOf(typ) == Continuous {
			cols[i] = series.New(c.Floats, typ, c.Name)
		} else {
			cols[i] = series.New(c.Strings, typ, c.Name)
		}
		if cols[i].Err != nil {
			return nil, errors.Wrapf(cols[i].Err, "column %q", c.Name)
		}
	}
	return FromDataFrame(dataframe.New(cols...))
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(name string) string {
	if filepath.Ext(name) == "" {
		name += ".gob"
	}
	return filepath.Join(s.Dir, name)
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// Load reads a table.
func (s *FileStore) Load(name string) (*Table, error) {
	path := s.path(name)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dataset %q", path)
	}
	defer func() { _ = f.Close() }()

	if isCSV(name) {
		t, err := ReadCSV(f)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read dataset %q", path)
		}
		return t, nil
	}

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, errors.Wrapf(err, "failed to decode dataset %q", path)
	}
	t, err := snap.table()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to rebuild dataset %q", path)
	}
	return t, nil
}

// Save writes a table, creating Dir when needed.
func (s *FileStore) Save(name string, t *Table) error {
	path := s.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %q", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create dataset %q", path)
	}

	if isCSV(name) {
		err = t.WriteCSV(f)
	} else {
		err = gob.NewEncoder(f).Encode(newSnapshot(t))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "failed to write dataset %q", path)
	}
	log.GetLoggerWithName("dataset").Debug("Saved table",
		log.PathKey, path, log.RowsKey, t.Nrow(), log.ColumnsKey, t.Ncol())
	return nil
}

// Preparer is the data preparation stage: load the raw table, apply Prepare, check
// the schema and persist the result. Nothing is written when any step fails.
type Preparer struct {
	Store     Store
	Rule      ExclusionRule
	Schema    Schema
	Raw       string
	Processed string
}

// Run executes the stage and returns the processed table.
func (p *Preparer) Run() (*Table, error) {
	raw, err := p.Store.Load(p.Raw)
	if err != nil {
		return nil, err
	}
	processed, err := Prepare(raw, p.Rule)
	if err != nil {
		return nil, err
	}
	if err := p.Schema.Validate(processed); err != nil {
		return nil, err
	}
	if err := p.Store.Save(p.Processed, processed); err != nil {
		return nil, err
	}
	return processed, nil
}
