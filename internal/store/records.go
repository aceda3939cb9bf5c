package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"anefwatch/internal/types"
)

// Columns names the client sheet headers the engine reads and writes.
type Columns struct {
	AccountID   string // optional; the row position is used when absent
	DisplayName string
	Username    string
	Password    string
	Email       string
	Phone       string
	Status      string
}

// DefaultColumns matches the firm's cleaned client export.
func DefaultColumns() Columns {
	return Columns{
		DisplayName: "웃 Client Name",
		Username:    "Identifiant",
		Password:    "Mot_de_passe",
		Email:       "Email",
		Phone:       "Mobile",
		Status:      "Commentaire robot",
	}
}

// RecordStore is a client sheet held in memory. Every column and row is
// preserved on Save; only the status column is ever modified.
type RecordStore struct {
	mu     sync.Mutex
	cols   Columns
	header []string
	rows   [][]string
	index  map[string]int
}

// LoadCSV reads a client sheet from path.
func LoadCSV(path string, cols Columns) (*RecordStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, cols)
}

// ReadCSV reads a client sheet. The status column is added when missing.
func ReadCSV(r io.Reader, cols Columns) (*RecordStore, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("records file is empty")
	}

	header := all[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	s := &RecordStore{cols: cols, header: header, rows: all[1:], index: make(map[string]int, len(header))}
	for i, name := range header {
		s.index[strings.TrimSpace(name)] = i
	}

	for _, required := range []string{cols.Username, cols.Password} {
		if _, ok := s.index[required]; !ok {
			return nil, fmt.Errorf("records file has no %q column", required)
		}
	}
	if _, ok := s.index[cols.Status]; !ok {
		s.index[cols.Status] = len(s.header)
		s.header = append(s.header, cols.Status)
	}

	width := len(s.header)
	for i, row := range s.rows {
		if len(row) < width {
			s.rows[i] = append(row, make([]string, width-len(row))...)
		}
	}
	return s, nil
}

// Len returns the number of data rows.
func (s *RecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Records returns every row as a credential record, in file order. Rows with
// missing credentials are included; the orchestrator filters them.
func (s *RecordStore) Records() []types.CredentialRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]types.CredentialRecord, 0, len(s.rows))
	for i, row := range s.rows {
		rec := types.CredentialRecord{
			AccountID:   s.cell(row, s.cols.AccountID),
			DisplayName: s.cell(row, s.cols.DisplayName),
			Username:    s.cell(row, s.cols.Username),
			Password:    s.cell(row, s.cols.Password),
			Email:       s.cell(row, s.cols.Email),
			Phone:       s.cell(row, s.cols.Phone),
			Row:         i,
		}
		if rec.AccountID == "" {
			rec.AccountID = strconv.Itoa(i)
		}
		records = append(records, rec)
	}
	return records
}

// SetStatus writes the status message of a record; empty clears it.
func (s *RecordStore) SetStatus(rec types.CredentialRecord, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Row < 0 || rec.Row >= len(s.rows) {
		return
	}
	s.rows[rec.Row][s.index[s.cols.Status]] = message
}

// Status returns the status message of a row.
func (s *RecordStore) Status(row int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row < 0 || row >= len(s.rows) {
		return ""
	}
	return s.rows[row][s.index[s.cols.Status]]
}

// Save writes the sheet, status column included, to path.
func (s *RecordStore) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(s.header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(s.rows); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return f.Close()
}

// cell returns a cleaned value; spreadsheet "nan" placeholders read as empty.
func (s *RecordStore) cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	i, ok := s.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

// UpdatedPath returns where the updated copy of input is saved.
func UpdatedPath(input, resultsDir string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(resultsDir, base+"_UPDATED.csv")
}
