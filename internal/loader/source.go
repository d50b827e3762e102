package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"wallet_dashboard/internal/model"
	"wallet_dashboard/internal/repository"
)

// Source supplies the raw transaction table
type Source interface {
	Name() string
	Load(ctx context.Context) (*model.RawTable, error)
}

// CSVSource reads a CSV export with a header row
type CSVSource struct {
	Path string
}

// NewCSVSource creates a CSVSource for path
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Name() string { return "csv:" + s.Path }

// Load opens and parses the file
func (s *CSVSource) Load(ctx context.Context) (*model.RawTable, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	defer f.Close()

	table, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	return table, nil
}

// ReadCSV parses CSV data whose first record is the header. Header names are
// trimmed and lower-cased; empty cells become missing values.
func ReadCSV(ctx context.Context, r io.Reader) (*model.RawTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing CSV header")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column %q in CSV header", name)
		}
		seen[name] = struct{}{}
		columns[i] = name
	}

	table := &model.RawTable{Columns: columns, Rows: []model.RawRecord{}}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		row := make(model.RawRecord, len(columns))
		for i, v := range record {
			if v = strings.TrimSpace(v); v != "" {
				row[columns[i]] = v
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ConnectFunc opens the transaction repository
type ConnectFunc func(ctx context.Context) (repository.TransactionRepository, error)

// PostgresSource reads the wallet_transactions table. The repository is opened
// on first load; a failed connect is returned as a load error and retried on the
// next load.
type PostgresSource struct {
	connect ConnectFunc

	mu   sync.Mutex
	repo repository.TransactionRepository
}

// NewPostgresSource creates a PostgresSource backed by an open repo
func NewPostgresSource(repo repository.TransactionRepository) *PostgresSource {
	return &PostgresSource{repo: repo}
}

// NewLazyPostgresSource creates a PostgresSource that calls connect when it needs the database
func NewLazyPostgresSource(connect ConnectFunc) *PostgresSource {
	return &PostgresSource{connect: connect}
}

func (s *PostgresSource) Name() string { return "postgres:" + repository.TableName }

func (s *PostgresSource) Load(ctx context.Context) (*model.RawTable, error) {
	repo, err := s.repository(ctx)
	if err != nil {
		return nil, err
	}
	return repo.FindAll(ctx)
}

func (s *PostgresSource) repository(ctx context.Context) (repository.TransactionRepository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo != nil {
		return s.repo, nil
	}
	repo, err := s.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", repository.TableName, err)
	}
	s.repo = repo
	return repo, nil
}
