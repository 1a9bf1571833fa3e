// Package history persists a summary of every analysis so recent results can
// be listed newest-first. PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite)
// share one schema shape; timestamps are stored as Unix milliseconds.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/wordfreq"
	apperrors "github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/postgres"
	_ "modernc.org/sqlite"
)

// Record is one persisted analysis summary.
type Record struct {
	ID             int64                `json:"id" yaml:"id"`
	Preview        string               `json:"preview" yaml:"preview"`
	Tone           string               `json:"tone" yaml:"tone"`
	Polarity       float64              `json:"polarity" yaml:"polarity"`
	Subjectivity   float64              `json:"subjectivity" yaml:"subjectivity"`
	SourceLanguage string               `json:"source_language,omitempty" yaml:"source_language,omitempty"`
	Translated     bool                 `json:"translated" yaml:"translated"`
	TokenCount     int                  `json:"token_count" yaml:"token_count"`
	TopWords       wordfreq.Frequencies `json:"top_words" yaml:"top_words"`
	CreatedAt      time.Time            `json:"created_at" yaml:"created_at"`
}

// Store reads and writes analysis_history.
type Store struct {
	db      *sql.DB
	dialect dialect
	maxList int
	now     func() time.Time
	logger  *slog.Logger
}

// NewPostgres builds a Store on an open postgres client.
func NewPostgres(client *postgres.Client, maxList int) *Store {
	return newStore(client.DB, postgresDialect, maxList)
}

// OpenSQLite opens (or creates) the SQLite database at path. Use ":memory:"
// for a throwaway database.
func OpenSQLite(path string, maxList int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite %s: %w", path, err)
	}
	return newStore(db, sqliteDialect, maxList), nil
}

func newStore(db *sql.DB, d dialect, maxList int) *Store {
	if maxList <= 0 {
		maxList = 100
	}
	return &Store{
		db:      db,
		dialect: d,
		maxList: maxList,
		now:     time.Now,
		logger:  logger.WithComponent("history-store").With("driver", d.name),
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating %s schema: %w", s.dialect.name, err)
		}
	}
	s.logger.Info("history schema ready")
	return nil
}

// Save inserts rec, filling in its ID and CreatedAt.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	words := rec.TopWords
	if words == nil {
		words = wordfreq.Frequencies{}
	}
	data, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("marshaling top words: %w", err)
	}
	created := s.now().UTC().Truncate(time.Millisecond)

	err = s.db.QueryRowContext(ctx, s.dialect.rebind(
		`INSERT INTO analysis_history
			(preview, tone, polarity, subjectivity, source_language, translated, token_count, top_words, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		rec.Preview, rec.Tone, rec.Polarity, rec.Subjectivity, rec.SourceLanguage,
		rec.Translated, rec.TokenCount, string(data), created.UnixMilli(),
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("saving analysis record: %w", err)
	}
	rec.CreatedAt = created
	s.logger.Debug("analysis record saved", "id", rec.ID, "tone", rec.Tone)
	return nil
}

const selectColumns = `id, preview, tone, polarity, subjectivity, source_language, translated, token_count, top_words, created_at`

// List returns up to limit records, newest first. limit is clamped to the
// configured maximum.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > s.maxList {
		limit = s.maxList
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT `+selectColumns+` FROM analysis_history ORDER BY created_at DESC, id DESC LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing analysis history: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get loads a single record by id.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT `+selectColumns+` FROM analysis_history WHERE id = ?`), id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.ErrNotFound, 404, "analysis %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec     Record
		words   string
		created int64
	)
	err := row.Scan(
		&rec.ID, &rec.Preview, &rec.Tone, &rec.Polarity, &rec.Subjectivity,
		&rec.SourceLanguage, &rec.Translated, &rec.TokenCount, &words, &created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scanning analysis record: %w", err)
	}
	if err := json.Unmarshal([]byte(words), &rec.TopWords); err != nil {
		return rec, fmt.Errorf("decoding top words of record %d: %w", rec.ID, err)
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return rec, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}
