package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timestampLayout is fixed width so created_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const recordColumns = `id, created_at, source, status,
    primary_path, secondary_path, primary_fingerprint, secondary_fingerprint,
    primary_language, secondary_language, release_label,
    strategy, tolerance_ms, leftovers, format,
    primary_cues, secondary_cues, matched, leftover_cues, dropped_cues, skipped_blocks,
    output_path, output_bytes, duration_ms, error_message`

// Insert stores rec. A missing ID is filled with a fresh UUID and a zero
// CreatedAt with the current time; the stored record is returned.
func (s *Store) Insert(ctx context.Context, rec Record) (*Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.Source == "" {
		rec.Source = SourceManual
	}
	if !rec.Status.Valid() {
		return nil, fmt.Errorf("insert history record: invalid status %q", rec.Status)
	}

	_, err := s.execWithRetry(ctx,
		`INSERT INTO merges (`+recordColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CreatedAt.Format(timestampLayout),
		string(rec.Source),
		string(rec.Status),
		rec.PrimaryPath,
		rec.SecondaryPath,
		rec.PrimaryFingerprint,
		rec.SecondaryFingerprint,
		rec.PrimaryLanguage,
		rec.SecondaryLanguage,
		rec.ReleaseLabel,
		rec.Strategy,
		rec.ToleranceMs,
		rec.Leftovers,
		rec.Format,
		rec.PrimaryCues,
		rec.SecondaryCues,
		rec.Matched,
		rec.LeftoverCues,
		rec.DroppedCues,
		rec.SkippedBlocks,
		rec.OutputPath,
		rec.OutputBytes,
		rec.Duration.Milliseconds(),
		rec.Error,
	)
	if err != nil {
		return nil, fmt.Errorf("insert history record: %w", err)
	}
	return &rec, nil
}

// Get returns the record with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM merges WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get history record: %w", err)
	}
	return rec, nil
}

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	Limit  int
	Status Status
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + recordColumns + ` FROM merges`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Prune deletes records created before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM merges WHERE created_at < ?`,
		cutoff.UTC().Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// Summary counts records per status.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM merges GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("history summary: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		summary.Total += count
		switch Status(status) {
		case StatusSucceeded:
			summary.Succeeded += count
		case StatusRejected:
			summary.Rejected += count
		case StatusFailed:
			summary.Failed += count
		}
	}
	return summary, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec        Record
		createdRaw string
		source     string
		status     string
		durationMs int64
	)
	if err := scanner.Scan(
		&rec.ID,
		&createdRaw,
		&source,
		&status,
		&rec.PrimaryPath,
		&rec.SecondaryPath,
		&rec.PrimaryFingerprint,
		&rec.SecondaryFingerprint,
		&rec.PrimaryLanguage,
		&rec.SecondaryLanguage,
		&rec.ReleaseLabel,
		&rec.Strategy,
		&rec.ToleranceMs,
		&rec.Leftovers,
		&rec.Format,
		&rec.PrimaryCues,
		&rec.SecondaryCues,
		&rec.Matched,
		&rec.LeftoverCues,
		&rec.DroppedCues,
		&rec.SkippedBlocks,
		&rec.OutputPath,
		&rec.OutputBytes,
		&durationMs,
		&rec.Error,
	); err != nil {
		return nil, err
	}
	created, err := time.Parse(timestampLayout, createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdRaw, err)
	}
	rec.CreatedAt = created
	rec.Source = Source(source)
	rec.Status = Status(status)
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	return &rec, nil
}
