package feedhistory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// sqlStore is the shared implementation behind the sqlite and
// postgres backends; only schema creation and the placeholder format
// differ between them.
type sqlStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS feed_history (
	id           INTEGER PRIMARY KEY,
	kind         TEXT NOT NULL,
	url          TEXT NOT NULL,
	sha256       TEXT NOT NULL,
	retrieved_at TIMESTAMP NOT NULL,
	download_ms  BIGINT NOT NULL,
	parse_ms     BIGINT NOT NULL,
	success      BOOLEAN NOT NULL,
	error        TEXT NOT NULL
)`

func (s *sqlStore) Record(ctx context.Context, rec Record) error {
	_, err := s.builder.Insert("feed_history").
		Columns("kind", "url", "sha256", "retrieved_at", "download_ms", "parse_ms", "success", "error").
		Values(rec.Kind, rec.URL, rec.SHA256, rec.RetrievedAt, rec.DownloadMS, rec.ParseMS, rec.Success, rec.Error).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("feedhistory: recording: %w", err)
	}
	return nil
}

func (s *sqlStore) Recent(ctx context.Context, kind FeedKind, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.builder.Select("id", "kind", "url", "sha256", "retrieved_at", "download_ms", "parse_ms", "success", "error").
		From("feed_history").
		Where(sq.Eq{"kind": kind}).
		OrderBy("retrieved_at DESC").
		Limit(uint64(limit)).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("feedhistory: querying recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var retrievedAt time.Time
		if err := rows.Scan(&r.ID, &r.Kind, &r.URL, &r.SHA256, &retrievedAt, &r.DownloadMS, &r.ParseMS, &r.Success, &r.Error); err != nil {
			return nil, fmt.Errorf("feedhistory: scanning row: %w", err)
		}
		r.RetrievedAt = retrievedAt
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqlStore) LastSuccess(ctx context.Context, kind FeedKind) (Record, bool, error) {
	rows, err := s.Recent(ctx, kind, 0)
	if err != nil {
		return Record{}, false, err
	}
	for _, r := range rows {
		if r.Success {
			return r, true, nil
		}
	}
	return Record{}, false, nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
