// Package store is the relational datastore behind the pipeline. The videos
// table is the only progress ledger: a row with a NULL transcript is pending
// work, anything else is done.
//
// Every operation opens its own connection and closes it before returning.
// Nothing is pooled or held across items.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"yt-transcripts-go/internal/types"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// ErrVideoNotFound is returned when an update matched no row.
var ErrVideoNotFound = errors.New("video not found")

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

type Store struct {
	driver  string
	dsn     string
	dialect Dialect
}

// New picks a driver from the connection string. postgres:// and postgresql://
// URLs (and key=value DSNs) go through pgx; sqlite:// and file: go through
// modernc sqlite.
func New(databaseURL string) (*Store, error) {
	u := strings.TrimSpace(databaseURL)
	switch {
	case u == "":
		return nil, errors.New("database url is empty")
	case strings.HasPrefix(u, "sqlite://"):
		return &Store{driver: "sqlite", dsn: strings.TrimPrefix(u, "sqlite://"), dialect: SQLite}, nil
	case strings.HasPrefix(u, "sqlite:"):
		return &Store{driver: "sqlite", dsn: strings.TrimPrefix(u, "sqlite:"), dialect: SQLite}, nil
	case strings.HasPrefix(u, "file:"):
		return &Store{driver: "sqlite", dsn: u, dialect: SQLite}, nil
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"), strings.Contains(u, "host="):
		return &Store{driver: "pgx", dsn: u, dialect: Postgres}, nil
	}
	return nil, fmt.Errorf("unsupported database url scheme: %q", redact(u))
}

func (s *Store) Dialect() Dialect { return s.dialect }

// withConn opens a single-connection handle, runs fn and closes it.
func (s *Store) withConn(ctx context.Context, fn func(db *sql.DB) error) error {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.dialect, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", s.dialect, err)
	}
	return fn(db)
}

// rebind turns ? placeholders into $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EnsureSchema creates videos, comments and llm_scores when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl, err := schemaFS.ReadFile("schema/" + s.dialect.String() + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	return s.withConn(ctx, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
		return nil
	})
}

// Filter narrows the pending list. StartDate is inclusive, EndDate exclusive, and
// ResumeFrom is a 1-based position in the full pending list.
type Filter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	ResumeFrom int
}

// ListPending returns videos whose transcript is NULL. Without a date range the
// order is by id; with one it is by publication time.
func (s *Store) ListPending(ctx context.Context, f Filter) ([]types.WorkItem, error) {
	query := `SELECT id, video_id, published_at FROM videos WHERE transcript IS NULL ORDER BY id`
	var args []any
	if f.StartDate != nil && f.EndDate != nil {
		query = `SELECT id, video_id, published_at FROM videos
			WHERE transcript IS NULL AND published_at >= ? AND published_at < ?
			ORDER BY published_at, id`
		args = append(args, f.StartDate.UTC(), f.EndDate.UTC())
	}

	var items []types.WorkItem
	err := s.withConn(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, s.rebind(query), args...)
		if err != nil {
			return fmt.Errorf("query pending videos: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				it  types.WorkItem
				pub sql.NullTime
			)
			if err := rows.Scan(&it.ID, &it.ExternalID, &pub); err != nil {
				return fmt.Errorf("scan pending video: %w", err)
			}
			if pub.Valid {
				t := pub.Time
				it.PublishedAt = &t
			}
			items = append(items, it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return Resume(items, f.ResumeFrom), nil
}

// Resume drops the first from-1 items. from <= 1 keeps everything.
func Resume(items []types.WorkItem, from int) []types.WorkItem {
	if from <= 1 {
		return items
	}
	if from-1 >= len(items) {
		return []types.WorkItem{}
	}
	return items[from-1:]
}

// WriteTranscript stores text on the row for videoID and commits immediately.
// There is no version check: the last writer wins.
func (s *Store) WriteTranscript(ctx context.Context, videoID, text string) error {
	return s.withConn(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, s.rebind(`UPDATE videos SET transcript = ? WHERE video_id = ?`), text, videoID)
		if err != nil {
			return fmt.Errorf("update transcript for %s: %w", videoID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update transcript for %s: %w", videoID, err)
		}
		if n == 0 {
			return fmt.Errorf("update transcript for %s: %w", videoID, ErrVideoNotFound)
		}
		return nil
	})
}

// SaveVideo inserts v and its comments in one transaction. An existing video
// is left untouched, comments included, and SaveVideo reports false.
func (s *Store) SaveVideo(ctx context.Context, v types.Video) (bool, error) {
	inserted := false
	err := s.withConn(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO videos (video_id, title, published_at, url, transcript)
			VALUES (?, ?, ?, ?, ?) ON CONFLICT (video_id) DO NOTHING`),
			v.VideoID, v.Title, v.PublishedAt.UTC(), v.URL, nullString(v.Transcript))
		if err != nil {
			return fmt.Errorf("insert video %s: %w", v.VideoID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert video %s: %w", v.VideoID, err)
		}
		if n == 0 {
			return nil
		}
		inserted = true

		for _, c := range v.Comments {
			if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO comments (video_id, author, text, published_at, like_count)
				VALUES (?, ?, ?, ?, ?)`),
				v.VideoID, c.Author, c.Text, c.PublishedAt.UTC(), c.LikeCount); err != nil {
				return fmt.Errorf("insert comment for %s: %w", v.VideoID, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// ScoringCorpus returns every non-null comment text and transcript with the day
// it was published. Rows without a publication time are skipped.
func (s *Store) ScoringCorpus(ctx context.Context) ([]types.DatedText, error) {
	queries := []string{
		`SELECT text, published_at FROM comments WHERE text IS NOT NULL ORDER BY id`,
		`SELECT transcript, published_at FROM videos WHERE transcript IS NOT NULL ORDER BY id`,
	}
	var out []types.DatedText
	err := s.withConn(ctx, func(db *sql.DB) error {
		for _, q := range queries {
			rows, err := db.QueryContext(ctx, q)
			if err != nil {
				return fmt.Errorf("query scoring corpus: %w", err)
			}
			for rows.Next() {
				var (
					text string
					pub  sql.NullTime
				)
				if err := rows.Scan(&text, &pub); err != nil {
					rows.Close()
					return fmt.Errorf("scan scoring corpus: %w", err)
				}
				if !pub.Valid {
					continue
				}
				out = append(out, types.DatedText{Date: Day(pub.Time), Text: text})
			}
			err = rows.Err()
			rows.Close()
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// InsertScores appends rows to llm_scores in one transaction.
func (s *Store) InsertScores(ctx context.Context, rows []types.ScoreRow) error {
	if len(rows) == 0 {
		return nil
	}
	return s.withConn(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO llm_scores (dt, text, sentiment, fairness, notes) VALUES (?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("prepare score insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, Day(r.Date), r.Text, r.Sentiment, r.Fairness, r.Notes); err != nil {
				return fmt.Errorf("insert score: %w", err)
			}
		}
		return tx.Commit()
	})
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// redact hides everything after the scheme so credentials never reach logs.
func redact(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		return u[:i+3] + "..."
	}
	if len(u) > 8 {
		return u[:8] + "..."
	}
	return u
}
