package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"f95-engagement/models"
)

// PostgresWriter stores pass snapshots in PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS engagement_passes (
			id            SERIAL PRIMARY KEY,
			page_url      TEXT          NOT NULL,
			listing_count INTEGER       NOT NULL DEFAULT 0,
			average_score NUMERIC(8,2)  NOT NULL DEFAULT 0,
			scanned_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS engagement_listings (
			id        SERIAL PRIMARY KEY,
			pass_id   INTEGER       NOT NULL REFERENCES engagement_passes(id) ON DELETE CASCADE,
			thread_id TEXT          NOT NULL DEFAULT '',
			title     TEXT          NOT NULL,
			tags      INTEGER[]     NOT NULL DEFAULT '{}',
			views     DOUBLE PRECISION NOT NULL DEFAULT 0,
			likes     DOUBLE PRECISION NOT NULL DEFAULT 0,
			rating    NUMERIC(4,2),
			score     NUMERIC(8,2)  NOT NULL,
			tier      SMALLINT      NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_engagement_listings_pass   ON engagement_listings(pass_id);
		CREATE INDEX IF NOT EXISTS idx_engagement_listings_thread ON engagement_listings(thread_id);
		CREATE INDEX IF NOT EXISTS idx_engagement_listings_tier   ON engagement_listings(tier);
	`)
	return err
}

// WritePass stores the pass header and all its listings in one transaction.
func (pw *PostgresWriter) WritePass(ctx context.Context, report *models.PassReport) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var passID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO engagement_passes (page_url, listing_count, average_score, scanned_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, report.PageURL, len(report.Listings), report.AverageScore, report.ScannedAt).Scan(&passID)
	if err != nil {
		return fmt.Errorf("postgres: insert pass: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(report.Listings); i += batchSize {
		end := i + batchSize
		if end > len(report.Listings) {
			end = len(report.Listings)
		}
		if err := insertBatch(ctx, tx, passID, report.Listings[i:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertBatch(ctx context.Context, tx *sql.Tx, passID int64, batch []*models.ScoredListing) error {
	const cols = 9
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, l := range batch {
		base := idx * cols
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))

		var rating sql.NullFloat64
		if l.Record.Rating != nil {
			rating = sql.NullFloat64{Float64: *l.Record.Rating, Valid: true}
		}
		tags := make([]int64, len(l.Record.Tags))
		for i, t := range l.Record.Tags {
			tags[i] = int64(t)
		}

		valueArgs = append(valueArgs,
			passID, l.Record.ThreadID, l.Record.Title, pq.Array(tags),
			l.Record.Views, l.Record.Likes, rating, l.Score.Total, int(l.Score.Tier))
	}

	query := fmt.Sprintf(`
		INSERT INTO engagement_listings
			(pass_id, thread_id, title, tags, views, likes, rating, score, tier)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert listings: %w", err)
	}
	return nil
}

// FetchLatestPass loads the most recent pass with its listings. It returns
// nil when nothing has been stored yet.
func (pw *PostgresWriter) FetchLatestPass(ctx context.Context) (*models.PassReport, error) {
	report := &models.PassReport{}
	var passID int64
	err := pw.db.QueryRowContext(ctx, `
		SELECT id, page_url, average_score, scanned_at
		FROM engagement_passes
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&passID, &report.PageURL, &report.AverageScore, &report.ScannedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch pass: %w", err)
	}

	rows, err := pw.db.QueryContext(ctx, `
		SELECT thread_id, title, tags, views, likes, rating, score, tier
		FROM engagement_listings
		WHERE pass_id = $1
		ORDER BY id
	`, passID)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch listings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		l := &models.ScoredListing{}
		var (
			tags   pq.Int64Array
			rating sql.NullFloat64
			tier   int
		)
		if err := rows.Scan(
			&l.Record.ThreadID, &l.Record.Title, &tags, &l.Record.Views,
			&l.Record.Likes, &rating, &l.Score.Total, &tier,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		l.Record.Tags = make([]int, len(tags))
		for i, t := range tags {
			l.Record.Tags[i] = int(t)
		}
		if rating.Valid {
			r := rating.Float64
			l.Record.Rating = &r
		}
		l.Score.Tier = models.Tier(tier)
		report.Listings = append(report.Listings, l)
	}
	return report, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
