package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/ppiankov/tenscan/internal/model"
)

// PostgresStore keeps one physical table per (source, category).
// Table names are validated and quoted; all values go through placeholders.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
	psql    sq.StatementBuilderType
	now     func() time.Time

	mu      sync.Mutex
	ensured map[string]bool
}

var _ Store = (*PostgresStore)(nil)

var recordColumns = []string{
	"id", "source", "category", "title", "content", "link", "rubric", "content_hash",
	"tension_score", "spike_score", "confidence", "provenance", "reasoning",
	"published_at", "created_at", "ai_tension", "ai_spike",
}

// NewPostgresStore opens and pings a Postgres database
func NewPostgresStore(ctx context.Context, dsn string, timeout time.Duration) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store requires store.dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	s := NewPostgresStoreWithDB(db, timeout)
	pingCtx, cancel := s.ctx(ctx)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return s, nil
}

// NewPostgresStoreWithDB wraps an open database
func NewPostgresStoreWithDB(db *sql.DB, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresStore{
		db:      db,
		timeout: timeout,
		psql:    sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now:     time.Now,
		ensured: make(map[string]bool),
	}
}

func (s *PostgresStore) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.timeout)
}

// quotedName validates table and returns its quoted identifier
func quotedName(table Table) (string, error) {
	if err := table.Validate(); err != nil {
		return "", err
	}
	return pq.QuoteIdentifier(table.Name()), nil
}

func createTableSQL(name string) string {
	return `CREATE TABLE IF NOT EXISTS ` + name + ` (
	id UUID PRIMARY KEY,
	source TEXT NOT NULL,
	category TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	link TEXT NOT NULL UNIQUE,
	rubric TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	tension_score DOUBLE PRECISION NOT NULL,
	spike_score DOUBLE PRECISION NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	provenance TEXT NOT NULL,
	reasoning TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	ai_tension DOUBLE PRECISION,
	ai_spike DOUBLE PRECISION
)`
}

// addHintColumnsSQL upgrades tables created before the AI hint columns
func addHintColumnsSQL(name string) string {
	return `ALTER TABLE ` + name + ` ADD COLUMN IF NOT EXISTS ai_tension DOUBLE PRECISION, ADD COLUMN IF NOT EXISTS ai_spike DOUBLE PRECISION`
}

// ensure creates the table on first use
func (s *PostgresStore) ensure(ctx context.Context, table Table) (string, error) {
	name, err := quotedName(table)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured[name] {
		return name, nil
	}

	if _, err := s.db.ExecContext(ctx, createTableSQL(name)); err != nil {
		return "", fmt.Errorf("create table %s: %w", table, err)
	}
	if _, err := s.db.ExecContext(ctx, addHintColumnsSQL(name)); err != nil {
		return "", fmt.Errorf("upgrade table %s: %w", table, err)
	}
	index := pq.QuoteIdentifier(table.Name() + "_created_at_idx")
	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS `+index+` ON `+name+` (created_at DESC)`); err != nil {
		return "", fmt.Errorf("create index %s: %w", table, err)
	}
	s.ensured[name] = true
	return name, nil
}

func (s *PostgresStore) insertQuery(name string, rec model.Record) (string, []interface{}, error) {
	var published sql.NullTime
	if !rec.PublishedAt.IsZero() {
		published = sql.NullTime{Time: rec.PublishedAt, Valid: true}
	}
	return s.psql.Insert(name).
		Columns(recordColumns...).
		Values(
			rec.ID, rec.Source, string(rec.Category), rec.Title, rec.Content, rec.Link, rec.Rubric,
			rec.ContentHash, rec.Tension, rec.Spike, rec.Confidence, string(rec.Provenance),
			rec.Reasoning, published, rec.CreatedAt, nullFloat(rec.AITension), nullFloat(rec.AISpike),
		).
		Suffix("ON CONFLICT (link) DO NOTHING").
		ToSql()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// Insert adds a record
func (s *PostgresStore) Insert(ctx context.Context, table Table, rec model.Record) error {
	return s.InsertAll(ctx, rec, table)
}

// InsertAll adds rec to every table in one transaction
func (s *PostgresStore) InsertAll(ctx context.Context, rec model.Record, tables ...Table) (err error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	names := make([]string, len(tables))
	for i, table := range tables {
		if names[i], err = s.ensure(ctx, table); err != nil {
			return err
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, table := range tables {
		query, args, err := s.insertQuery(names[i], rec)
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s in %s", ErrDuplicateLink, rec.Link, table)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// ExistsByLink reports whether link is stored in table
func (s *PostgresStore) ExistsByLink(ctx context.Context, table Table, link string) (bool, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	name, err := s.ensure(ctx, table)
	if err != nil {
		return false, err
	}

	query, args, err := s.psql.Select("1").From(name).Where(sq.Eq{"link": link}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query %s: %w", table, err)
	}
	return true, nil
}

func (s *PostgresStore) recentRefsQuery(name string, since time.Time, limit int) (string, []interface{}, error) {
	q := s.psql.Select("link", "title", "content_hash").
		From(name).
		Where(sq.GtOrEq{"created_at": since}).
		OrderBy("created_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q.ToSql()
}

// RecentTitles returns recent titles, newest first
func (s *PostgresStore) RecentTitles(ctx context.Context, table Table, window time.Duration, limit int) ([]model.Ref, error) {
	return s.recentRefs(ctx, table, window, limit)
}

// RecentHashes returns recent content hashes, newest first
func (s *PostgresStore) RecentHashes(ctx context.Context, table Table, window time.Duration, limit int) ([]model.Ref, error) {
	return s.recentRefs(ctx, table, window, limit)
}

func (s *PostgresStore) recentRefs(ctx context.Context, table Table, window time.Duration, limit int) ([]model.Ref, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	name, err := s.ensure(ctx, table)
	if err != nil {
		return nil, err
	}

	query, args, err := s.recentRefsQuery(name, s.now().Add(-window), limit)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var refs []model.Ref
	for rows.Next() {
		var ref model.Ref
		if err := rows.Scan(&ref.Link, &ref.Title, &ref.Hash); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return refs, nil
}

func (s *PostgresStore) countQuery(name string, filter Filter) (string, []interface{}, error) {
	q := s.psql.Select("COUNT(*)").From(name)
	if !filter.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": filter.Since})
	}
	return q.ToSql()
}

// Count returns the number of matching records
func (s *PostgresStore) Count(ctx context.Context, filter Filter) (int, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	name, err := s.ensure(ctx, filter.Table)
	if err != nil {
		return 0, err
	}

	query, args, err := s.countQuery(name, filter)
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", filter.Table, err)
	}
	return n, nil
}

// Recent returns full records, newest first
func (s *PostgresStore) Recent(ctx context.Context, table Table, since time.Time, limit int) ([]model.Record, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	name, err := s.ensure(ctx, table)
	if err != nil {
		return nil, err
	}

	q := s.psql.Select(recordColumns...).From(name).OrderBy("created_at DESC")
	if !since.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": since})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.Record
	for rows.Next() {
		var (
			rec        model.Record
			category   string
			provenance string
			published  sql.NullTime
			aiTension  sql.NullFloat64
			aiSpike    sql.NullFloat64
		)
		if err := rows.Scan(
			&rec.ID, &rec.Source, &category, &rec.Title, &rec.Content, &rec.Link, &rec.Rubric,
			&rec.ContentHash, &rec.Tension, &rec.Spike, &rec.Confidence, &provenance,
			&rec.Reasoning, &published, &rec.CreatedAt, &aiTension, &aiSpike,
		); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		rec.Category = model.Category(category)
		rec.Provenance = model.Provenance(provenance)
		rec.AITension = floatPtr(aiTension)
		rec.AISpike = floatPtr(aiSpike)
		if published.Valid {
			rec.PublishedAt = published.Time
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) updateScoresQuery(name, id string, scores model.Scores) (string, []interface{}, error) {
	return s.psql.Update(name).
		Set("tension_score", scores.Tension).
		Set("spike_score", scores.Spike).
		Where(sq.Eq{"id": id}).
		ToSql()
}

// UpdateScores rewrites a record's scores
func (s *PostgresStore) UpdateScores(ctx context.Context, table Table, id string, scores model.Scores) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	name, err := s.ensure(ctx, table)
	if err != nil {
		return err
	}

	query, args, err := s.updateScoresQuery(name, id, scores)
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s in %s", ErrNotFound, id, table)
	}
	return nil
}

// Close closes the database
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
