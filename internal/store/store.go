// Package store persists scored articles into (source, category) tables.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/tenscan/internal/model"
)

var (
	// ErrDuplicateLink is returned when a link already exists in the table
	ErrDuplicateLink = errors.New("link already stored")

	// ErrNotFound is returned when an update matches no record
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTable is returned for table names that fail validation
	ErrInvalidTable = errors.New("invalid table")
)

// RollupCategory names the per-source table holding every category
const RollupCategory = "all"

var sourcePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// Table is one (source, category) partition of the store
type Table struct {
	Source   string
	Category string
}

// CategoryTable returns the partition for a source and category
func CategoryTable(source string, category model.Category) Table {
	return Table{Source: source, Category: string(category)}
}

// RollupTable returns the per-source partition that receives every article
func RollupTable(source string) Table {
	return Table{Source: source, Category: RollupCategory}
}

// Validate checks the source against a strict identifier pattern and the
// category against the closed enumeration
func (t Table) Validate() error {
	if !sourcePattern.MatchString(t.Source) {
		return fmt.Errorf("%w: source %q", ErrInvalidTable, t.Source)
	}
	if t.Category == RollupCategory {
		return nil
	}
	if !model.Category(t.Category).Valid() {
		return fmt.Errorf("%w: category %q", ErrInvalidTable, t.Category)
	}
	return nil
}

// Name is the physical table name; only call it on a validated table
func (t Table) Name() string {
	return "news_" + t.Source + "_" + t.Category
}

func (t Table) String() string {
	return t.Source + "/" + t.Category
}

// SourceName converts a parser name into a valid table source
// ("Lenta.ru" -> "lenta_ru")
func SourceName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		s = "s_" + s
	}
	if len(s) > 32 {
		s = s[:32]
	}
	return strings.TrimRight(s, "_")
}

// Filter selects records for Count
type Filter struct {
	Table Table

	// Since excludes records created before it when non-zero
	Since time.Time
}

// Store is an append-only, indexable article log
type Store interface {
	// Insert adds a record; ErrDuplicateLink if the link is already present
	Insert(ctx context.Context, table Table, rec model.Record) error

	// InsertAll adds rec to every table or to none. ErrDuplicateLink if
	// any of them already holds the link.
	InsertAll(ctx context.Context, rec model.Record, tables ...Table) error

	ExistsByLink(ctx context.Context, table Table, link string) (bool, error)

	// RecentTitles returns up to limit records created within window, newest first
	RecentTitles(ctx context.Context, table Table, window time.Duration, limit int) ([]model.Ref, error)

	// RecentHashes returns up to limit content hashes created within window, newest first
	RecentHashes(ctx context.Context, table Table, window time.Duration, limit int) ([]model.Ref, error)

	Count(ctx context.Context, filter Filter) (int, error)

	// Recent returns up to limit full records created since the given time, newest first
	Recent(ctx context.Context, table Table, since time.Time, limit int) ([]model.Record, error)

	// UpdateScores rewrites the derived scores of a record; the only permitted mutation
	UpdateScores(ctx context.Context, table Table, id string, scores model.Scores) error

	Close() error
}

// New opens the configured store
func New(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory", "":
		return NewMemoryStore(), nil
	case "postgres", "postgresql":
		pg, err := NewPostgresStore(ctx, cfg.DSN, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s (supported: memory, postgres)", cfg.Driver)
	}
}
