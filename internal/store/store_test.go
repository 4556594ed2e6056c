package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/tenscan/internal/model"
)

func testRecord(id, link, title string, created time.Time) model.Record {
	return model.Record{
		ID:          id,
		Source:      "ria",
		Category:    model.CategoryMilitaryOperations,
		Title:       title,
		Content:     "content",
		Link:        link,
		ContentHash: "hash-" + id,
		Tension:     50,
		Spike:       20,
		Confidence:  0.9,
		Provenance:  model.ProvenanceAI,
		CreatedAt:   created,
	}
}

func TestTable_Validate(t *testing.T) {
	tests := []struct {
		table Table
		valid bool
	}{
		{Table{"ria", "military_operations"}, true},
		{Table{"lenta_ru", "all"}, true},
		{Table{"tass2", "other"}, true},
		{Table{"", "other"}, false},
		{Table{"Ria", "other"}, false},
		{Table{"1ria", "other"}, false},
		{Table{"ria; DROP TABLE x", "other"}, false},
		{Table{strings.Repeat("a", 33), "other"}, false},
		{Table{"ria", "weather"}, false},
		{Table{"ria", "other\"--"}, false},
	}

	for _, tt := range tests {
		err := tt.table.Validate()
		if tt.valid && err != nil {
			t.Errorf("Expected %v to be valid, got %v", tt.table, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidTable) {
			t.Errorf("Expected ErrInvalidTable for %v, got %v", tt.table, err)
		}
	}
}

func TestSourceName(t *testing.T) {
	tests := map[string]string{
		"ria":                "ria",
		"Lenta.ru":           "lenta_ru",
		"  RBC News ":        "rbc_news",
		"24tv":               "s_24tv",
		"":                   "s",
		strings.Repeat("x", 40): strings.Repeat("x", 32),
	}
	for in, want := range tests {
		got := SourceName(in)
		if got != want {
			t.Errorf("SourceName(%q) = %q, want %q", in, got, want)
		}
		if err := (Table{Source: got, Category: "all"}).Validate(); err != nil {
			t.Errorf("SourceName(%q) produced invalid source: %v", in, err)
		}
	}
}

func TestMemoryStore_InsertAndExists(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	table := CategoryTable("ria", model.CategoryMilitaryOperations)

	if err := s.Insert(ctx, table, testRecord("1", "https://ria.ru/1", "Первый", time.Now())); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	exists, err := s.ExistsByLink(ctx, table, "https://ria.ru/1")
	if err != nil || !exists {
		t.Errorf("Expected link to exist, got %v (err=%v)", exists, err)
	}

	exists, _ = s.ExistsByLink(ctx, RollupTable("ria"), "https://ria.ru/1")
	if exists {
		t.Error("Expected tables to be isolated")
	}

	err = s.Insert(ctx, table, testRecord("2", "https://ria.ru/1", "Другой заголовок", time.Now()))
	if !errors.Is(err, ErrDuplicateLink) {
		t.Errorf("Expected ErrDuplicateLink, got %v", err)
	}
}

func TestMemoryStore_InsertAllIsAllOrNothing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	rollup := RollupTable("ria")
	military := CategoryTable("ria", model.CategoryMilitaryOperations)
	humanitarian := CategoryTable("ria", model.CategoryHumanitarianCrisis)

	if err := s.InsertAll(ctx, testRecord("1", "https://ria.ru/1", "Первый", time.Now()), rollup, military); err != nil {
		t.Fatalf("InsertAll failed: %v", err)
	}
	for _, table := range []Table{rollup, military} {
		if exists, _ := s.ExistsByLink(ctx, table, "https://ria.ru/1"); !exists {
			t.Errorf("Expected link in %s", table)
		}
	}

	err := s.InsertAll(ctx, testRecord("2", "https://ria.ru/1", "Второй", time.Now()), rollup, humanitarian)
	if !errors.Is(err, ErrDuplicateLink) {
		t.Errorf("Expected ErrDuplicateLink, got %v", err)
	}
	if exists, _ := s.ExistsByLink(ctx, humanitarian, "https://ria.ru/1"); exists {
		t.Error("Expected nothing written when one table already holds the link")
	}

	err = s.InsertAll(ctx, testRecord("3", "https://ria.ru/3", "Третий", time.Now()), rollup, Table{"ria", "nope"})
	if !errors.Is(err, ErrInvalidTable) {
		t.Errorf("Expected ErrInvalidTable, got %v", err)
	}
	if exists, _ := s.ExistsByLink(ctx, rollup, "https://ria.ru/3"); exists {
		t.Error("Expected nothing written when a table is invalid")
	}
}

func TestMemoryStore_UpdateScoresNotFound(t *testing.T) {
	s := NewMemoryStore()
	err := s.UpdateScores(context.Background(), RollupTable("ria"), "missing", model.Scores{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_InvalidTable(t *testing.T) {
	s := NewMemoryStore()
	err := s.Insert(context.Background(), Table{"bad name", "other"}, testRecord("1", "l", "t", time.Now()))
	if !errors.Is(err, ErrInvalidTable) {
		t.Errorf("Expected ErrInvalidTable, got %v", err)
	}
	if _, err := s.ExistsByLink(context.Background(), Table{"ria", "nope"}, "l"); !errors.Is(err, ErrInvalidTable) {
		t.Errorf("Expected ErrInvalidTable, got %v", err)
	}
}

func TestMemoryStore_RecentWindowAndLimit(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()
	table := RollupTable("ria")

	_ = s.Insert(ctx, table, testRecord("old", "l-old", "Старый", now.Add(-10*24*time.Hour)))
	_ = s.Insert(ctx, table, testRecord("a", "l-a", "A", now.Add(-3*time.Hour)))
	_ = s.Insert(ctx, table, testRecord("b", "l-b", "B", now.Add(-1*time.Hour)))
	_ = s.Insert(ctx, table, testRecord("c", "l-c", "C", now.Add(-2*time.Hour)))

	refs, err := s.RecentTitles(ctx, table, 7*24*time.Hour, 2)
	if err != nil {
		t.Fatalf("RecentTitles failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("Expected 2 refs, got %d", len(refs))
	}
	if refs[0].Title != "B" || refs[1].Title != "C" {
		t.Errorf("Expected newest first [B C], got [%s %s]", refs[0].Title, refs[1].Title)
	}

	hashes, _ := s.RecentHashes(ctx, table, 7*24*time.Hour, 100)
	if len(hashes) != 3 {
		t.Errorf("Expected window to exclude old record, got %d hashes", len(hashes))
	}
	if hashes[0].Hash != "hash-b" {
		t.Errorf("Expected hash-b first, got %s", hashes[0].Hash)
	}

	n, _ := s.Count(ctx, Filter{Table: table})
	if n != 4 {
		t.Errorf("Expected count 4, got %d", n)
	}
	n, _ = s.Count(ctx, Filter{Table: table, Since: now.Add(-150 * time.Minute)})
	if n != 2 {
		t.Errorf("Expected count 2 since 150m ago, got %d", n)
	}
}

func TestMemoryStore_UpdateScores(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	table := RollupTable("ria")
	_ = s.Insert(ctx, table, testRecord("1", "l1", "t", time.Now()))

	if err := s.UpdateScores(ctx, table, "1", model.Scores{Tension: 77, Spike: 11}); err != nil {
		t.Fatalf("UpdateScores failed: %v", err)
	}
	records, _ := s.Recent(ctx, table, time.Time{}, 10)
	if records[0].Tension != 77 || records[0].Spike != 11 {
		t.Errorf("Expected updated scores, got %v/%v", records[0].Tension, records[0].Spike)
	}

	if err := s.UpdateScores(ctx, table, "missing", model.Scores{}); err == nil {
		t.Error("Expected error for missing record")
	}
	if tables := s.Tables(); len(tables) != 1 || tables[0] != table {
		t.Errorf("Expected one table, got %v", tables)
	}
}

func TestPostgresQueries(t *testing.T) {
	s := NewPostgresStoreWithDB(nil, 0)
	name, err := quotedName(CategoryTable("ria", model.CategoryMilitaryOperations))
	if err != nil {
		t.Fatalf("quotedName failed: %v", err)
	}
	if name != `"news_ria_military_operations"` {
		t.Errorf("Unexpected quoted name: %s", name)
	}

	rec := testRecord("0b6c7c8e-6a35-4d8e-9e3e-3a4d4c5b6a7f", "https://ria.ru/1", "t", time.Now())
	query, args, err := s.insertQuery(name, rec)
	if err != nil {
		t.Fatalf("insertQuery failed: %v", err)
	}
	if !strings.HasPrefix(query, `INSERT INTO "news_ria_military_operations"`) {
		t.Errorf("Unexpected insert: %s", query)
	}
	if !strings.Contains(query, "$17") || !strings.HasSuffix(query, "ON CONFLICT (link) DO NOTHING") {
		t.Errorf("Expected 17 placeholders and conflict clause: %s", query)
	}
	if hint, ok := args[len(args)-2].(sql.NullFloat64); !ok || hint.Valid {
		t.Errorf("Expected a NULL AI tension for a record without hints, got %v", args[len(args)-2])
	}
	if !strings.Contains(addHintColumnsSQL(name), "ADD COLUMN IF NOT EXISTS ai_spike") {
		t.Errorf("Unexpected upgrade statement: %s", addHintColumnsSQL(name))
	}
	if len(args) != len(recordColumns) {
		t.Errorf("Expected %d args, got %d", len(recordColumns), len(args))
	}
	if strings.Contains(query, "https://ria.ru/1") {
		t.Error("Expected values to be passed as arguments, not interpolated")
	}

	query, args, _ = s.recentRefsQuery(name, time.Now(), 1000)
	if !strings.Contains(query, "WHERE created_at >= $1") || !strings.Contains(query, "ORDER BY created_at DESC") || !strings.Contains(query, "LIMIT 1000") {
		t.Errorf("Unexpected recent query: %s", query)
	}
	if len(args) != 1 {
		t.Errorf("Expected 1 arg, got %d", len(args))
	}

	query, args, _ = s.countQuery(name, Filter{})
	if strings.Contains(query, "WHERE") || len(args) != 0 {
		t.Errorf("Expected unfiltered count, got %s %v", query, args)
	}

	query, args, _ = s.updateScoresQuery(name, "id-1", model.Scores{Tension: 1, Spike: 2})
	if !strings.HasPrefix(query, `UPDATE "news_ria_military_operations" SET tension_score = $1, spike_score = $2 WHERE id = $3`) {
		t.Errorf("Unexpected update: %s", query)
	}
	if len(args) != 3 {
		t.Errorf("Expected 3 args, got %d", len(args))
	}

	if _, err := quotedName(Table{"ria\"; DROP", "all"}); !errors.Is(err, ErrInvalidTable) {
		t.Errorf("Expected invalid table to be rejected before quoting, got %v", err)
	}
}

func TestNew_Drivers(t *testing.T) {
	s, err := New(context.Background(), model.StoreConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory driver: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("Expected *MemoryStore, got %T", s)
	}

	if _, err := New(context.Background(), model.StoreConfig{Driver: "postgres"}); err == nil {
		t.Error("Expected error for postgres without DSN")
	}
	if _, err := New(context.Background(), model.StoreConfig{Driver: "clickhouse"}); err == nil {
		t.Error("Expected error for unknown driver")
	}
}
