package gormrepository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/datatypes"

	"tradewatch/internal/config"
	"tradewatch/internal/db"
	"tradewatch/internal/models"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	store, err := db.Open(config.DBConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close(store) })
	if err := db.AutoMigrate(store); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(store.Gorm)
}

func TestPreferenceUpsert(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.UpsertPreference(ctx, &models.Preference{
		Key:   "theme",
		Value: datatypes.JSON(`"dark"`),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.UpsertPreference(ctx, &models.Preference{
		Key:   "theme",
		Value: datatypes.JSON(`"light"`),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	pref, err := repo.GetPreference(ctx, "theme")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if pref == nil {
		t.Fatalf("preference missing after upsert")
	}
	if string(pref.Value) != `"light"` {
		t.Fatalf("value=%s want=%q", pref.Value, "light")
	}

	prefs, err := repo.ListPreferences(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(prefs) != 1 {
		t.Fatalf("preferences=%d want=1, upsert must not duplicate", len(prefs))
	}
}

func TestGetPreferenceMissingIsNilNil(t *testing.T) {
	repo := testRepo(t)
	pref, err := repo.GetPreference(context.Background(), "absent")
	if err != nil {
		t.Fatalf("err=%v want=nil", err)
	}
	if pref != nil {
		t.Fatalf("pref=%+v want=nil", pref)
	}
}

func TestRecentSearchDedupe(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, term := range []string{"btc", "eth", "btc"} {
		if err := repo.AddRecentSearch(ctx, term, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("add %q: %v", term, err)
		}
	}

	searches, err := repo.RecentSearches(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(searches) != 2 {
		t.Fatalf("searches=%d want=2, re-search must move not duplicate", len(searches))
	}
	if searches[0].Term != "btc" || searches[1].Term != "eth" {
		t.Fatalf("order=[%s %s] want=[btc eth]", searches[0].Term, searches[1].Term)
	}
}

func TestAddRecentSearchIgnoresBlank(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	if err := repo.AddRecentSearch(ctx, "   ", time.Time{}); err != nil {
		t.Fatalf("blank term: %v", err)
	}
	searches, err := repo.RecentSearches(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(searches) != 0 {
		t.Fatalf("searches=%d want=0", len(searches))
	}
}

func TestPruneRecentSearches(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	terms := []string{"a", "b", "c", "d", "e"}
	for i, term := range terms {
		if err := repo.AddRecentSearch(ctx, term, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("add %q: %v", term, err)
		}
	}

	removed, err := repo.PruneRecentSearches(ctx, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed=%d want=3", removed)
	}

	searches, err := repo.RecentSearches(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(searches) != 2 {
		t.Fatalf("searches=%d want=2", len(searches))
	}
	if searches[0].Term != "e" || searches[1].Term != "d" {
		t.Fatalf("kept=[%s %s] want newest [e d]", searches[0].Term, searches[1].Term)
	}
}

func TestClearRecentSearches(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.AddRecentSearch(ctx, "btc", time.Now().UTC()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := repo.ClearRecentSearches(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	searches, err := repo.RecentSearches(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(searches) != 0 {
		t.Fatalf("searches=%d want=0 after clear", len(searches))
	}
}
