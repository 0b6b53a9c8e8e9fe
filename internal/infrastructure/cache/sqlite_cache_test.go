package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/Abhishekkr6/teampulse-sub000/internal/infrastructure/persistence/sqlite/model"
)

func newTestCache(t *testing.T) *SQLiteCache {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "cache.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.KV{}); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	return NewSQLiteCache(db)
}

func TestCacheSetGet(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "repo:name:acme/api", `{"repoId":"repo-1"}`, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := c.Get(ctx, "repo:name:acme/api")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != `{"repoId":"repo-1"}` {
		t.Fatalf("got (%q, %v)", value, found)
	}

	if _, found, err := c.Get(ctx, "repo:name:other"); err != nil || found {
		t.Fatalf("unknown key = (%v, %v), want miss", found, err)
	}
}

func TestCacheOverwrite(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v1", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, "k", "v2", time.Minute); err != nil {
		t.Fatalf("second Set() error = %v", err)
	}

	value, found, err := c.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("Get() = (%v, %v)", found, err)
	}
	if value != "v2" {
		t.Fatalf("value = %q, want v2", value)
	}
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	if err := c.Set(ctx, "k", "v", 5*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, found, _ := c.Get(ctx, "k"); !found {
		t.Fatal("entry expired before its TTL")
	}

	current = current.Add(6 * time.Minute)
	if _, found, _ := c.Get(ctx, "k"); found {
		t.Fatal("entry readable past its TTL")
	}

	// Expired rows are deleted on read.
	var count int64
	if err := c.db.Model(&model.KV{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("got %d rows after expiry read, want 0", count)
	}
}

func TestCacheNoTTLNeverExpires(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	current = current.Add(1000 * time.Hour)
	if _, found, _ := c.Get(ctx, "k"); !found {
		t.Fatal("entry without TTL expired")
	}
}

func TestCacheDelete(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := c.Get(ctx, "k"); found {
		t.Fatal("deleted key still readable")
	}
}

func TestCacheRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	if _, _, err := c.Get(ctx, "  "); err == nil {
		t.Fatal("Get with blank key must error")
	}
	if err := c.Set(ctx, "", "v", 0); err == nil {
		t.Fatal("Set with empty key must error")
	}
}
