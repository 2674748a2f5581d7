package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agrosight/agrosight/internal/domain"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "v1" {
		t.Errorf("expected v1, got %q", val)
	}

	val, err = c.Get(ctx, "missing")
	if err != nil || val != nil {
		t.Errorf("expected nil, nil for miss, got %q, %v", val, err)
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k1", []byte("v1"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	val, err := c.Get(ctx, "k1")
	if err != nil || val != nil {
		t.Errorf("expected expired entry to miss, got %q, %v", val, err)
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache(3)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute)
	}

	if c.Len() != 3 {
		t.Errorf("expected 3 entries after eviction, got %d", c.Len())
	}

	// Oldest entries are gone
	if val, _ := c.Get(ctx, "k0"); val != nil {
		t.Error("expected k0 to be evicted")
	}
	if val, _ := c.Get(ctx, "k4"); val == nil {
		t.Error("expected k4 to survive")
	}
}

func TestLRUDelete(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k1", []byte("v1"), time.Minute)
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if val, _ := c.Get(ctx, "k1"); val != nil {
		t.Error("expected deleted entry to miss")
	}
}

func TestLRUCatalogRoundTrip(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	miss, err := c.GetCatalog(ctx)
	if err != nil || miss != nil {
		t.Fatalf("expected catalog miss, got %+v, %v", miss, err)
	}

	rules := []*domain.Rule{
		{Code: "R-1", Name: "Rule 1", Severity: domain.SeverityHigh, ActionType: domain.ActionAlert, IsActive: true},
		{Code: "R-2", Name: "Rule 2", Severity: domain.SeverityInfo, ActionType: domain.ActionNotification, IsActive: true},
	}
	if err := c.SetCatalog(ctx, rules, time.Minute); err != nil {
		t.Fatalf("SetCatalog failed: %v", err)
	}

	got, err := c.GetCatalog(ctx)
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	if len(got) != 2 || got[0].Code != "R-1" || got[1].Severity != domain.SeverityInfo {
		t.Errorf("catalog round-trip mismatch: %+v", got)
	}
}

func TestNewFactory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 5})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	if _, err := New(domain.CacheConfig{Type: "bogus"}); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}
