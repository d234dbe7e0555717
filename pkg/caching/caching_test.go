package caching

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	c, err := NewCache(filepath.Join(t.TempDir(), "cache"), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}

	url := "https://example.com/article"
	if _, ok := c.Get(url); ok {
		t.Fatal("Get() hit on empty cache")
	}

	if err := c.Set(url, []byte("payload")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	data, ok := c.Get(url)
	if !ok {
		t.Fatal("Get() miss after Set()")
	}
	if string(data) != "payload" {
		t.Errorf("Get() = %q, want payload", data)
	}

	if err := c.Delete(url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := c.Get(url); ok {
		t.Error("Get() hit after Delete()")
	}
	if err := c.Delete(url); err != nil {
		t.Errorf("Delete() of missing entry error = %v", err)
	}
}

func TestCacheExpiry(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir, time.Minute)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}

	url := "https://example.com/old"
	if err := c.Set(url, []byte("stale")); err != nil {
		t.Fatal(err)
	}

	old := time.Now().Add(-2 * time.Minute)
	if err := os.Chtimes(filepath.Join(dir, c.key(url)), old, old); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get(url); ok {
		t.Error("Get() returned an expired entry")
	}
}
