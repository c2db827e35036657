package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
)

func newTestRedis(t *testing.T) *RedisCache {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedis(RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisRoundTrip(t *testing.T) {
	c := newTestRedis(t)

	type snapshot struct {
		Ticker   string  `json:"ticker"`
		RevenueM float64 `json:"revenue_m"`
	}

	c.Set(SnapshotKey("IBM"), snapshot{Ticker: "IBM", RevenueM: 15500}, time.Minute)

	raw, found := c.Get(SnapshotKey("IBM"))
	if !found {
		t.Fatal("expected hit")
	}

	var got snapshot
	if err := DecodeInto(raw, &got); err != nil {
		t.Fatalf("DecodeInto: %v", err)
	}
	if got.Ticker != "IBM" || got.RevenueM != 15500 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestRedisMissAndDelete(t *testing.T) {
	c := newTestRedis(t)

	if _, found := c.Get("missing"); found {
		t.Error("expected miss")
	}

	c.Set("k", "v", time.Minute)
	c.Delete("k")
	if _, found := c.Get("k"); found {
		t.Error("deleted key still present")
	}

	stats := c.Stats()
	if stats.Misses != 2 || stats.Sets != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRedisExpiration(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedis(RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer func() { _ = c.Close() }()

	c.Set("k", "v", 50*time.Millisecond)
	mr.FastForward(time.Second)

	if _, found := c.Get("k"); found {
		t.Error("expected expired key to miss")
	}
}

func TestRedisPing(t *testing.T) {
	c := newTestRedis(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	_, err := NewRedis(RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected connection error")
	}
}
