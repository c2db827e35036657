package cache

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMemoryGetSet(t *testing.T) {
	c := NewMemory(0)
	defer c.Stop()

	if _, found := c.Get("missing"); found {
		t.Error("expected miss for unknown key")
	}

	c.Set(SnapshotKey("IBM"), "value", time.Minute)
	v, found := c.Get(SnapshotKey("IBM"))
	if !found || v != "value" {
		t.Errorf("Get = %v, %v", v, found)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Sets != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.CurrentSize != 1 {
		t.Errorf("size = %d", stats.CurrentSize)
	}
}

func TestMemoryExpiration(t *testing.T) {
	c := NewMemory(0)
	defer c.Stop()

	c.Set("k", 42, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, found := c.Get("k"); found {
		t.Error("expected expired entry to miss")
	}
	if n := c.deleteExpired(); n != 1 {
		t.Errorf("deleteExpired = %d", n)
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("evictions = %d", c.Stats().Evictions)
	}
}

func TestMemoryDeleteAndClear(t *testing.T) {
	c := NewMemory(0)
	defer c.Stop()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Delete("a")
	if _, found := c.Get("a"); found {
		t.Error("deleted key still present")
	}

	c.Clear()
	if c.Stats().CurrentSize != 0 {
		t.Error("clear left entries behind")
	}
}

func TestStopTerminatesJanitor(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewMemory(10 * time.Millisecond)
	c.Set("k", 1, time.Millisecond)

	deadline := time.After(2 * time.Second)
	for c.Stats().Evictions == 0 {
		select {
		case <-deadline:
			t.Fatal("janitor never evicted the expired entry")
		case <-time.After(10 * time.Millisecond):
		}
	}

	c.Stop()
	c.Stop() // second call is a no-op
}

func TestNoOp(t *testing.T) {
	c := NewNoOp()
	c.Set("k", "v", time.Minute)
	if _, found := c.Get("k"); found {
		t.Error("noop cache must not store")
	}
}

func TestKeys(t *testing.T) {
	if SnapshotKey("IBM") != "snapshot:IBM" {
		t.Errorf("snapshot key = %q", SnapshotKey("IBM"))
	}
	if AnalysisKey("IBM:Q3 2026") != "analysis:IBM:Q3 2026" {
		t.Errorf("analysis key = %q", AnalysisKey("IBM:Q3 2026"))
	}
}
