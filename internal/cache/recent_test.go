package cache

import "testing"

func TestObserveReportsDuplicates(t *testing.T) {
	c := NewRecentHashes(4)
	if c.Observe(1) {
		t.Error("first sighting reported as duplicate")
	}
	if !c.Observe(1) {
		t.Error("second sighting not reported as duplicate")
	}
}

func TestObserveEvictsOldestAtCapacity(t *testing.T) {
	c := NewRecentHashes(10)
	for h := uint64(0); h < 15; h++ {
		if c.Observe(h) {
			t.Errorf("hash %d reported as duplicate on first sighting", h)
		}
	}
	if c.Len() != 10 {
		t.Errorf("len = %d, want 10", c.Len())
	}
	// The oldest five were evicted and read as new again.
	for h := uint64(0); h < 5; h++ {
		if c.Observe(h) {
			t.Errorf("evicted hash %d still reported as duplicate", h)
		}
	}
	// The newest five are still resident.
	for h := uint64(10); h < 15; h++ {
		if !c.Observe(h) {
			t.Errorf("resident hash %d not reported as duplicate", h)
		}
	}
}

func TestObserveDuplicateDoesNotGrow(t *testing.T) {
	c := NewRecentHashes(3)
	c.Observe(7)
	c.Observe(7)
	c.Observe(7)
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}
