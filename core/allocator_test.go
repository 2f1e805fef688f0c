package core

import (
	"sync"
	"testing"
)

// TestJobAllocator_AllocateAndFree verifies the slot lifecycle
// Given: An allocator with capacity 2
// When: A job is allocated and freed
// Then: Status moves Live -> Released and LiveCount follows
func TestJobAllocator_AllocateAndFree(t *testing.T) {
	// Arrange
	a := NewJobAllocator(2)

	// Act
	job, id := a.AllocateJob()

	// Assert
	if !id.IsValid() {
		t.Fatal("AllocateJob returned InvalidJobID")
	}
	if job == nil || a.GetJobFromID(id) != job {
		t.Fatal("GetJobFromID did not return the allocated record")
	}
	if a.Status(id) != JobStatusLive || a.LiveCount() != 1 {
		t.Errorf("after allocate: status=%v live=%d, want live/1", a.Status(id), a.LiveCount())
	}

	a.FreeJob(id)

	if a.Status(id) != JobStatusReleased || a.LiveCount() != 0 {
		t.Errorf("after free: status=%v live=%d, want released/0", a.Status(id), a.LiveCount())
	}
}

// TestJobAllocator_ReuseChangesGeneration verifies stale handles are detected
// Given: A capacity-1 allocator whose only slot was freed and reallocated
// When: The old handle is used
// Then: Status is Released and GetJobFromID panics with ErrStaleJobID
func TestJobAllocator_ReuseChangesGeneration(t *testing.T) {
	// Arrange
	a := NewJobAllocator(1)
	_, first := a.AllocateJob()
	a.FreeJob(first)

	// Act
	_, second := a.AllocateJob()

	// Assert
	if first == second {
		t.Fatalf("reallocated slot returned the same handle %s", first)
	}
	if first.index() != second.index() {
		t.Errorf("index = %d, want reuse of %d", second.index(), first.index())
	}
	if a.Status(first) != JobStatusReleased {
		t.Errorf("Status(old) = %v, want released", a.Status(first))
	}
	expectPanicIs(t, ErrStaleJobID, func() { a.GetJobFromID(first) })
}

// TestJobAllocator_Misuse verifies fatal misuse conditions
// Given: An allocator
// When: It is exhausted, double freed, or given invalid handles
// Then: Each call panics with the matching sentinel
func TestJobAllocator_Misuse(t *testing.T) {
	a := NewJobAllocator(1)
	_, id := a.AllocateJob()

	expectPanicIs(t, ErrJobPoolExhausted, func() { a.AllocateJob() })
	expectPanicIs(t, ErrInvalidJobID, func() { a.GetJobFromID(InvalidJobID) })
	expectPanicIs(t, ErrInvalidJobID, func() { a.GetJobFromID(newJobID(5, 1)) })

	a.FreeJob(id)
	expectPanicIs(t, ErrStaleJobID, func() { a.FreeJob(id) })
}

// TestJobAllocator_Status_NeverIssued verifies unissued handles are distinguished
// Given: A fresh allocator
// When: Status is asked for handles never returned by AllocateJob
// Then: It reports NeverIssued
func TestJobAllocator_Status_NeverIssued(t *testing.T) {
	a := NewJobAllocator(4)

	for _, id := range []JobID{InvalidJobID, newJobID(0, 1), newJobID(9, 1)} {
		if got := a.Status(id); got != JobStatusNeverIssued {
			t.Errorf("Status(%s) = %v, want never_issued", id, got)
		}
	}
}

// TestJobAllocator_ConcurrentChurn verifies allocation is safe across goroutines
// Given: 8 goroutines sharing a small allocator
// When: Each allocates and frees 5000 times
// Then: No handle is handed out twice while live and LiveCount returns to 0
func TestJobAllocator_ConcurrentChurn(t *testing.T) {
	// Arrange
	a := NewJobAllocator(16)
	var owners sync.Map
	var wg sync.WaitGroup

	// Act
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5000 {
				_, id := a.AllocateJob()
				if prev, loaded := owners.LoadOrStore(id, g); loaded {
					t.Errorf("handle %s live in goroutines %v and %d", id, prev, g)
				}
				owners.Delete(id)
				a.FreeJob(id)
			}
		}()
	}
	wg.Wait()

	// Assert
	if a.LiveCount() != 0 {
		t.Errorf("LiveCount = %d, want 0", a.LiveCount())
	}
}

func TestJobID_String(t *testing.T) {
	if got := InvalidJobID.String(); got != "job(invalid)" {
		t.Errorf("InvalidJobID.String() = %q", got)
	}
	if got := newJobID(3, 7).String(); got != "job(3:7)" {
		t.Errorf("String() = %q, want job(3:7)", got)
	}
}
