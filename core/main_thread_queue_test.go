package core

import "testing"

// TestMainThreadQueue_FIFO verifies ordering and Clear
// Given: A main-thread queue with three jobs
// When: One is popped and the rest cleared
// Then: Pop returns the first, Clear returns the remainder in order
func TestMainThreadQueue_FIFO(t *testing.T) {
	// Arrange
	q := NewMainThreadQueue()
	q.Push(1)
	q.Push(2)
	q.Push(3)

	// Act
	first, ok := q.Pop()
	rest := q.Clear()

	// Assert
	if !ok || first != 1 {
		t.Errorf("Pop() = %v,%v, want 1,true", first, ok)
	}
	if len(rest) != 2 || rest[0] != 2 || rest[1] != 3 {
		t.Errorf("Clear() = %v, want [2 3]", rest)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
	if id, ok := q.Pop(); ok || id != InvalidJobID {
		t.Errorf("Pop() on empty = %v,%v", id, ok)
	}
}
