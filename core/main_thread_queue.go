package core

import (
	"sync"

	"github.com/eapache/queue"
)

// MainThreadQueue holds jobs that may only run on the application's main
// thread. Any thread may Push; only ExecuteMainThreadJobs (and helping waits
// running on the main thread) Pop.
type MainThreadQueue struct {
	mu   sync.Mutex
	jobs *queue.Queue
}

func NewMainThreadQueue() *MainThreadQueue {
	return &MainThreadQueue{jobs: queue.New()}
}

func (q *MainThreadQueue) Push(id JobID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs.Add(id)
}

func (q *MainThreadQueue) Pop() (JobID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.jobs.Length() == 0 {
		return InvalidJobID, false
	}
	return q.jobs.Remove().(JobID), true
}

func (q *MainThreadQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs.Length()
}

// Clear drops all queued jobs and returns them.
func (q *MainThreadQueue) Clear() []JobID {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := make([]JobID, 0, q.jobs.Length())
	for q.jobs.Length() > 0 {
		dropped = append(dropped, q.jobs.Remove().(JobID))
	}
	return dropped
}
