package oracle

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"minionwar/internal/api"
)

// Queue bounds the number of adjudications in flight at once, so a storm of
// simultaneous collisions can never pile up unbounded oracle HTTP calls or
// block the tick loop waiting on one. Submissions beyond the bound are
// dropped rather than queued indefinitely — a dropped adjudication is not
// resolved at all; the pair can be detected again once its collision
// cooldown has elapsed.
type Queue struct {
	jobs     chan func()
	workers  int
	wg       sync.WaitGroup
	running  atomic.Bool
	stopChan chan struct{}

	submitted atomic.Uint64
	completed atomic.Uint64
	dropped   atomic.Uint64
	avgWaitNs atomic.Int64
}

// QueueConfig controls queue sizing.
type QueueConfig struct {
	MaxInFlight int // Capacity of the pending-job buffer; Submit drops work once it is full (spec §5)
	Workers     int // Worker goroutines draining the queue
}

// DefaultQueueConfig mirrors spec §5's 64-in-flight backpressure bound.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{MaxInFlight: 64, Workers: 8}
}

// NewQueue creates a bounded adjudication queue. It does not start workers;
// call Start.
func NewQueue(cfg QueueConfig) *Queue {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	return &Queue{
		jobs:     make(chan func(), cfg.MaxInFlight),
		workers:  cfg.Workers,
		stopChan: make(chan struct{}),
	}
}

// Start launches the worker pool.
func (q *Queue) Start() {
	if q.running.Swap(true) {
		return
	}
	log.Printf("🔮 oracle adjudication queue starting with %d workers, bound %d", q.workers, cap(q.jobs))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// Stop shuts the pool down, waiting for jobs that are already running to
// finish; jobs still waiting in the buffer are not run.
func (q *Queue) Stop() {
	if !q.running.Swap(false) {
		return
	}
	close(q.stopChan)
	q.wg.Wait()
	log.Printf("📊 oracle adjudication queue stopped - submitted: %d, completed: %d, dropped: %d",
		q.submitted.Load(), q.completed.Load(), q.dropped.Load())
}

type timedJob struct {
	run        func()
	enqueuedAt time.Time
}

// Submit enqueues work without blocking. It returns false if the queue is
// at capacity, in which case work is discarded and never runs.
func (q *Queue) Submit(work func()) bool {
	job := timedJob{run: work, enqueuedAt: time.Now()}
	select {
	case q.jobs <- wrap(job, q):
		q.submitted.Add(1)
		return true
	default:
		q.dropped.Add(1)
		api.RecordOracleQueueDropped()
		if d := q.dropped.Load(); d%50 == 1 {
			log.Printf("⚠️ oracle adjudication queue full, dropped submission (total dropped: %d)", d)
		}
		return false
	}
}

func wrap(job timedJob, q *Queue) func() {
	return func() {
		wait := time.Since(job.enqueuedAt)
		q.updateAvgWait(wait)
		job.run()
		q.completed.Add(1)
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.stopChan:
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			job()
		}
	}
}

func (q *Queue) updateAvgWait(wait time.Duration) {
	current := q.avgWaitNs.Load()
	newAvg := (current*9 + wait.Nanoseconds()) / 10
	q.avgWaitNs.Store(newAvg)
}

// Stats reports queue metrics for observability wiring.
type QueueStats struct {
	Submitted      uint64  `json:"submitted"`
	Completed      uint64  `json:"completed"`
	Dropped        uint64  `json:"dropped"`
	Pending        uint64  `json:"pending"`
	BufferSize     uint64  `json:"buffer_size"`
	AvgWaitTimeMs  float64 `json:"avg_wait_time_ms"`
	BufferUsagePct float64 `json:"buffer_usage_pct"`
}

func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Submitted:      q.submitted.Load(),
		Completed:      q.completed.Load(),
		Dropped:        q.dropped.Load(),
		Pending:        uint64(len(q.jobs)),
		BufferSize:     uint64(cap(q.jobs)),
		AvgWaitTimeMs:  float64(q.avgWaitNs.Load()) / 1e6,
		BufferUsagePct: float64(len(q.jobs)) / float64(cap(q.jobs)) * 100,
	}
}
