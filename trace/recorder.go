package trace

import "sync"

// Entry is one simulated memory access. Entries are immutable once recorded.
// Trace order reflects completion order of recording: within a single
// thread's local sequence it matches issue order, across threads it is
// scheduling-dependent.
type Entry struct {
	Phase    Phase
	ThreadID uint8
	Op       Op
	Tensor   Tensor
	Addr     uint64
}

// Recorder is the append-only access log shared by all pipeline phases.
// Record and Merge are safe for concurrent use; the mutex is held only for
// the duration of a single append.
type Recorder struct {
	classifier *Classifier

	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates a recorder classifying addresses per cfg.
func NewRecorder(cfg *Config) *Recorder {
	return &Recorder{classifier: NewClassifier(cfg)}
}

// Classifier exposes the recorder's address classifier so that workers
// building private entry buffers classify addresses identically.
func (r *Recorder) Classifier() *Classifier {
	return r.classifier
}

// Record composes phase, op, and tensor classification into one entry and
// appends it under the trace lock.
func (r *Recorder) Record(phase Phase, threadID int, op Op, addr uint64) {
	e := Entry{
		Phase:    phase,
		ThreadID: uint8(threadID),
		Op:       op,
		Tensor:   r.classifier.Tensor(addr),
		Addr:     addr,
	}
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

// Merge bulk-appends a worker's private buffer under a single lock
// acquisition.
func (r *Recorder) Merge(local []Entry) {
	if len(local) == 0 {
		return
	}
	r.mu.Lock()
	r.entries = append(r.entries, local...)
	r.mu.Unlock()
}

// Entries returns a snapshot copy of the trace.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of recorded entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reset clears the trace between independent runs.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.entries = r.entries[:0]
	r.mu.Unlock()
}
