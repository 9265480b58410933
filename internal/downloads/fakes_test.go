package downloads

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"
)

// fakeProcess is a scripted download process.
type fakeProcess struct {
	pid   int
	lines chan string
	done  chan struct{}

	// stubborn processes keep running after Terminate
	stubborn bool

	mu         sync.Mutex
	code       int
	exited     bool
	terminated bool
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{
		pid:   pid,
		lines: make(chan string, 64),
		done:  make(chan struct{}),
	}
}

func (p *fakeProcess) Lines() <-chan string { return p.lines }

func (p *fakeProcess) Wait() (int, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code, nil
}

// Terminate behaves like a process that honors SIGTERM, unless it is stubborn.
func (p *fakeProcess) Terminate() error {
	p.mu.Lock()
	p.terminated = true
	p.mu.Unlock()
	if !p.stubborn {
		p.exit(143)
	}
	return nil
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) emit(line string) {
	p.lines <- line
}

// exit ends the output stream and reports code. Only the first call counts.
func (p *fakeProcess) exit(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited {
		return
	}
	p.exited = true
	p.code = code
	close(p.lines)
	close(p.done)
}

func (p *fakeProcess) wasTerminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

// fakeRunner hands out fake processes and records the jobs it started.
type fakeRunner struct {
	mu       sync.Mutex
	err      error
	stubborn bool
	jobs     []models.Job
	procs    []*fakeProcess
}

func (r *fakeRunner) Start(_ context.Context, job models.Job) (models.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p := newFakeProcess(1000 + len(r.procs))
	p.stubborn = r.stubborn
	r.jobs = append(r.jobs, job)
	r.procs = append(r.procs, p)
	return p, nil
}

func (r *fakeRunner) last(t *testing.T) (*fakeProcess, models.Job) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.procs) == 0 {
		t.Fatal("no process started")
	}
	return r.procs[len(r.procs)-1], r.jobs[len(r.jobs)-1]
}

func (r *fakeRunner) started() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// fakeMetadata returns a fixed title, or an error for URLs it was told about.
type fakeMetadata struct {
	title string
	fail  map[string]bool
	calls int
}

func (m *fakeMetadata) Fetch(_ context.Context, url string) (*models.Metadata, error) {
	m.calls++
	if m.fail[url] {
		return nil, errors.New("exit status 1")
	}
	return &models.Metadata{Title: m.title, Duration: 10, Uploader: "Unknown"}, nil
}

// recordingEmitter collects events in order.
type recordingEmitter struct {
	ch chan models.Event
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{ch: make(chan models.Event, 256)}
}

func (e *recordingEmitter) Emit(ev models.Event) {
	select {
	case e.ch <- ev:
	default:
		panic("recording emitter full")
	}
}

// next waits for the next event.
func (e *recordingEmitter) next(t *testing.T) models.Event {
	t.Helper()
	select {
	case ev := <-e.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return models.Event{}
	}
}

// none asserts nothing else is emitted for a short while.
func (e *recordingEmitter) none(t *testing.T) {
	t.Helper()
	select {
	case ev := <-e.ch:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

type recordingHistory struct {
	mu   sync.Mutex
	recs []models.HistoryRecord
}

func (h *recordingHistory) Record(rec models.HistoryRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recs = append(h.recs, rec)
}

func (h *recordingHistory) records() []models.HistoryRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.HistoryRecord(nil), h.recs...)
}

type countingObserver struct {
	mu        sync.Mutex
	submitted map[consts.Format]int
	finished  map[consts.DownloadStatus]int
	active    int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		submitted: make(map[consts.Format]int),
		finished:  make(map[consts.DownloadStatus]int),
	}
}

func (o *countingObserver) JobSubmitted(f consts.Format) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.submitted[f]++
}

func (o *countingObserver) JobFinished(s consts.DownloadStatus, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished[s]++
}

func (o *countingObserver) ActiveJobs(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = n
}
