package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"edusloth/app/config"
	"edusloth/app/logger"
	"edusloth/app/model"
)

type fetchResult struct {
	view *JobView
	err  error
}

// fakeFetcher replays a scripted sequence of results; the last entry
// repeats once the script is exhausted.
type fakeFetcher struct {
	mu      sync.Mutex
	script  []fetchResult
	calls   int
	lastCtx context.Context
}

func (f *fakeFetcher) FetchJob(ctx context.Context, key JobKey) (*JobView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastCtx = ctx
	idx := f.calls
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	f.calls++
	r := f.script[idx]
	return r.view, r.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLogger() *logger.Logger {
	return logger.New(config.LogConfig{Level: "error"})
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish in time")
	}
}

// TestPollerCompletes verifies processing -> completed stops polling and
// exposes the transcription result.
func TestPollerCompletes(t *testing.T) {
	fetcher := &fakeFetcher{script: []fetchResult{
		{view: &JobView{Status: model.JobStatusProcessing}},
		{view: &JobView{
			Status:        model.JobStatusCompleted,
			Transcription: &model.Transcription{Status: model.JobStatusCompleted, Text: "hello"},
		}},
	}}
	p := NewPoller(fetcher, Options{Interval: 10 * time.Millisecond, MaxWindow: time.Second}, testLogger())

	s := p.Start(context.Background(), JobKey{ContentID: "c1"})
	waitDone(t, s)

	if s.State() != StateDone {
		t.Fatalf("state = %s, want done", s.State())
	}
	if s.Polls() != 2 {
		t.Fatalf("polls = %d, want 2", s.Polls())
	}
	current := s.Current()
	if current == nil || current.Transcription == nil {
		t.Fatal("expected transcription result")
	}
	if current.Transcription.Text != "hello" {
		t.Fatalf("text = %q, want %q", current.Transcription.Text, "hello")
	}

	// no further fetches after the terminal state
	calls := fetcher.callCount()
	time.Sleep(50 * time.Millisecond)
	if fetcher.callCount() != calls {
		t.Fatalf("fetches continued after terminal state: %d -> %d", calls, fetcher.callCount())
	}
}

// TestPollerFailedJob verifies a failed job ends the session with the
// error message visible on the snapshot.
func TestPollerFailedJob(t *testing.T) {
	fetcher := &fakeFetcher{script: []fetchResult{
		{view: &JobView{Status: model.JobStatusFailed, Error: "转写失败"}},
	}}
	p := NewPoller(fetcher, Options{Interval: 10 * time.Millisecond, MaxWindow: time.Second}, testLogger())

	s := p.Start(context.Background(), JobKey{ContentID: "c1"})
	waitDone(t, s)

	if s.State() != StateFailed {
		t.Fatalf("state = %s, want failed", s.State())
	}
	if s.Current() == nil || s.Current().Error == "" {
		t.Fatal("expected error message on snapshot")
	}
	if s.Err() != nil {
		t.Fatalf("fetch error = %v, want nil", s.Err())
	}
}

// TestPollerNotFound verifies a missing job ends the session with no
// current job and no error.
func TestPollerNotFound(t *testing.T) {
	fetcher := &fakeFetcher{script: []fetchResult{{err: ErrNotFound}}}
	p := NewPoller(fetcher, Options{Interval: 10 * time.Millisecond, MaxWindow: time.Second}, testLogger())

	s := p.Start(context.Background(), JobKey{ContentID: "c2", GenerationType: "quiz"})
	waitDone(t, s)

	if s.State() != StateNotStarted {
		t.Fatalf("state = %s, want not_started", s.State())
	}
	if s.Current() != nil {
		t.Fatal("expected no current job")
	}
	if s.Err() != nil {
		t.Fatalf("err = %v, want nil", s.Err())
	}
}

// TestPollerExactPollCount verifies a job stuck in pending is polled
// exactly MaxWindow/Interval times, then the session times out.
func TestPollerExactPollCount(t *testing.T) {
	fetcher := &fakeFetcher{script: []fetchResult{
		{view: &JobView{Status: model.JobStatusPending}},
	}}
	p := NewPoller(fetcher, Options{Interval: 5 * time.Millisecond, MaxWindow: 50 * time.Millisecond}, testLogger())

	s := p.Start(context.Background(), JobKey{ContentID: "c1"})
	waitDone(t, s)

	if s.State() != StateTimedOut {
		t.Fatalf("state = %s, want timed_out", s.State())
	}
	if s.Polls() != 10 {
		t.Fatalf("polls = %d, want 10", s.Polls())
	}
	// last observed status stays visible
	if s.Current() == nil || s.Current().Status != model.JobStatusPending {
		t.Fatal("expected last observed pending status to remain")
	}
}

// TestPollerTransientError verifies polling continues through a fetch
// error by default and still reaches the terminal state.
func TestPollerTransientError(t *testing.T) {
	fetcher := &fakeFetcher{script: []fetchResult{
		{err: errors.New("连接被重置")},
		{view: &JobView{Status: model.JobStatusCompleted}},
	}}
	p := NewPoller(fetcher, Options{Interval: 10 * time.Millisecond, MaxWindow: time.Second}, testLogger())

	s := p.Start(context.Background(), JobKey{ContentID: "c1"})
	waitDone(t, s)

	if s.State() != StateDone {
		t.Fatalf("state = %s, want done", s.State())
	}
	if s.Polls() != 2 {
		t.Fatalf("polls = %d, want 2", s.Polls())
	}
}

// TestPollerStopOnError verifies the session stops on the first fetch
// error when configured to, keeping the previous state.
func TestPollerStopOnError(t *testing.T) {
	fetchErr := errors.New("连接被重置")
	fetcher := &fakeFetcher{script: []fetchResult{{err: fetchErr}}}
	p := NewPoller(fetcher, Options{Interval: 10 * time.Millisecond, MaxWindow: time.Second, StopOnError: true}, testLogger())

	s := p.Start(context.Background(), JobKey{ContentID: "c1"})
	waitDone(t, s)

	if s.State() != StateChecking {
		t.Fatalf("state = %s, want checking", s.State())
	}
	if !errors.Is(s.Err(), fetchErr) {
		t.Fatalf("err = %v, want %v", s.Err(), fetchErr)
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("fetches = %d, want 1", fetcher.callCount())
	}
}

// TestPollerRestartCancelsPrevious verifies starting a second session
// for the same key cancels the first one.
func TestPollerRestartCancelsPrevious(t *testing.T) {
	fetcher := &fakeFetcher{script: []fetchResult{
		{view: &JobView{Status: model.JobStatusPending}},
	}}
	p := NewPoller(fetcher, Options{Interval: 10 * time.Millisecond, MaxWindow: time.Minute}, testLogger())

	key := JobKey{ContentID: "c1"}
	first := p.Start(context.Background(), key)
	second := p.Start(context.Background(), key)

	select {
	case <-first.Done():
	default:
		t.Fatal("first session should be cancelled before the second starts")
	}
	if got := p.Session(key); got != second {
		t.Fatal("poller should track the second session")
	}

	second.Stop()
	waitDone(t, second)
}

type fakeStarter struct {
	err   error
	calls int
}

func (f *fakeStarter) StartJob(ctx context.Context, key JobKey) error {
	f.calls++
	return f.err
}

// TestPollerBegin verifies Begin starts the job once and the first
// status check runs immediately.
func TestPollerBegin(t *testing.T) {
	starter := &fakeStarter{}
	fetcher := &fakeFetcher{script: []fetchResult{
		{view: &JobView{Status: model.JobStatusCompleted}},
	}}
	p := NewPoller(fetcher, Options{Interval: 10 * time.Millisecond, MaxWindow: time.Second}, testLogger())

	s, err := p.Begin(context.Background(), starter, JobKey{ContentID: "c1"})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	waitDone(t, s)

	if starter.calls != 1 {
		t.Fatalf("start calls = %d, want 1", starter.calls)
	}
	if s.State() != StateDone {
		t.Fatalf("state = %s, want done", s.State())
	}
}

// TestPollerBeginStartFails verifies no session starts when the job
// cannot be started.
func TestPollerBeginStartFails(t *testing.T) {
	starter := &fakeStarter{err: errors.New("服务不可用")}
	fetcher := &fakeFetcher{script: []fetchResult{{err: ErrNotFound}}}
	p := NewPoller(fetcher, Options{Interval: 10 * time.Millisecond, MaxWindow: time.Second}, testLogger())

	key := JobKey{ContentID: "c1"}
	if _, err := p.Begin(context.Background(), starter, key); err == nil {
		t.Fatal("expected error from Begin")
	}
	if p.Session(key) != nil {
		t.Fatal("no session should exist after a failed start")
	}
	if fetcher.callCount() != 0 {
		t.Fatalf("fetches = %d, want 0", fetcher.callCount())
	}
}

// TestPollerStop verifies Stop ends the session and in-flight context
// is cancelled.
func TestPollerStop(t *testing.T) {
	fetcher := &fakeFetcher{script: []fetchResult{
		{view: &JobView{Status: model.JobStatusPending}},
	}}
	p := NewPoller(fetcher, Options{Interval: 10 * time.Millisecond, MaxWindow: time.Minute}, testLogger())

	s := p.Start(context.Background(), JobKey{ContentID: "c1"})
	s.Stop()
	waitDone(t, s)

	fetcher.mu.Lock()
	ctx := fetcher.lastCtx
	fetcher.mu.Unlock()
	if ctx != nil && ctx.Err() == nil {
		t.Fatal("fetch context should be cancelled after Stop")
	}
}
