package downloads

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fetcharr/internal/artifacts"
	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "https://example.com/watch?v=abc"

type harness struct {
	ctrl     *Controller
	runner   *fakeRunner
	meta     *fakeMetadata
	events   *recordingEmitter
	history  *recordingHistory
	observer *countingObserver
	registry *Registry
	dir      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	store, err := artifacts.NewStore(dir)
	require.NoError(t, err)

	h := &harness{
		runner:   &fakeRunner{},
		meta:     &fakeMetadata{title: "Test Clip", fail: map[string]bool{}},
		events:   newRecordingEmitter(),
		history:  &recordingHistory{},
		observer: newCountingObserver(),
		registry: NewRegistry(),
		dir:      dir,
	}
	h.ctrl, err = NewController(context.Background(), Config{
		Registry: h.registry,
		Runner:   h.runner,
		Metadata: h.meta,
		Events:   h.events,
		Store:    store,
		History:  h.history,
		Metrics:  h.observer,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, h.ctrl.Shutdown(ctx))
	})
	return h
}

func TestNewControllerRequiresCollaborators(t *testing.T) {
	store, err := artifacts.NewStore(t.TempDir())
	require.NoError(t, err)

	full := Config{Runner: &fakeRunner{}, Metadata: &fakeMetadata{}, Events: newRecordingEmitter(), Store: store}
	_, err = NewController(context.Background(), full)
	require.NoError(t, err)

	for name, mutate := range map[string]func(*Config){
		"runner":   func(c *Config) { c.Runner = nil },
		"metadata": func(c *Config) { c.Metadata = nil },
		"events":   func(c *Config) { c.Events = nil },
		"store":    func(c *Config) { c.Store = nil },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := full
			mutate(&cfg)
			_, err := NewController(context.Background(), cfg)
			assert.Error(t, err)
		})
	}
}

func TestSubmitSuccessfulDownload(t *testing.T) {
	h := newHarness(t)

	res, err := h.ctrl.Submit(context.Background(), testURL, "video")
	require.NoError(t, err)
	assert.NotEmpty(t, res.JobID)
	assert.Equal(t, "Test Clip.mp4", res.Filename)
	assert.Equal(t, "started", res.Status)
	assert.Equal(t, "Test Clip", res.Metadata.Title)

	proc, job := h.runner.last(t)
	assert.Equal(t, filepath.Join(h.dir, "Test Clip.mp4"), job.OutputPath)
	assert.Equal(t, consts.FormatVideo, job.Format)

	st, err := h.ctrl.Status(res.JobID)
	require.NoError(t, err)
	assert.Equal(t, consts.DLStatusDownloading, st.Status)

	proc.emit("[youtube] abc: Downloading webpage")
	proc.emit("[download]  42.0% of 10.00MiB at 1.00MiB/s ETA 00:06")

	ev := h.events.next(t)
	assert.Equal(t, consts.EventProgress, ev.Type)
	assert.Equal(t, res.JobID, ev.JobID)
	assert.InDelta(t, 0.42, ev.Progress, 1e-9)

	require.Eventually(t, func() bool {
		st, err := h.ctrl.Status(res.JobID)
		return err == nil && st.Progress > 0.41
	}, time.Second, 5*time.Millisecond)

	proc.exit(0)

	ev = h.events.next(t)
	assert.Equal(t, consts.EventProgress, ev.Type)
	assert.Equal(t, 1.0, ev.Progress)

	ev = h.events.next(t)
	assert.Equal(t, consts.EventComplete, ev.Type)
	assert.Equal(t, consts.DLStatusCompleted, ev.Status)
	assert.Equal(t, 1.0, ev.Progress)
	h.events.none(t)

	_, err = h.ctrl.Status(res.JobID)
	assert.ErrorIs(t, err, ErrNotFound)

	recs := h.history.records()
	require.Len(t, recs, 1)
	assert.Equal(t, consts.DLStatusCompleted, recs[0].Status)
	assert.Equal(t, "Test Clip.mp4", recs[0].Filename)

	h.observer.mu.Lock()
	defer h.observer.mu.Unlock()
	assert.Equal(t, 1, h.observer.submitted[consts.FormatVideo])
	assert.Equal(t, 1, h.observer.finished[consts.DLStatusCompleted])
	assert.Equal(t, 0, h.observer.active)
}

func TestSubmitFailedDownload(t *testing.T) {
	h := newHarness(t)

	res, err := h.ctrl.Submit(context.Background(), testURL, "audio")
	require.NoError(t, err)
	assert.Equal(t, "Test Clip.mp3", res.Filename)

	proc, _ := h.runner.last(t)
	proc.emit("[download]  10.0% of 3.00MiB")
	proc.emit("ERROR: unable to download video data: HTTP Error 403: Forbidden")
	proc.exit(1)

	ev := h.events.next(t)
	assert.Equal(t, consts.EventProgress, ev.Type)

	ev = h.events.next(t)
	assert.Equal(t, consts.EventError, ev.Type)
	assert.Equal(t, consts.KindDownloadFailure, ev.Kind)
	assert.Equal(t, consts.DLStatusFailed, ev.Status)
	assert.Equal(t, "download failed: exit code 1", ev.Error)
	assert.InDelta(t, 0.10, ev.Progress, 1e-9)
	h.events.none(t)

	_, err = h.ctrl.Status(res.JobID)
	assert.ErrorIs(t, err, ErrNotFound)

	recs := h.history.records()
	require.Len(t, recs, 1)
	assert.Equal(t, consts.DLStatusFailed, recs[0].Status)
	assert.Equal(t, "download failed: exit code 1", recs[0].Error)
}

func TestCancel(t *testing.T) {
	h := newHarness(t)

	res, err := h.ctrl.Submit(context.Background(), testURL, "video")
	require.NoError(t, err)
	proc, _ := h.runner.last(t)

	proc.emit("[download]  5.0% of 10.00MiB")
	assert.Equal(t, consts.EventProgress, h.events.next(t).Type)

	require.NoError(t, h.ctrl.Cancel(res.JobID))
	assert.True(t, proc.wasTerminated())

	ev := h.events.next(t)
	assert.Equal(t, consts.EventError, ev.Type)
	assert.Equal(t, consts.KindCancelled, ev.Kind)
	assert.Equal(t, consts.DLStatusCancelled, ev.Status)
	assert.Equal(t, ErrCancelled.Error(), ev.Error)

	// The terminated process exits 143; nothing follows the cancel
	h.events.none(t)

	_, err = h.ctrl.Status(res.JobID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, h.ctrl.Cancel(res.JobID), ErrNotFound)

	recs := h.history.records()
	require.Len(t, recs, 1)
	assert.Equal(t, consts.DLStatusCancelled, recs[0].Status)
}

func TestCancelDiscardsLateOutput(t *testing.T) {
	h := newHarness(t)
	h.runner.stubborn = true

	res, err := h.ctrl.Submit(context.Background(), testURL, "video")
	require.NoError(t, err)
	proc, _ := h.runner.last(t)

	proc.emit("[download]  5.0% of 10.00MiB")
	assert.Equal(t, consts.EventProgress, h.events.next(t).Type)

	require.NoError(t, h.ctrl.Cancel(res.JobID))
	assert.True(t, proc.wasTerminated())
	ev := h.events.next(t)
	assert.Equal(t, consts.EventError, ev.Type)
	assert.Equal(t, consts.KindCancelled, ev.Kind)

	// Still running after the cancel: its output and clean exit are ignored
	proc.emit("[download]  50.0% of 10.00MiB")
	proc.exit(0)
	h.events.none(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.ctrl.Shutdown(ctx))

	recs := h.history.records()
	require.Len(t, recs, 1)
	assert.Equal(t, consts.DLStatusCancelled, recs[0].Status)
	assert.InDelta(t, 0.05, recs[0].Progress, 1e-9)
}

func TestCancelUnknown(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.ctrl.Cancel("nope"), ErrNotFound)
	h.events.none(t)
}

func TestProgressIsMonotonic(t *testing.T) {
	h := newHarness(t)

	_, err := h.ctrl.Submit(context.Background(), testURL, "video")
	require.NoError(t, err)
	proc, _ := h.runner.last(t)

	for _, line := range []string{
		"[download]  50.0% of 10.00MiB",
		"[download]  30.0% of 10.00MiB",
		"Downloading fragment: 70% done",
		"no percentage here",
	} {
		proc.emit(line)
	}

	want := []float64{0.5, 0.5, 0.7}
	for _, w := range want {
		ev := h.events.next(t)
		assert.Equal(t, consts.EventProgress, ev.Type)
		assert.InDelta(t, w, ev.Progress, 1e-9)
	}
	h.events.none(t)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		format string
		want   error
	}{
		{"unknown format", testURL, "gif", ErrInvalidParameters},
		{"empty format", testURL, "", ErrInvalidParameters},
		{"empty url", "", "video", ErrInvalidParameters},
		{"relative url", "watch?v=abc", "video", ErrInvalidParameters},
		{"metadata unavailable", "https://example.com/private", "video", ErrMetadataUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.meta.fail["https://example.com/private"] = true

			_, err := h.ctrl.Submit(context.Background(), tt.url, tt.format)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, h.runner.started())
			assert.Zero(t, h.registry.Len())
			h.events.none(t)
		})
	}
}

func TestSubmitFormatIsCheckedBeforeMetadata(t *testing.T) {
	h := newHarness(t)

	_, err := h.ctrl.Submit(context.Background(), testURL, "flac")
	require.ErrorIs(t, err, ErrInvalidParameters)
	assert.Zero(t, h.meta.calls)
}

func TestSubmitFormatAliases(t *testing.T) {
	h := newHarness(t)

	res, err := h.ctrl.Submit(context.Background(), testURL, " MP3 ")
	require.NoError(t, err)
	assert.Equal(t, "Test Clip.mp3", res.Filename)

	_, job := h.runner.last(t)
	assert.Equal(t, consts.FormatAudio, job.Format)
}

func TestSubmitSpawnFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.err = errors.New(`exec: "yt-dlp": executable file not found in $PATH`)

	_, err := h.ctrl.Submit(context.Background(), testURL, "video")
	assert.ErrorIs(t, err, ErrProcessSpawn)
	assert.Zero(t, h.registry.Len())
	h.events.none(t)
}

func TestSanitizedFilename(t *testing.T) {
	h := newHarness(t)
	h.meta.title = `What/is "this"?`

	res, err := h.ctrl.Submit(context.Background(), testURL, "video")
	require.NoError(t, err)
	assert.Equal(t, "Whatis this.mp4", res.Filename)
	assert.False(t, strings.ContainsAny(res.Filename, `/\"?`))
}

func TestConcurrentJobsAreIndependent(t *testing.T) {
	h := newHarness(t)

	a, err := h.ctrl.Submit(context.Background(), testURL, "video")
	require.NoError(t, err)
	procA, _ := h.runner.last(t)

	b, err := h.ctrl.Submit(context.Background(), testURL+"2", "audio")
	require.NoError(t, err)
	procB, _ := h.runner.last(t)
	assert.NotEqual(t, a.JobID, b.JobID)

	// Interleave both streams; each event must reflect its own job only
	steps := []struct {
		proc *fakeProcess
		line string
		id   string
		want float64
	}{
		{procA, "[download]  10.0% of 10.00MiB", a.JobID, 0.10},
		{procB, "[download]  80.0% of 3.00MiB", b.JobID, 0.80},
		{procA, "[download]  20.0% of 10.00MiB", a.JobID, 0.20},
		{procB, "[download]  90.0% of 3.00MiB", b.JobID, 0.90},
		{procA, "[download]  30.0% of 10.00MiB", a.JobID, 0.30},
	}
	for _, st := range steps {
		st.proc.emit(st.line)
		ev := h.events.next(t)
		assert.Equal(t, consts.EventProgress, ev.Type)
		assert.Equal(t, st.id, ev.JobID)
		assert.InDelta(t, st.want, ev.Progress, 1e-9)
	}

	procB.exit(2)
	ev := h.events.next(t)
	assert.Equal(t, b.JobID, ev.JobID)
	assert.Equal(t, consts.EventError, ev.Type)
	assert.InDelta(t, 0.90, ev.Progress, 1e-9)

	st, err := h.ctrl.Status(a.JobID)
	require.NoError(t, err)
	assert.Equal(t, consts.DLStatusDownloading, st.Status)
	assert.InDelta(t, 0.30, st.Progress, 1e-9)

	procA.exit(0)
	ev = h.events.next(t)
	assert.Equal(t, consts.EventProgress, ev.Type)
	assert.Equal(t, a.JobID, ev.JobID)
	assert.InDelta(t, 1.0, ev.Progress, 1e-9)
	ev = h.events.next(t)
	assert.Equal(t, consts.EventComplete, ev.Type)
	assert.Equal(t, a.JobID, ev.JobID)
}

func TestRegisterLeavesNothingOnError(t *testing.T) {
	h := newHarness(t)

	// A job that cannot move to downloading is rolled back
	err := h.ctrl.register(models.Job{ID: "done", Status: consts.DLStatusCompleted}, newFakeProcess(1))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Zero(t, h.registry.Len())

	// A duplicate id is rejected without touching the existing job
	require.NoError(t, h.ctrl.register(models.Job{ID: "live"}, newFakeProcess(2)))
	err = h.ctrl.register(models.Job{ID: "live"}, newFakeProcess(3))
	assert.ErrorIs(t, err, ErrInvalidParameters)

	job, err := h.registry.Get("live")
	require.NoError(t, err)
	assert.Equal(t, consts.DLStatusDownloading, job.Status)
	assert.Equal(t, 2, job.Process.PID())

	// Not supervised: drop it so shutdown has nothing to wait for
	h.registry.Remove("live")
}

func TestArtifactsIndependentOfRegistry(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "Old Clip.mp4"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "notes.txt"), []byte("x"), 0o644))

	list, err := h.ctrl.ListArtifacts()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Old Clip.mp4", list[0].Filename)
	assert.Equal(t, int64(4), list[0].SizeBytes)
	assert.Equal(t, "/api/video/stream/Old%20Clip.mp4", list[0].URL)

	f, info, err := h.ctrl.OpenArtifact("Old Clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size())
	f.Close()

	_, _, err = h.ctrl.OpenArtifact("missing.mp4")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = h.ctrl.OpenArtifact("../secret.mp4")
	assert.ErrorIs(t, err, ErrInvalidParameters)

	require.NoError(t, h.ctrl.DeleteArtifact("Old Clip.mp4"))
	assert.ErrorIs(t, h.ctrl.DeleteArtifact("Old Clip.mp4"), ErrNotFound)

	list, err = h.ctrl.ListArtifacts()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestShutdownCancelsRunningJobs(t *testing.T) {
	h := newHarness(t)

	res, err := h.ctrl.Submit(context.Background(), testURL, "video")
	require.NoError(t, err)
	proc, _ := h.runner.last(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.ctrl.Shutdown(ctx))

	assert.True(t, proc.wasTerminated())
	ev := h.events.next(t)
	assert.Equal(t, res.JobID, ev.JobID)
	assert.Equal(t, consts.KindCancelled, ev.Kind)
	assert.Zero(t, h.registry.Len())
}

func TestMetadataLookup(t *testing.T) {
	h := newHarness(t)
	h.meta.fail["https://example.com/private"] = true

	meta, err := h.ctrl.Metadata(context.Background(), testURL)
	require.NoError(t, err)
	assert.Equal(t, "Test Clip", meta.Title)

	_, err = h.ctrl.Metadata(context.Background(), "https://example.com/private")
	assert.ErrorIs(t, err, ErrMetadataUnavailable)

	_, err = h.ctrl.Metadata(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidParameters)
	assert.Zero(t, h.runner.started())
}

var _ models.Process = (*fakeProcess)(nil)
