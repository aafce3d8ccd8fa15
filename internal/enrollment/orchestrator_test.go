// internal/enrollment/orchestrator_test.go
package enrollment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWindow struct {
	mu       sync.Mutex
	closed   bool
	detached bool
	focused  bool
	// order guard: focus before detach would let the popup script its opener
	focusedBeforeDetach bool
}

func (w *fakeWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *fakeWindow) DetachOpener() {
	w.mu.Lock()
	w.detached = true
	w.mu.Unlock()
}

func (w *fakeWindow) Focus() {
	w.mu.Lock()
	w.focused = true
	if !w.detached {
		w.focusedBeforeDetach = true
	}
	w.mu.Unlock()
}

func (w *fakeWindow) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

type fakeLauncher struct {
	win     *fakeWindow
	err     error
	opened  int
	lastURL string
}

func (l *fakeLauncher) Open(url, title string, geom Geometry, scrollbars bool) (PopupWindow, error) {
	l.opened++
	l.lastURL = url
	if l.err != nil {
		return nil, l.err
	}
	return l.win, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *fakeNotifier) Success(msg string) {
	n.mu.Lock()
	n.successes = append(n.successes, msg)
	n.mu.Unlock()
}

func (n *fakeNotifier) Error(msg string) {
	n.mu.Lock()
	n.errors = append(n.errors, msg)
	n.mu.Unlock()
}

func (n *fakeNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

func newTestOrchestrator(ticket func(ctx context.Context) (string, error), launcher Launcher, refreshes *int32, notify Notifier) *Orchestrator {
	o := NewOrchestrator(
		zap.NewNop().Sugar(),
		ticket,
		launcher,
		func(ctx context.Context) { atomic.AddInt32(refreshes, 1) },
		notify,
		PopupOptions{Width: 485, Height: 720, Title: "SSO Enrollment", Focus: true, Scrollbars: true},
		Screen{AvailWidth: 1920, AvailHeight: 1080},
		Viewport{Width: 1920, Height: 1080},
	)
	o.pollInterval = time.Millisecond
	return o
}

func TestEnrollRefreshesExactlyOnceAfterClose(t *testing.T) {
	win := &fakeWindow{}
	launcher := &fakeLauncher{win: win}
	notify := &fakeNotifier{}
	var refreshes int32
	o := newTestOrchestrator(func(ctx context.Context) (string, error) {
		return "https://idp.example.com/t/abc", nil
	}, launcher, &refreshes, notify)

	require.NoError(t, o.Enroll(context.Background()))
	assert.Equal(t, StatePopupOpen, o.State())
	assert.Equal(t, "https://idp.example.com/t/abc", launcher.lastURL)
	assert.True(t, win.detached, "opener must be severed")
	assert.True(t, win.focused)
	assert.False(t, win.focusedBeforeDetach, "opener must be severed before focus")

	// popup stays open for a while: no refresh yet
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&refreshes))

	win.close()
	select {
	case <-o.Done():
	case <-time.After(time.Second):
		t.Fatal("close detection timed out")
	}
	assert.Equal(t, StateCompleted, o.State())
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshes))

	// the poll is cancelled on first detection: no late duplicate refresh
	time.Sleep(10 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshes))
	assert.Zero(t, notify.errorCount())
}

func TestEnrollTicketFailureOpensNothing(t *testing.T) {
	launcher := &fakeLauncher{win: &fakeWindow{}}
	notify := &fakeNotifier{}
	var refreshes int32
	o := newTestOrchestrator(func(ctx context.Context) (string, error) {
		return "", errors.New("not authorized")
	}, launcher, &refreshes, notify)

	err := o.Enroll(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateErrorAborted, o.State())
	assert.Zero(t, launcher.opened, "no popup on ticket failure")
	assert.Zero(t, atomic.LoadInt32(&refreshes))
	assert.Equal(t, []string{"not authorized"}, notify.errors)

	select {
	case <-o.Done():
	default:
		t.Fatal("Done must be closed on abort")
	}
}

func TestEnrollLauncherFailureAborts(t *testing.T) {
	launcher := &fakeLauncher{err: errors.New("popup blocked")}
	notify := &fakeNotifier{}
	var refreshes int32
	o := newTestOrchestrator(func(ctx context.Context) (string, error) {
		return "https://idp.example.com/t/abc", nil
	}, launcher, &refreshes, notify)

	require.Error(t, o.Enroll(context.Background()))
	assert.Equal(t, StateErrorAborted, o.State())
	assert.Zero(t, atomic.LoadInt32(&refreshes))
}

func TestEnrollContextCancelStopsPoll(t *testing.T) {
	win := &fakeWindow{}
	launcher := &fakeLauncher{win: win}
	notify := &fakeNotifier{}
	var refreshes int32
	o := newTestOrchestrator(func(ctx context.Context) (string, error) {
		return "https://idp.example.com/t/abc", nil
	}, launcher, &refreshes, notify)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, o.Enroll(ctx))
	cancel()

	// closing after the hosting context is gone must not refresh
	time.Sleep(10 * time.Millisecond)
	win.close()
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&refreshes))
	assert.Equal(t, StatePopupOpen, o.State())
}

func TestDeletionConfirmFlow(t *testing.T) {
	notify := &fakeNotifier{}
	var refreshes, deletes int32
	d := BeginDeletion("con_1",
		func(ctx context.Context, id string) error {
			atomic.AddInt32(&deletes, 1)
			assert.Equal(t, "con_1", id)
			return nil
		},
		func(ctx context.Context) { atomic.AddInt32(&refreshes, 1) },
		notify,
	)
	assert.Equal(t, DeletionConfirming, d.State())

	require.NoError(t, d.Confirm(context.Background()))
	assert.Equal(t, DeletionDone, d.State())
	assert.EqualValues(t, 1, deletes)
	assert.EqualValues(t, 1, refreshes)
	assert.Equal(t, []string{"The connection has been deleted."}, notify.successes)

	// a second confirm is a no-op
	require.NoError(t, d.Confirm(context.Background()))
	assert.EqualValues(t, 1, deletes)
	assert.EqualValues(t, 1, refreshes)
}

func TestDeletionFailureLeavesViewUntouched(t *testing.T) {
	notify := &fakeNotifier{}
	var refreshes int32
	d := BeginDeletion("con_1",
		func(ctx context.Context, id string) error { return errors.New("there was a problem deleting the connection") },
		func(ctx context.Context) { atomic.AddInt32(&refreshes, 1) },
		notify,
	)

	require.Error(t, d.Confirm(context.Background()))
	assert.Equal(t, DeletionFailed, d.State())
	assert.Zero(t, atomic.LoadInt32(&refreshes))
	assert.Equal(t, []string{"there was a problem deleting the connection"}, notify.errors)
}

func TestDeletionCancel(t *testing.T) {
	notify := &fakeNotifier{}
	var deletes int32
	d := BeginDeletion("con_1",
		func(ctx context.Context, id string) error { atomic.AddInt32(&deletes, 1); return nil },
		func(ctx context.Context) {},
		notify,
	)
	d.Cancel()
	assert.Equal(t, DeletionIdle, d.State())

	require.NoError(t, d.Confirm(context.Background()))
	assert.Zero(t, atomic.LoadInt32(&deletes), "cancelled deletion must not run")
}
