// internal/enrollment/orchestrator.go
package enrollment

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State of a single user-initiated enrollment.
type State int

const (
	StateIdle State = iota
	StateTicketRequested
	StatePopupOpen
	StateCompleted
	StateErrorAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTicketRequested:
		return "ticket_requested"
	case StatePopupOpen:
		return "popup_open"
	case StateCompleted:
		return "completed"
	case StateErrorAborted:
		return "error_aborted"
	}
	return "unknown"
}

// closePollInterval is how often the orchestrator checks whether the user
// closed the enrollment popup.
const closePollInterval = 200 * time.Millisecond

// Notifier surfaces outcomes to the user (the dashboard's toast collaborator).
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Orchestrator coordinates one SSO enrollment at a time: ticket issuance via
// the guarded action, popup lifecycle, and the connections-view refresh once
// the popup is observed closed. It cannot see what happened inside the popup;
// the user closing it early is indistinguishable from a finished enrollment,
// so the refresh runs either way.
type Orchestrator struct {
	log          *zap.SugaredLogger
	createTicket func(ctx context.Context) (string, error)
	launcher     Launcher
	refresh      func(ctx context.Context)
	notify       Notifier
	popup        PopupOptions
	screen       Screen
	viewport     Viewport
	pollInterval time.Duration

	mu    sync.Mutex
	state State
	done  chan struct{}
}

func NewOrchestrator(log *zap.SugaredLogger, createTicket func(ctx context.Context) (string, error), launcher Launcher, refresh func(ctx context.Context), notify Notifier, popup PopupOptions, screen Screen, viewport Viewport) *Orchestrator {
	return &Orchestrator{
		log:          log,
		createTicket: createTicket,
		launcher:     launcher,
		refresh:      refresh,
		notify:       notify,
		popup:        popup,
		screen:       screen,
		viewport:     viewport,
		pollInterval: closePollInterval,
		state:        StateIdle,
		done:         make(chan struct{}),
	}
}

// State returns the current enrollment state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Done is closed once the enrollment reaches a terminal state.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Enroll runs the enrollment: request a ticket through the guarded action,
// open the popup at the ticket URL, then watch for the popup to close. The
// close watch outlives Enroll; its lifetime is bound to ctx (the hosting
// page), not to this call.
func (o *Orchestrator) Enroll(ctx context.Context) error {
	o.setState(StateTicketRequested)

	ticketURL, err := o.createTicket(ctx)
	if err != nil {
		o.abort(err)
		return err
	}

	geom := ComputeGeometry(o.popup, o.screen, o.viewport)
	win, err := o.launcher.Open(ticketURL, o.popup.Title, geom, o.popup.Scrollbars)
	if err != nil {
		o.abort(err)
		return err
	}
	// the popup must never be able to navigate or script its opener
	win.DetachOpener()
	if o.popup.Focus {
		win.Focus()
	}
	o.setState(StatePopupOpen)

	go o.watchClose(ctx, win)
	return nil
}

// watchClose polls the popup every pollInterval and, on the first observed
// close, stops the ticker and refreshes the connections view exactly once.
func (o *Orchestrator) watchClose(ctx context.Context, win PopupWindow) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// hosting page unloaded; nothing left to refresh into
			return
		case <-ticker.C:
			if !win.Closed() {
				continue
			}
			ticker.Stop()
			o.refresh(ctx)
			o.setState(StateCompleted)
			close(o.done)
			return
		}
	}
}

func (o *Orchestrator) abort(err error) {
	o.log.Errorw("sso enrollment aborted", "err", err)
	o.notify.Error(err.Error())
	o.setState(StateErrorAborted)
	close(o.done)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// DeletionState tracks the independent connection-deletion sub-flow.
type DeletionState int

const (
	DeletionIdle DeletionState = iota
	DeletionConfirming
	DeletionDeleting
	DeletionDone
	DeletionFailed
)

// Deletion is one pending connection deletion awaiting explicit user
// confirmation.
type Deletion struct {
	connectionID string
	delete       func(ctx context.Context, id string) error
	refresh      func(ctx context.Context)
	notify       Notifier

	mu    sync.Mutex
	state DeletionState
}

// BeginDeletion stages a deletion for the given connection; nothing happens
// until Confirm.
func BeginDeletion(connectionID string, del func(ctx context.Context, id string) error, refresh func(ctx context.Context), notify Notifier) *Deletion {
	return &Deletion{
		connectionID: connectionID,
		delete:       del,
		refresh:      refresh,
		notify:       notify,
		state:        DeletionConfirming,
	}
}

// Confirm performs the guarded delete. On success the connections view is
// invalidated once and a success notification shown; on failure the view is
// left untouched and the error surfaced. Delete is atomic from this system's
// viewpoint; there is no partial state to clean up.
func (d *Deletion) Confirm(ctx context.Context) error {
	d.mu.Lock()
	if d.state != DeletionConfirming {
		d.mu.Unlock()
		return nil
	}
	d.state = DeletionDeleting
	d.mu.Unlock()

	if err := d.delete(ctx, d.connectionID); err != nil {
		d.setState(DeletionFailed)
		d.notify.Error(err.Error())
		return err
	}
	d.refresh(ctx)
	d.setState(DeletionDone)
	d.notify.Success("The connection has been deleted.")
	return nil
}

// Cancel abandons a staged deletion.
func (d *Deletion) Cancel() {
	d.mu.Lock()
	if d.state == DeletionConfirming {
		d.state = DeletionIdle
	}
	d.mu.Unlock()
}

func (d *Deletion) State() DeletionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Deletion) setState(s DeletionState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}
