// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/chatium-tui/internal/model"
)

// =============================================================================
// STORE CONTRACT
// =============================================================================

// Store is the remote message store as seen by the view.
type Store interface {
	FetchMessages(ctx context.Context) (<-chan model.Snapshot, error)
	SendMessage(ctx context.Context, content string, provider model.Provider) (model.Message, error)
	ClearMessages(ctx context.Context) (bool, error)
}

// Error variables for view operations.
var (
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("conversation view already initialized")

	// ErrClearRejected reports a clear the store answered with false.
	ErrClearRejected = errors.New("clear was not acknowledged")
)

// =============================================================================
// PHASE
// =============================================================================

// Phase is the view's position in the submit/clear state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseClearing
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseClearing:
		return "clearing"
	default:
		return "unknown"
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// OperationKind identifies a remote mutation started by the view.
type OperationKind int

const (
	OpSend OperationKind = iota
	OpClear
)

// String returns the store operation name.
func (k OperationKind) String() string {
	if k == OpClear {
		return "clearMessages"
	}
	return "sendMessage"
}

// Operation is an accepted mutation waiting to be executed. Run it outside
// the UI loop and hand the Result back to View.Resolve.
type Operation struct {
	Kind     OperationKind
	Content  string
	Provider model.Provider

	store Store
}

// Result is the outcome of an Operation. Started is when the remote call
// was issued.
type Result struct {
	Kind    OperationKind
	Content string
	Message model.Message
	Cleared bool
	Started time.Time
	Err     error
}

// Run performs the remote call. It makes a single attempt.
func (o *Operation) Run(ctx context.Context) Result {
	res := Result{Kind: o.Kind, Content: o.Content, Started: time.Now()}
	switch o.Kind {
	case OpSend:
		res.Message, res.Err = o.store.SendMessage(ctx, o.Content, o.Provider)
	case OpClear:
		res.Cleared, res.Err = o.store.ClearMessages(ctx)
		if res.Err == nil && !res.Cleared {
			res.Err = ErrClearRejected
		}
	}
	return res
}

// =============================================================================
// VIEW
// =============================================================================

// Options configures a View.
type Options struct {
	Provider model.Provider
	Logger   *zap.Logger
}

// View holds the transient UI state of one conversation: the server list,
// the draft and the busy phase. Frontends feed it user actions and store
// emissions; it never renders anything itself.
type View struct {
	store  Store
	logger *zap.Logger

	mu             sync.Mutex
	conv           *model.Conversation
	draft          string
	phase          Phase
	confirmPending bool
	connectionLost bool
	scrollPending  bool
	provider       model.Provider
	lastErr        error
	clearedAt      time.Time
	onChange       func()
	cancel         context.CancelFunc
}

// New creates a view over store.
func New(store Store, opts Options) *View {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := opts.Provider
	if !provider.Valid() {
		provider = model.DefaultProvider
	}
	return &View{
		store:    store,
		logger:   logger.Named("conversation"),
		conv:     model.NewConversation(),
		provider: provider,
	}
}

// OnChange registers fn to be called after every state change. fn runs
// without the view lock held.
func (v *View) OnChange(fn func()) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// update runs fn under the lock and then fires the change hook if fn
// reports a change.
func (v *View) update(fn func() bool) bool {
	v.mu.Lock()
	changed := fn()
	hook := v.onChange
	v.mu.Unlock()

	if changed && hook != nil {
		hook()
	}
	return changed
}

// Initialize subscribes to the store's live list. The caller must pass
// every emission to ApplySnapshot. The stream lives until Teardown.
func (v *View) Initialize(ctx context.Context) (<-chan model.Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cancel != nil {
		return nil, ErrAlreadyInitialized
	}
	streamCtx, cancel := context.WithCancel(ctx)
	ch, err := v.store.FetchMessages(streamCtx)
	if err != nil {
		cancel()
		v.logger.Error("subscribe failed", zap.Error(err))
		return nil, err
	}
	v.cancel = cancel
	return ch, nil
}

// Teardown cancels the live subscription. In-flight operations are not
// cancelled; their results may still be resolved.
func (v *View) Teardown() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// ApplySnapshot replaces the list with a store emission. A failed fetch
// keeps the current list and marks the connection as lost. A list fetched
// before the last successful clear was issued is dropped.
func (v *View) ApplySnapshot(snap model.Snapshot) {
	v.update(func() bool {
		if snap.Err == nil && !snap.StartedAt.IsZero() && snap.StartedAt.Before(v.clearedAt) {
			v.logger.Debug("dropping snapshot fetched before clear",
				zap.Int("messages", snap.Len()))
			return false
		}
		if snap.Err != nil {
			if !v.connectionLost {
				v.logger.Warn("message stream failed", zap.Error(snap.Err))
			}
			v.connectionLost = true
			return true
		}
		if v.connectionLost {
			v.logger.Info("message stream recovered")
		}
		v.connectionLost = false
		v.conv.Replace(snap.Messages)
		v.scrollPending = true
		return true
	})
}

// SetDraft replaces the draft text.
func (v *View) SetDraft(text string) {
	v.update(func() bool {
		if v.draft == text {
			return false
		}
		v.draft = text
		return true
	})
}

// Draft returns the current draft text.
func (v *View) Draft() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// Submit accepts the draft for sending. It returns false, changing nothing,
// when the draft is blank or another operation is in flight. On acceptance
// the draft is cleared at once and the returned Operation carries the
// original text.
func (v *View) Submit() (*Operation, bool) {
	var op *Operation
	accepted := v.update(func() bool {
		if v.phase != PhaseIdle || strings.TrimSpace(v.draft) == "" {
			return false
		}
		op = &Operation{
			Kind:     OpSend,
			Content:  v.draft,
			Provider: v.provider,
			store:    v.store,
		}
		v.draft = ""
		v.phase = PhaseSubmitting
		v.lastErr = nil
		return true
	})
	return op, accepted
}

// RequestClear asks for confirmation before clearing. It returns false
// while an operation is in flight.
func (v *View) RequestClear() bool {
	return v.update(func() bool {
		if v.phase != PhaseIdle {
			return false
		}
		v.confirmPending = true
		return true
	})
}

// ConfirmClear answers a pending RequestClear with yes.
func (v *View) ConfirmClear() (*Operation, bool) {
	var op *Operation
	accepted := v.update(func() bool {
		if !v.confirmPending {
			return false
		}
		v.confirmPending = false
		if v.phase != PhaseIdle {
			return true
		}
		op = &Operation{Kind: OpClear, store: v.store}
		v.phase = PhaseClearing
		v.lastErr = nil
		return true
	})
	return op, accepted && op != nil
}

// DeclineClear answers a pending RequestClear with no.
func (v *View) DeclineClear() {
	v.update(func() bool {
		if !v.confirmPending {
			return false
		}
		v.confirmPending = false
		return true
	})
}

// Resolve applies the outcome of an operation returned by Submit or
// ConfirmClear. The view always returns to idle.
func (v *View) Resolve(res Result) {
	v.update(func() bool {
		want := PhaseSubmitting
		if res.Kind == OpClear {
			want = PhaseClearing
		}
		if v.phase != want {
			v.logger.Warn("ignoring result for inactive operation",
				zap.Stringer("op", res.Kind),
				zap.Stringer("phase", v.phase))
			return false
		}
		v.phase = PhaseIdle
		v.lastErr = res.Err

		if res.Err != nil {
			if res.Kind == OpSend {
				v.draft = res.Content
			}
			v.logger.Error("remote operation failed",
				zap.Stringer("op", res.Kind),
				zap.Int("content_len", len(res.Content)),
				zap.Error(res.Err))
			return true
		}

		switch res.Kind {
		case OpSend:
			v.scrollPending = true
		case OpClear:
			v.conv.Clear()
			v.clearedAt = res.Started
		}
		return true
	})
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Messages returns a copy of the rendered list.
func (v *View) Messages() []model.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conv.Messages()
}

// MessageCount returns the number of rendered messages.
func (v *View) MessageCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conv.MessageCount()
}

// Version increments on every list replacement.
func (v *View) Version() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conv.Version()
}

// Phase returns the current phase.
func (v *View) Phase() Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

// Busy reports whether a send or clear is in flight.
func (v *View) Busy() bool {
	return v.Phase() != PhaseIdle
}

// ConfirmPending reports whether a clear is awaiting confirmation.
func (v *View) ConfirmPending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.confirmPending
}

// ConnectionLost reports whether the last fetch failed.
func (v *View) ConnectionLost() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connectionLost
}

// LastError returns the error of the last resolved operation, if any.
func (v *View) LastError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// TakeScroll reports whether the view should scroll to the newest message
// and resets the request.
func (v *View) TakeScroll() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.scrollPending
	v.scrollPending = false
	return s
}

// Provider returns the provider tag used for new sends.
func (v *View) Provider() model.Provider {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.provider
}

// SetProvider changes the provider tag for later sends.
func (v *View) SetProvider(p model.Provider) error {
	if !p.Valid() {
		return model.ErrUnknownProvider
	}
	v.update(func() bool {
		if v.provider == p {
			return false
		}
		v.provider = p
		return true
	})
	return nil
}
