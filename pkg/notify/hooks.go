package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/christian289/postalert/pkg/forum"
)

// BeforeCreateBatch carries one type's worth of recipients for the
// batched before-create hook.
type BeforeCreateBatch struct {
	Type  Type
	Users []forum.User
	Post  forum.Post
}

// BeforeCreateForUsersFunc observes a recipient batch before any of its
// rows are persisted.
type BeforeCreateForUsersFunc func(ctx context.Context, batch BeforeCreateBatch)

// BeforeCreateFunc observes a single notification about to be created.
type BeforeCreateFunc func(ctx context.Context, user forum.User, t Type, post forum.Post)

// PreAlertFunc observes a freshly persisted notification with its
// normalized alert payload.
type PreAlertFunc func(ctx context.Context, user forum.User, alert Alert)

// Hooks is a typed observer registry. Listeners run synchronously in
// registration order; a panicking listener is logged and skipped, never
// aborting creation for other listeners or recipients.
type Hooks struct {
	mu                   sync.RWMutex
	beforeCreateForUsers []BeforeCreateForUsersFunc
	beforeCreate         []BeforeCreateFunc
	preAlert             []PreAlertFunc
	logger               *slog.Logger
}

// NewHooks creates an empty hook registry.
func NewHooks(logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{logger: logger}
}

// OnBeforeCreateForUsers registers a batched before-create listener.
func (h *Hooks) OnBeforeCreateForUsers(fn BeforeCreateForUsersFunc) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beforeCreateForUsers = append(h.beforeCreateForUsers, fn)
}

// OnBeforeCreate registers a per-notification before-create listener.
func (h *Hooks) OnBeforeCreate(fn BeforeCreateFunc) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beforeCreate = append(h.beforeCreate, fn)
}

// OnPreAlert registers a post-persistence alert listener.
func (h *Hooks) OnPreAlert(fn PreAlertFunc) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.preAlert = append(h.preAlert, fn)
}

func (h *Hooks) fireBeforeCreateForUsers(ctx context.Context, batch BeforeCreateBatch) {
	h.mu.RLock()
	listeners := h.beforeCreateForUsers
	h.mu.RUnlock()
	for _, fn := range listeners {
		h.invoke(ctx, "before_create_notifications_for_users", func() { fn(ctx, batch) })
	}
}

func (h *Hooks) fireBeforeCreate(ctx context.Context, user forum.User, t Type, post forum.Post) {
	h.mu.RLock()
	listeners := h.beforeCreate
	h.mu.RUnlock()
	for _, fn := range listeners {
		h.invoke(ctx, "before_create_notification", func() { fn(ctx, user, t, post) })
	}
}

func (h *Hooks) firePreAlert(ctx context.Context, user forum.User, alert Alert) {
	h.mu.RLock()
	listeners := h.preAlert
	h.mu.RUnlock()
	for _, fn := range listeners {
		h.invoke(ctx, "pre_notification_alert", func() { fn(ctx, user, alert) })
	}
}

// invoke isolates one listener call so a panic cannot take down the
// creation pipeline.
func (h *Hooks) invoke(ctx context.Context, hook string, call func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.LogAttrs(ctx, slog.LevelError, "notification hook panicked",
				slog.String("hook", hook),
				slog.Any("panic", r),
			)
		}
	}()
	call()
}
