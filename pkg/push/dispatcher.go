package push

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/christian289/postalert/pkg/forum"
	"github.com/christian289/postalert/pkg/notify"
	"github.com/christian289/postalert/pkg/tasks"
)

// Filter decides whether a notification may be pushed to the user.
// Filters run in registration order; the first false suppresses the push
// terminally.
type Filter func(ctx context.Context, user forum.User, alert notify.Alert) bool

// Enqueuer is the slice of the task queue the dispatcher needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any, opts ...tasks.EnqueueOption) error
}

// Dispatcher runs the push filter chain and batches accepted notifications
// per destination URL before handing them to the task queue.
type Dispatcher struct {
	store    forum.Store
	enqueuer Enqueuer
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	filterMu sync.RWMutex
	filters  []Filter

	mu      sync.Mutex
	pending map[string][]Notification
	timers  map[string]*time.Timer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher creates a push Dispatcher.
func NewDispatcher(store forum.Store, enqueuer Enqueuer, cfg Config, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if enqueuer == nil {
		return nil, ErrEnqueuerNil
	}

	d := &Dispatcher{
		store:    store,
		enqueuer: enqueuer,
		cfg:      cfg,
		logger:   slog.Default(),
		now:      time.Now,
		pending:  make(map[string][]Notification),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// RegisterFilter appends a filter to the chain.
func (d *Dispatcher) RegisterFilter(f Filter) {
	if f == nil {
		return
	}
	d.filterMu.Lock()
	defer d.filterMu.Unlock()
	d.filters = append(d.filters, f)
}

// Dispatch queues push delivery of one freshly created notification.
// Suspended or do-not-disturb recipients and filtered payloads are
// silently skipped; recipients without push clients are a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, user forum.User, alert notify.Alert) error {
	if user.Suspended || user.InDoNotDisturb(d.now()) {
		return nil
	}
	if !d.admits(ctx, user, alert) {
		return nil
	}

	endpoints, err := d.store.PushEndpoints(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("push endpoints of user %d: %w", user.ID, err)
	}
	if len(endpoints) == 0 {
		return nil
	}

	byURL := make(map[string][]Notification)
	for _, endpoint := range endpoints {
		byURL[endpoint.PushURL] = append(byURL[endpoint.PushURL], Notification{
			NotificationType: alert.NotificationType,
			PostNumber:       alert.PostNumber,
			TopicTitle:       alert.TopicTitle,
			TopicID:          alert.TopicID,
			Excerpt:          alert.Excerpt,
			Username:         alert.Username,
			URL:              alert.PostURL,
			ClientID:         endpoint.ClientID,
		})
	}
	for pushURL, items := range byURL {
		if err := d.add(ctx, pushURL, items); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) admits(ctx context.Context, user forum.User, alert notify.Alert) bool {
	d.filterMu.RLock()
	defer d.filterMu.RUnlock()

	for _, filter := range d.filters {
		if !filter(ctx, user, alert) {
			return false
		}
	}
	return true
}

func (d *Dispatcher) add(ctx context.Context, pushURL string, items []Notification) error {
	if d.cfg.BatchWindow <= 0 {
		d.mu.Lock()
		d.pending[pushURL] = append(d.pending[pushURL], items...)
		d.mu.Unlock()
		return d.flushURL(ctx, pushURL)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[pushURL] = append(d.pending[pushURL], items...)
	if _, armed := d.timers[pushURL]; !armed {
		d.timers[pushURL] = time.AfterFunc(d.cfg.BatchWindow, func() {
			if err := d.flushURL(context.Background(), pushURL); err != nil {
				d.logger.LogAttrs(context.Background(), slog.LevelError, "failed to flush push batch",
					slog.String("push_url", pushURL),
					slog.Any("error", err),
				)
			}
		})
	}
	return nil
}

// Flush immediately drains every pending batch, for shutdown.
func (d *Dispatcher) Flush(ctx context.Context) error {
	d.mu.Lock()
	urls := make([]string, 0, len(d.pending))
	for url := range d.pending {
		urls = append(urls, url)
	}
	d.mu.Unlock()

	for _, url := range urls {
		if err := d.flushURL(ctx, url); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) flushURL(ctx context.Context, pushURL string) error {
	d.mu.Lock()
	items := d.pending[pushURL]
	delete(d.pending, pushURL)
	if timer, ok := d.timers[pushURL]; ok {
		timer.Stop()
		delete(d.timers, pushURL)
	}
	d.mu.Unlock()

	if len(items) == 0 {
		return nil
	}

	delivery := Delivery{
		PushURL: pushURL,
		Payload: Payload{
			SecretKey:     d.cfg.SecretKey,
			URL:           d.cfg.SiteURL,
			Title:         d.cfg.SiteTitle,
			Description:   d.cfg.SiteDescription,
			Notifications: items,
		},
	}
	if err := d.enqueuer.Enqueue(ctx, TaskKind, delivery); err != nil {
		return fmt.Errorf("enqueue push delivery to %s: %w", pushURL, err)
	}
	return nil
}
