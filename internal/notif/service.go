package notif

import (
	"context"
	"log/slog"
	"sync"

	"freelancehub/internal/common"
	"freelancehub/internal/config"
	"freelancehub/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NotificationManager fans stored notifications out to post-commit observers on a
// fixed pool of workers. Observers never see a record that was not persisted.
type NotificationManager struct {
	observers    map[string]common.Observer
	eventChannel chan common.NotificationEvent
	workerPool   int
	closed       bool
	mu           sync.RWMutex
	wg           sync.WaitGroup
}

func NewNotificationManager(workerPoolSize, bufferSize int) *NotificationManager {
	if workerPoolSize < 1 {
		workerPoolSize = 1
	}
	nm := &NotificationManager{
		observers:    make(map[string]common.Observer),
		eventChannel: make(chan common.NotificationEvent, bufferSize),
		workerPool:   workerPoolSize,
	}

	for i := 0; i < workerPoolSize; i++ {
		nm.wg.Add(1)
		go nm.processEvents()
	}

	return nm
}

func (nm *NotificationManager) Subscribe(observer common.Observer) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.observers[observer.Name()] = observer
	slog.Debug("observer subscribed", slog.String("observer", observer.Name()))
}

func (nm *NotificationManager) Unsubscribe(observer common.Observer) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	delete(nm.observers, observer.Name())
	slog.Debug("observer unsubscribed", slog.String("observer", observer.Name()))
}

// Notify runs every observer on the calling goroutine. Observer failures are logged.
func (nm *NotificationManager) Notify(event common.NotificationEvent) {
	nm.mu.RLock()
	observers := make([]common.Observer, 0, len(nm.observers))
	for _, obs := range nm.observers {
		observers = append(observers, obs)
	}
	nm.mu.RUnlock()

	for _, observer := range observers {
		if err := observer.Update(event); err != nil {
			slog.Warn("observer update failed",
				slog.String("observer", observer.Name()), slog.Any("error", err))
		}
	}
}

// NotifyAsync queues event for the worker pool, dropping it when the buffer is full.
func (nm *NotificationManager) NotifyAsync(event common.NotificationEvent) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	if nm.closed {
		return
	}

	select {
	case nm.eventChannel <- event:
	default:
		slog.Warn("notification channel full, dropping event",
			slog.Int("notifications", len(event.Notifications)))
	}
}

func (nm *NotificationManager) processEvents() {
	defer nm.wg.Done()
	for event := range nm.eventChannel {
		nm.Notify(event)
	}
}

// Shutdown stops accepting events and waits until the queued ones are delivered.
func (nm *NotificationManager) Shutdown() {
	nm.mu.Lock()
	if nm.closed {
		nm.mu.Unlock()
		return
	}
	nm.closed = true
	close(nm.eventChannel)
	nm.mu.Unlock()

	nm.wg.Wait()
	slog.Info("notification manager shutdown complete")
}

// Emitter turns business events into stored notifications. Every write happens
// before the call returns; observers run afterwards.
type Emitter struct {
	manager *NotificationManager
	repo    common.NotificationRepository
	users   common.UserDirectory
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewEmitter(
	repo common.NotificationRepository,
	users common.UserDirectory,
	manager *NotificationManager,
	m *metrics.Metrics,
) *Emitter {
	return &Emitter{
		manager: manager,
		repo:    repo,
		users:   users,
		metrics: m,
		tracer:  otel.Tracer("freelancehub/internal/notif"),
	}
}

func newNotification(recipient string, kind common.NotificationKind, message string, refs common.SubjectRefs) *common.Notification {
	now := common.Clock()
	return &common.Notification{
		Recipient: recipient,
		Kind:      kind,
		Message:   message,
		Refs:      refs,
		ReadState: common.Unread,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Notify stores one unread notification for recipient.
func (e *Emitter) Notify(
	ctx context.Context,
	recipient string,
	kind common.NotificationKind,
	message string,
	refs common.SubjectRefs,
) (*common.Notification, error) {
	if err := common.ValidateUserID("recipient", recipient); err != nil {
		return nil, err
	}
	message, err := common.ValidateNotification(kind, message, refs)
	if err != nil {
		return nil, err
	}

	// An accepted notification is stored even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	notification := newNotification(recipient, kind, message, refs)
	if err := e.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	e.manager.NotifyAsync(common.NotificationEvent{Notifications: []*common.Notification{notification}})
	return notification, nil
}

// NotifyMany stores one notification per distinct recipient in a single bulk write and
// returns how many were stored. A partially failed batch is reported through the count;
// only a batch where nothing was stored returns an error.
func (e *Emitter) NotifyMany(
	ctx context.Context,
	recipients []string,
	kind common.NotificationKind,
	message string,
	refs common.SubjectRefs,
) (int, error) {
	ctx, span := e.tracer.Start(ctx, "notif.NotifyMany", trace.WithAttributes(
		attribute.String("notification.kind", string(kind)),
	))
	defer span.End()

	message, err := common.ValidateNotification(kind, message, refs)
	if err != nil {
		return 0, err
	}
	ctx = context.WithoutCancel(ctx)

	seen := make(map[string]bool, len(recipients))
	batch := make([]*common.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		if recipient == "" || seen[recipient] {
			continue
		}
		seen[recipient] = true
		batch = append(batch, newNotification(recipient, kind, message, refs))
	}
	span.SetAttributes(attribute.Int("notification.recipients", len(batch)))
	if len(batch) == 0 {
		return 0, nil
	}

	stored, err := e.repo.CreateMany(ctx, batch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk insert failed")
		e.metrics.FanoutFailures.Add(float64(len(batch)))
		return 0, err
	}

	if missed := len(batch) - stored; missed > 0 {
		e.metrics.FanoutFailures.Add(float64(missed))
		slog.WarnContext(ctx, "notification fan-out partially failed",
			slog.String("kind", string(kind)),
			slog.Int("requested", len(batch)),
			slog.Int("stored", stored))
	}

	committed := make([]*common.Notification, 0, stored)
	for _, n := range batch {
		if n.ID != "" {
			committed = append(committed, n)
		}
	}
	e.manager.NotifyAsync(common.NotificationEvent{Notifications: committed})

	return stored, nil
}

// NotifyAudience evaluates q once against the user directory and fans out to the result.
// Users who match q later are not notified.
func (e *Emitter) NotifyAudience(
	ctx context.Context,
	q common.AudienceQuery,
	kind common.NotificationKind,
	message string,
	refs common.SubjectRefs,
) (int, error) {
	if _, err := common.ValidateNotification(kind, message, refs); err != nil {
		return 0, err
	}
	ctx = context.WithoutCancel(ctx)
	recipients, err := e.users.IDs(ctx, q)
	if err != nil {
		return 0, err
	}
	return e.NotifyMany(ctx, recipients, kind, message, refs)
}

// AnnouncementAudience is every user who is neither blocked nor an admin.
var AnnouncementAudience = common.AudienceQuery{
	ExcludeBlocked: true,
	ExcludeRoles:   []common.Role{common.RoleAdmin},
}

func (e *Emitter) Announce(ctx context.Context, message string) (int, error) {
	return e.NotifyAudience(ctx, AnnouncementAudience, common.SystemAnnouncementKind, message, common.SubjectRefs{})
}

// List returns owner's notifications newest first with the total matching filter.
func (e *Emitter) List(
	ctx context.Context,
	owner string,
	filter common.NotificationFilter,
	page common.Page,
) ([]*common.Notification, int64, error) {
	if filter.ReadState != "" && !filter.ReadState.IsValid() {
		return nil, 0, common.Validationf("unknown status %q", filter.ReadState)
	}
	return e.repo.ByRecipient(ctx, owner, filter, page)
}

func (e *Emitter) UnreadCount(ctx context.Context, owner string) (int64, error) {
	return e.repo.UnreadCount(ctx, owner)
}

func (e *Emitter) Delete(ctx context.Context, owner, id string) error {
	notification, err := e.repo.ByID(ctx, id)
	if err != nil {
		return err
	}
	if notification.Recipient != owner {
		return common.Forbiddenf("notification %s belongs to another user", id)
	}
	return e.repo.Delete(ctx, id)
}

// DeleteAll removes every notification of owner, e.g. when the account is deleted.
func (e *Emitter) DeleteAll(ctx context.Context, owner string) (int64, error) {
	return e.repo.DeleteByRecipient(ctx, owner)
}

// NewNotificationService wires the emitter with the configured observers.
func NewNotificationService(
	cfg *config.Config,
	repo common.NotificationRepository,
	users common.UserDirectory,
	m *metrics.Metrics,
	observers ...common.Observer,
) (*Emitter, func()) {
	manager := NewNotificationManager(cfg.Notification.Workers, cfg.Notification.ChannelBufferSize)
	for _, obs := range observers {
		manager.Subscribe(obs)
	}
	return NewEmitter(repo, users, manager, m), manager.Shutdown
}
