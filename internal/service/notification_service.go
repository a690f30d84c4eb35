package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/dto"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	appErrors "github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/errors"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/jobs"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/mailer"
)

// NotificationJobType tags dispatch jobs on the shared queue.
const NotificationJobType = "notification.dispatch"

// NotificationRequest describes one fan-out: the same message to many recipients.
type NotificationRequest struct {
	RecipientIDs     []string
	Kind             models.NotificationKind
	Title            string
	Message          string
	RelatedProjectID string
	Metadata         map[string]interface{}
}

// notificationDispatch is the queue payload. DispatchID seeds the per-recipient ids
// so a retried job rewrites the same rows.
type notificationDispatch struct {
	DispatchID string
	Request    NotificationRequest
}

type notificationStore interface {
	InsertBatch(ctx context.Context, notifications []models.Notification) error
	ListByRecipient(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string, readAt time.Time) error
}

type dispatchQueue interface {
	TryEnqueue(job jobs.Job) error
}

// NotificationService accepts fan-out requests and serves the recipient inbox.
// Notify never fails the caller; dispatch happens on the worker pool.
type NotificationService struct {
	store   notificationStore
	queue   dispatchQueue
	worker  *NotificationWorker
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewNotificationService constructs the service. When queue is nil, dispatches run
// inline on worker, which is only suitable for tests and tooling.
func NewNotificationService(store notificationStore, queue dispatchQueue, worker *NotificationWorker, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		store:   store,
		queue:   queue,
		worker:  worker,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Notify schedules delivery of req. Errors are logged, never returned.
func (s *NotificationService) Notify(ctx context.Context, req NotificationRequest) {
	if s == nil {
		return
	}
	req.RecipientIDs = lo.Uniq(lo.Compact(req.RecipientIDs))
	if len(req.RecipientIDs) == 0 {
		return
	}
	dispatch := notificationDispatch{DispatchID: uuid.NewString(), Request: req}
	job := jobs.Job{ID: dispatch.DispatchID, Type: NotificationJobType, Payload: dispatch}

	if s.queue == nil {
		if s.worker == nil {
			return
		}
		if err := s.worker.Handle(ctx, job); err != nil {
			s.logger.Warn("inline notification dispatch failed", zap.String("kind", string(req.Kind)), zap.Error(err))
		}
		return
	}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.metrics.RecordNotificationDispatch("dropped")
		s.logger.Warn("notification dropped",
			zap.String("dispatch_id", dispatch.DispatchID),
			zap.String("kind", string(req.Kind)),
			zap.Int("recipients", len(req.RecipientIDs)),
			zap.Error(err),
		)
	}
}

// List returns the recipient's inbox, newest first.
func (s *NotificationService) List(ctx context.Context, recipientID string, query dto.NotificationQuery) ([]models.Notification, error) {
	if strings.TrimSpace(recipientID) == "" {
		return nil, appErrors.ErrUnauthorized
	}
	items, err := s.store.ListByRecipient(ctx, models.NotificationFilter{
		RecipientID: recipientID,
		UnreadOnly:  query.Unread,
		Limit:       query.Limit,
		Offset:      query.Offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead marks one of the recipient's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	if strings.TrimSpace(recipientID) == "" {
		return appErrors.ErrUnauthorized
	}
	if err := s.store.MarkRead(ctx, id, recipientID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	return nil
}

type contactDirectory interface {
	FindContacts(ctx context.Context, ids []string) ([]models.UserContact, error)
}

type mailSender interface {
	Send(ctx context.Context, messages ...mailer.Message) error
}

// NotificationWorker persists dispatches and forwards them to email.
type NotificationWorker struct {
	store    notificationStore
	contacts contactDirectory
	mailer   mailSender
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewNotificationWorker constructs a worker. contacts and mail may be nil to disable email.
func NewNotificationWorker(store notificationStore, contacts contactDirectory, mail mailSender, metrics *MetricsService, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{store: store, contacts: contacts, mailer: mail, metrics: metrics, logger: logger}
}

// Handle processes a queue job. Returning an error lets the queue retry; inserts are
// idempotent per (dispatch, recipient) so retries never duplicate rows.
func (w *NotificationWorker) Handle(ctx context.Context, job jobs.Job) error {
	dispatch, ok := job.Payload.(notificationDispatch)
	if !ok {
		w.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	req := dispatch.Request
	var related *string
	if req.RelatedProjectID != "" {
		id := req.RelatedProjectID
		related = &id
	}
	now := time.Now().UTC()
	rows := lo.Map(req.RecipientIDs, func(recipient string, _ int) models.Notification {
		return models.Notification{
			ID:               notificationID(dispatch.DispatchID, recipient),
			RecipientID:      recipient,
			Kind:             req.Kind,
			Title:            req.Title,
			Message:          req.Message,
			RelatedProjectID: related,
			Metadata:         models.JSONMap(req.Metadata),
			CreatedAt:        now,
		}
	})
	if err := w.store.InsertBatch(ctx, rows); err != nil {
		w.metrics.RecordNotificationDispatch("retry")
		return fmt.Errorf("persist notifications: %w", err)
	}
	w.metrics.RecordNotificationDispatch("delivered")
	w.sendEmail(ctx, req)
	return nil
}

func (w *NotificationWorker) sendEmail(ctx context.Context, req NotificationRequest) {
	if w.mailer == nil || w.contacts == nil {
		return
	}
	contacts, err := w.contacts.FindContacts(ctx, req.RecipientIDs)
	if err != nil {
		w.logger.Warn("failed to resolve notification contacts", zap.Error(err))
		return
	}
	messages := lo.Map(contacts, func(contact models.UserContact, _ int) mailer.Message {
		return mailer.Message{To: contact.Email, Subject: req.Title, Body: req.Message}
	})
	if len(messages) == 0 {
		return
	}
	if err := w.mailer.Send(ctx, messages...); err != nil {
		w.logger.Warn("failed to send notification email", zap.String("kind", string(req.Kind)), zap.Error(err))
	}
}

func notificationID(dispatchID, recipientID string) string {
	namespace, err := uuid.Parse(dispatchID)
	if err != nil {
		namespace = uuid.NameSpaceOID
	}
	return uuid.NewSHA1(namespace, []byte(dispatchID+":"+recipientID)).String()
}
