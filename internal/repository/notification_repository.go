package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/database"
)

// NotificationRepository persists per-recipient notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertBatch stores notifications atomically. Rows whose id already exists are skipped
// so a replayed dispatch does not duplicate messages.
func (r *NotificationRepository) InsertBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	const query = `INSERT INTO notifications (id, recipient_id, kind, title, message, related_project_id, metadata, read_at, created_at)
	VALUES (:id, :recipient_id, :kind, :title, :message, :related_project_id, :metadata, :read_at, :created_at)
	ON CONFLICT (id) DO NOTHING`
	now := time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range notifications {
			if notifications[i].CreatedAt.IsZero() {
				notifications[i].CreatedAt = now
			}
			if _, err := tx.NamedExecContext(ctx, query, &notifications[i]); err != nil {
				return fmt.Errorf("insert notification %s: %w", notifications[i].ID, err)
			}
		}
		return nil
	})
}

// ListByRecipient returns a recipient's notifications newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT id, recipient_id, kind, title, message, related_project_id, metadata, read_at, created_at
	FROM notifications WHERE recipient_id = $1`)
	if filter.UnreadOnly {
		builder.WriteString(" AND read_at IS NULL")
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, builder.String(), filter.RecipientID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead stamps read_at for a notification owned by recipientID. Already-read
// rows keep their original timestamp. Unknown or foreign ids return sql.ErrNoRows.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string, readAt time.Time) error {
	const query = `UPDATE notifications SET read_at = COALESCE(read_at, $1) WHERE id = $2 AND recipient_id = $3`
	result, err := r.db.ExecContext(ctx, query, readAt, id, recipientID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check notification update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
