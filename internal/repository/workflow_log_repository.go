package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
)

// WorkflowLogRepository reads and appends transition audit records.
type WorkflowLogRepository struct {
	db *sqlx.DB
}

// NewWorkflowLogRepository constructs the repository.
func NewWorkflowLogRepository(db *sqlx.DB) *WorkflowLogRepository {
	return &WorkflowLogRepository{db: db}
}

// Append inserts a single log entry outside of any project write.
func (r *WorkflowLogRepository) Append(ctx context.Context, log *models.WorkflowLog) error {
	return insertWorkflowLog(ctx, r.db, log)
}

// ListByProject returns the project's log newest first.
func (r *WorkflowLogRepository) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]models.WorkflowLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT id, project_id, user_id, from_status, to_status, comment, created_at
	FROM workflow_logs WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	var logs []models.WorkflowLog
	if err := r.db.SelectContext(ctx, &logs, query, projectID, limit, offset); err != nil {
		return nil, fmt.Errorf("list workflow logs: %w", err)
	}
	return logs, nil
}

func insertWorkflowLog(ctx context.Context, exec sqlx.ExtContext, log *models.WorkflowLog) error {
	if log == nil {
		return nil
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO workflow_logs (id, project_id, user_id, from_status, to_status, comment, created_at)
	VALUES (:id, :project_id, :user_id, :from_status, :to_status, :comment, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, log); err != nil {
		return fmt.Errorf("insert workflow log: %w", err)
	}
	return nil
}
