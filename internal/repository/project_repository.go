package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/database"
)

// ErrStaleVersion is returned when a conditional write finds the row at a different version.
var ErrStaleVersion = errors.New("stale project version")

const projectColumns = `id, title, status, member_ids, adviser_id, panelist_ids, status_history, document_lock,
       revision_feedback, primary_document_ref, version, created_at, updated_at`

const updateProjectQuery = `UPDATE projects SET
	status = :status,
	status_history = :status_history,
	document_lock = :document_lock,
	revision_feedback = :revision_feedback,
	primary_document_ref = :primary_document_ref,
	version = :next_version,
	updated_at = :updated_at
	WHERE id = :id AND version = :expected_version`

// ProjectRepository persists capstone projects and applies versioned writes.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project row at version 1.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = project.CreatedAt
	if project.Version == 0 {
		project.Version = 1
	}
	if project.StatusHistory == nil {
		project.StatusHistory = models.StatusHistory{}
	}
	const query = `INSERT INTO projects
	(id, title, status, member_ids, adviser_id, panelist_ids, status_history, document_lock, revision_feedback, primary_document_ref, version, created_at, updated_at)
	VALUES (:id, :title, :status, :member_ids, :adviser_id, :panelist_ids, :status_history, :document_lock, :revision_feedback, :primary_document_ref, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetByID fetches a project by identifier. Missing rows surface as sql.ErrNoRows.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return &project, nil
}

// CompareAndSwap writes the mutable columns of project only if the stored version
// still equals project.Version. On success project.Version is advanced.
func (r *ProjectRepository) CompareAndSwap(ctx context.Context, project *models.Project) error {
	return compareAndSwap(ctx, r.db, project)
}

// CompareAndSwapWithLog applies the versioned write and appends the workflow log
// in one transaction. Nothing is appended when the write loses the race.
func (r *ProjectRepository) CompareAndSwapWithLog(ctx context.Context, project *models.Project, log *models.WorkflowLog) error {
	expected := project.Version
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := compareAndSwap(ctx, tx, project); err != nil {
			return err
		}
		return insertWorkflowLog(ctx, tx, log)
	})
	if err != nil {
		project.Version = expected
		return err
	}
	return nil
}

func compareAndSwap(ctx context.Context, exec sqlx.ExtContext, project *models.Project) error {
	now := time.Now().UTC()
	result, err := sqlx.NamedExecContext(ctx, exec, updateProjectQuery, map[string]interface{}{
		"id":                   project.ID,
		"status":               project.Status,
		"status_history":       project.StatusHistory,
		"document_lock":        project.DocumentLock,
		"revision_feedback":    project.RevisionFeedback,
		"primary_document_ref": project.PrimaryDocumentRef,
		"next_version":         project.Version + 1,
		"updated_at":           now,
		"expected_version":     project.Version,
	})
	if err != nil {
		return fmt.Errorf("update project %s: %w", project.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check project update rows: %w", err)
	}
	if rows == 0 {
		return ErrStaleVersion
	}
	project.Version++
	project.UpdatedAt = now
	return nil
}
