package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zoro24a/bonafide-api/internal/models"
)

const batchColumns = `id, name, section, department_id, tutor_id, status, semester_override, created_at, updated_at`

// BatchRepository persists batch rows. Calendar fields are never stored;
// the service layer derives them on read.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts a batch row.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.Status == "" {
		batch.Status = models.BatchStatusActive
	}
	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now
	const query = `INSERT INTO batches
	(id, name, section, department_id, tutor_id, status, semester_override, created_at, updated_at)
	VALUES (:id, :name, :section, :department_id, :tutor_id, :status, :semester_override, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// Update rewrites the mutable batch fields, including the operator's
// semester override escape hatch.
func (r *BatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE batches SET
	name = :name,
	section = :section,
	department_id = :department_id,
	tutor_id = :tutor_id,
	status = :status,
	semester_override = :semester_override,
	updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

// GetByID fetches a batch.
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	query := fmt.Sprintf(`SELECT %s FROM batches WHERE id = $1`, batchColumns)
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// List returns batches matching the filter.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 3)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM batches`, batchColumns))

	conditions := make([]string, 0, 3)
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if filter.TutorID != "" {
		args = append(args, filter.TutorID)
		conditions = append(conditions, fmt.Sprintf("tutor_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY name, section")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize))

	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}
