package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zoro24a/bonafide-api/internal/models"
)

const requestColumns = `r.id, r.student_id, r.submission_date, r.type, r.sub_type, r.reason,
       r.status, r.template_id, r.return_reason, r.created_at`

// RequestRepository persists certificate requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request row.
func (r *RequestRepository) Create(ctx context.Context, request *models.Request) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.StatusPendingTutor
	}
	now := time.Now().UTC()
	if request.SubmissionDate.IsZero() {
		request.SubmissionDate = now
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	const query = `INSERT INTO requests
	(id, student_id, submission_date, type, sub_type, reason, status, template_id, return_reason, created_at)
	VALUES (:id, :student_id, :submission_date, :type, :sub_type, :reason, :status, :template_id, :return_reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests r WHERE r.id = $1`, requestColumns)
	var request models.Request
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter, newest first, with display
// fields resolved for the dashboards.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(fmt.Sprintf(`SELECT %s,
       p.first_name || ' ' || p.last_name AS student_name,
       s.register_number,
       b.name AS batch_name,
       d.name AS department_name
	FROM requests r
	JOIN students s ON s.id = r.student_id
	JOIN profiles p ON p.id = s.profile_id
	LEFT JOIN batches b ON b.id = s.batch_id
	LEFT JOIN departments d ON d.id = b.department_id`, requestColumns))

	conditions := make([]string, 0, 4)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("r.student_id = $%d", len(args)))
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("s.batch_id = $%d", len(args)))
	}
	if filter.TutorID != "" {
		args = append(args, filter.TutorID)
		conditions = append(conditions, fmt.Sprintf("b.tutor_id = $%d", len(args)))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("b.department_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("r.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY r.created_at DESC")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize))

	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	total, err := r.count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// CountByStatus aggregates request totals per status within an optional
// batch/department scope. Dashboards consume this.
func (r *RequestRepository) CountByStatus(ctx context.Context, filter models.RequestFilter) (map[models.RequestStatus]int, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 3)
	builder.WriteString(`SELECT r.status, COUNT(*) AS total
	FROM requests r
	JOIN students s ON s.id = r.student_id
	LEFT JOIN batches b ON b.id = s.batch_id`)

	conditions := make([]string, 0, 3)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("r.student_id = $%d", len(args)))
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("s.batch_id = $%d", len(args)))
	}
	if filter.TutorID != "" {
		args = append(args, filter.TutorID)
		conditions = append(conditions, fmt.Sprintf("b.tutor_id = $%d", len(args)))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("b.department_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" GROUP BY r.status")

	rows := []struct {
		Status models.RequestStatus `db:"status"`
		Total  int                  `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("count requests by status: %w", err)
	}
	counts := make(map[models.RequestStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// TransitionParams groups the columns a status transition may write.
type TransitionParams struct {
	ID           string
	FromStatus   models.RequestStatus
	ToStatus     models.RequestStatus
	TemplateID   *string
	ReturnReason *string
}

// ApplyTransition updates the request status conditioned on the status still
// being the one that was validated. Zero rows affected means another actor
// got there first; the caller sees sql.ErrNoRows and surfaces a conflict
// instead of silently overwriting the concurrent decision.
func (r *RequestRepository) ApplyTransition(ctx context.Context, params TransitionParams) error {
	setParts := []string{"status = :to_status"}
	if params.TemplateID != nil {
		setParts = append(setParts, "template_id = :template_id")
	}
	if params.ReturnReason != nil {
		setParts = append(setParts, "return_reason = :return_reason")
	}
	query := fmt.Sprintf("UPDATE requests SET %s WHERE id = :id AND status = :from_status",
		strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":            params.ID,
		"from_status":   params.FromStatus,
		"to_status":     params.ToStatus,
		"template_id":   params.TemplateID,
		"return_reason": params.ReturnReason,
	})
	if err != nil {
		return fmt.Errorf("apply request transition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *RequestRepository) count(ctx context.Context, filter models.RequestFilter) (int, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(`SELECT COUNT(*) FROM requests r
	JOIN students s ON s.id = r.student_id
	LEFT JOIN batches b ON b.id = s.batch_id`)

	conditions := make([]string, 0, 4)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("r.student_id = $%d", len(args)))
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("s.batch_id = $%d", len(args)))
	}
	if filter.TutorID != "" {
		args = append(args, filter.TutorID)
		conditions = append(conditions, fmt.Sprintf("b.tutor_id = $%d", len(args)))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("b.department_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("r.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, builder.String(), args...); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return total, nil
}
