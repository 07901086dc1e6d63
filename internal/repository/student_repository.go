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

const studentDetailColumns = `s.id, s.profile_id, s.register_number, s.parent_name, s.gender,
       s.batch_id, s.created_at, s.updated_at,
       p.first_name, p.last_name, p.email, p.phone,
       b.name AS batch_name, b.section, b.semester_override, b.department_id, b.tutor_id,
       d.name AS department_name, d.hod_id`

// StudentRepository persists student rows and resolves their composed view.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a student row. Register numbers are globally unique; the
// database constraint surfaces duplicates as an error here.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students
	(id, profile_id, register_number, parent_name, gender, batch_id, created_at, updated_at)
	VALUES (:id, :profile_id, :register_number, :parent_name, :gender, :batch_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update rewrites the mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET
	register_number = :register_number,
	parent_name = :parent_name,
	gender = :gender,
	batch_id = :batch_id,
	updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// GetDetails loads the composed student view by student id.
func (r *StudentRepository) GetDetails(ctx context.Context, id string) (*models.StudentDetails, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s
	JOIN profiles p ON p.id = s.profile_id
	LEFT JOIN batches b ON b.id = s.batch_id
	LEFT JOIN departments d ON d.id = b.department_id
	WHERE s.id = $1`, studentDetailColumns)
	var details models.StudentDetails
	if err := r.db.GetContext(ctx, &details, query, id); err != nil {
		return nil, err
	}
	return &details, nil
}

// GetDetailsByProfile loads the composed view by the owning profile id,
// which is what the JWT claims carry for student callers.
func (r *StudentRepository) GetDetailsByProfile(ctx context.Context, profileID string) (*models.StudentDetails, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s
	JOIN profiles p ON p.id = s.profile_id
	LEFT JOIN batches b ON b.id = s.batch_id
	LEFT JOIN departments d ON d.id = b.department_id
	WHERE s.profile_id = $1`, studentDetailColumns)
	var details models.StudentDetails
	if err := r.db.GetContext(ctx, &details, query, profileID); err != nil {
		return nil, err
	}
	return &details, nil
}

// List returns students matching the filter with their composed view.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetails, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM students s
	JOIN profiles p ON p.id = s.profile_id
	LEFT JOIN batches b ON b.id = s.batch_id
	LEFT JOIN departments d ON d.id = b.department_id`, studentDetailColumns))

	conditions := make([]string, 0, 3)
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(p.first_name || ' ' || p.last_name) LIKE $%d OR LOWER(s.register_number) LIKE $%d)",
			len(args), len(args)))
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("s.batch_id = $%d", len(args)))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("b.department_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY s.register_number")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize))

	var students []models.StudentDetails
	if err := r.db.SelectContext(ctx, &students, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}
