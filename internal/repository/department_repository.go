package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zoro24a/bonafide-api/internal/models"
)

// DepartmentRepository persists department reference data.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// Create inserts a department row.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	if department.CreatedAt.IsZero() {
		department.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO departments (id, name, code, hod_id, created_at)
	VALUES (:id, :name, :code, :hod_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// GetByID fetches a department.
func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*models.Department, error) {
	var department models.Department
	if err := r.db.GetContext(ctx, &department,
		`SELECT id, name, code, hod_id, created_at FROM departments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &department, nil
}

// List returns every department ordered by name.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments,
		`SELECT id, name, code, hod_id, created_at FROM departments ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}
