package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/zoro24a/bonafide-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRequestRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.Request{
		StudentID: "stu-1",
		Type:      "Bank Loan",
		Reason:    "loan application",
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.NotEmpty(t, request.ID)
	require.Equal(t, models.StatusPendingTutor, request.Status)
	require.False(t, request.SubmissionDate.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows := sqlmock.NewRows([]string{"id", "student_id", "submission_date", "type", "sub_type", "reason", "status", "template_id", "return_reason", "created_at"}).
		AddRow("req-1", "stu-1", time.Now(), "Bank Loan", nil, "loan", "Pending Tutor Approval", nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.id, r.student_id")).
		WithArgs("req-1").
		WillReturnRows(rows)

	request, err := repo.GetByID(context.Background(), "req-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingTutor, request.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows := sqlmock.NewRows([]string{"id", "student_id", "submission_date", "type", "sub_type", "reason", "status", "template_id", "return_reason", "created_at", "student_name", "register_number", "batch_name", "department_name"}).
		AddRow("req-1", "stu-1", time.Now(), "Bank Loan", nil, "loan", "Pending HOD Approval", nil, nil, time.Now(), "Priya Raman", "CS2023001", "2023-2027", "Computer Science")
	mock.ExpectQuery(regexp.QuoteMeta("FROM requests r")).
		WithArgs("dept-1", "Pending HOD Approval").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM requests r")).
		WithArgs("dept-1", "Pending HOD Approval").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.RequestFilter{
		DepartmentID: "dept-1",
		Status:       []models.RequestStatus{models.StatusPendingHOD},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "Priya Raman", list[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryApplyTransition(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	templateID := "tmpl-1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET status =")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyTransition(context.Background(), TransitionParams{
		ID:         "req-1",
		FromStatus: models.StatusPendingTutor,
		ToStatus:   models.StatusPendingHOD,
		TemplateID: &templateID,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Zero rows affected means the compare-and-swap lost a race with another
// reviewer and must surface as sql.ErrNoRows.
func TestRequestRepositoryApplyTransitionConflict(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET status =")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ApplyTransition(context.Background(), TransitionParams{
		ID:         "req-1",
		FromStatus: models.StatusPendingTutor,
		ToStatus:   models.StatusPendingHOD,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows := sqlmock.NewRows([]string{"status", "total"}).
		AddRow("Pending Tutor Approval", 3).
		AddRow("Approved", 5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.status, COUNT(*) AS total")).
		WithArgs("b-1").
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background(), models.RequestFilter{BatchID: "b-1"})
	require.NoError(t, err)
	require.Equal(t, 3, counts[models.StatusPendingTutor])
	require.Equal(t, 5, counts[models.StatusApproved])
	require.NoError(t, mock.ExpectationsWereMet())
}
