package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoro24a/bonafide-api/internal/models"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
)

type statusCounterStub struct {
	counts  map[models.RequestStatus]int
	filters []models.RequestFilter
}

func (s *statusCounterStub) CountByStatus(ctx context.Context, filter models.RequestFilter) (map[models.RequestStatus]int, error) {
	s.filters = append(s.filters, filter)
	return s.counts, nil
}

type queryObserverStub struct {
	labels []string
}

func (s *queryObserverStub) ObserveDBQuery(label string, duration time.Duration) {
	s.labels = append(s.labels, label)
}

func TestDashboardSummaryAggregatesByScope(t *testing.T) {
	counter := &statusCounterStub{counts: map[models.RequestStatus]int{
		models.StatusPendingHOD:    3,
		models.StatusApproved:      5,
		models.StatusReturnedTutor: 1,
	}}
	svc := NewDashboardService(counter, &studentResolverStub{}, nil, time.Minute, nil)

	dept := "dept-1"
	summary, err := svc.Summary(context.Background(), &models.JWTClaims{ProfileID: "prof-1", Role: models.RoleHOD, DepartmentID: &dept})
	require.NoError(t, err)
	assert.Equal(t, "department:dept-1", summary.Scope)
	assert.Equal(t, 9, summary.Total)
	assert.Equal(t, 3, summary.Pending)
	assert.Equal(t, 5, summary.Approved)
	assert.Equal(t, 1, summary.Returned)

	require.Len(t, counter.filters, 1)
	assert.Equal(t, "dept-1", counter.filters[0].DepartmentID)
}

func TestDashboardSummaryRejectsAnonymousCaller(t *testing.T) {
	svc := NewDashboardService(&statusCounterStub{}, &studentResolverStub{}, nil, time.Minute, nil)

	_, err := svc.Summary(context.Background(), nil)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestDashboardSummaryObservesCountQuery(t *testing.T) {
	counter := &statusCounterStub{counts: map[models.RequestStatus]int{models.StatusApproved: 2}}
	observer := &queryObserverStub{}
	svc := NewDashboardService(counter, &studentResolverStub{}, nil, time.Minute, nil, WithQueryObserver(observer))

	_, err := svc.Summary(context.Background(), &models.JWTClaims{ProfileID: "prof-9", Role: models.RolePrincipal})
	require.NoError(t, err)
	require.Len(t, observer.labels, 1)
	assert.Equal(t, "requests.count_by_status", observer.labels[0])
}
