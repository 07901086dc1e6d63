package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoro24a/bonafide-api/internal/models"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
)

func strPtr(s string) *string { return &s }

func pendingRequest(status models.RequestStatus) *models.Request {
	return &models.Request{ID: "req-1", StudentID: "stu-1", Status: status}
}

func TestValidateTutorForwardRequiresTemplate(t *testing.T) {
	req := pendingRequest(models.StatusPendingTutor)

	_, err := Validate(req, models.RoleTutor, models.StatusPendingHOD, SideData{})
	assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))

	outcome, err := Validate(req, models.RoleTutor, models.StatusPendingHOD, SideData{TemplateID: " tmpl-1 "})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingTutor, outcome.From)
	assert.Equal(t, models.StatusPendingHOD, outcome.To)
	require.NotNil(t, outcome.TemplateID)
	assert.Equal(t, "tmpl-1", *outcome.TemplateID)
	assert.False(t, outcome.Approved)
}

func TestValidateReturnRequiresReason(t *testing.T) {
	for _, tc := range []struct {
		role   models.Role
		from   models.RequestStatus
		target models.RequestStatus
	}{
		{models.RoleTutor, models.StatusPendingTutor, models.StatusReturnedTutor},
		{models.RoleHOD, models.StatusPendingHOD, models.StatusReturnedHOD},
		{models.RolePrincipal, models.StatusPendingPrincipal, models.StatusReturnedPrincipal},
	} {
		_, err := Validate(pendingRequest(tc.from), tc.role, tc.target, SideData{ReturnReason: "  "})
		assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition), "role %s", tc.role)

		outcome, err := Validate(pendingRequest(tc.from), tc.role, tc.target, SideData{ReturnReason: "incomplete details"})
		require.NoError(t, err)
		require.NotNil(t, outcome.ReturnReason)
		assert.Equal(t, "incomplete details", *outcome.ReturnReason)
	}
}

func TestValidateHODForward(t *testing.T) {
	outcome, err := Validate(pendingRequest(models.StatusPendingHOD), models.RoleHOD, models.StatusPendingPrincipal, SideData{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingPrincipal, outcome.To)
	assert.Nil(t, outcome.TemplateID)
	assert.Nil(t, outcome.ReturnReason)
}

func TestValidatePrincipalApproval(t *testing.T) {
	req := pendingRequest(models.StatusPendingPrincipal)
	req.TemplateID = strPtr("tmpl-1")

	outcome, err := Validate(req, models.RolePrincipal, models.StatusApproved, SideData{})
	require.NoError(t, err)
	assert.True(t, outcome.Approved)
	assert.Equal(t, models.StatusApproved, outcome.To)
}

func TestValidateApprovalWithoutTemplateFails(t *testing.T) {
	req := pendingRequest(models.StatusPendingPrincipal)

	_, err := Validate(req, models.RolePrincipal, models.StatusApproved, SideData{})
	assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))
}

func TestValidateRejectsWrongRoleForStage(t *testing.T) {
	// HOD cannot act on a request that is still at the tutor stage, and a
	// tutor cannot push past their own stage.
	_, err := Validate(pendingRequest(models.StatusPendingTutor), models.RoleHOD, models.StatusPendingPrincipal, SideData{})
	assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))

	_, err = Validate(pendingRequest(models.StatusPendingTutor), models.RoleTutor, models.StatusApproved, SideData{TemplateID: "tmpl-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))

	_, err = Validate(pendingRequest(models.StatusPendingHOD), models.RoleStudent, models.StatusPendingPrincipal, SideData{})
	assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))
}

func TestValidateTerminalStatesAreFinal(t *testing.T) {
	for _, status := range []models.RequestStatus{
		models.StatusApproved,
		models.StatusReturnedTutor,
		models.StatusReturnedHOD,
		models.StatusReturnedAdmin,
		models.StatusReturnedPrincipal,
	} {
		_, err := Validate(pendingRequest(status), models.RolePrincipal, models.StatusApproved, SideData{})
		assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition), "status %s", status)
	}
}

func TestValidateNilRequest(t *testing.T) {
	_, err := Validate(nil, models.RoleTutor, models.StatusPendingHOD, SideData{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestTargets(t *testing.T) {
	targets := Targets(models.StatusPendingTutor, models.RoleTutor)
	assert.ElementsMatch(t, []models.RequestStatus{models.StatusPendingHOD, models.StatusReturnedTutor}, targets)

	assert.Empty(t, Targets(models.StatusPendingTutor, models.RolePrincipal))
	assert.Empty(t, Targets(models.StatusApproved, models.RolePrincipal))
}

func TestPendingStatusFor(t *testing.T) {
	status, ok := PendingStatusFor(models.RoleTutor)
	require.True(t, ok)
	assert.Equal(t, models.StatusPendingTutor, status)

	status, ok = PendingStatusFor(models.RoleHOD)
	require.True(t, ok)
	assert.Equal(t, models.StatusPendingHOD, status)

	status, ok = PendingStatusFor(models.RolePrincipal)
	require.True(t, ok)
	assert.Equal(t, models.StatusPendingPrincipal, status)

	_, ok = PendingStatusFor(models.RoleAdmin)
	assert.False(t, ok)
}
