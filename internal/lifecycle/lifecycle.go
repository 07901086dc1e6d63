// Package lifecycle owns the certificate request status state machine. The
// functions here are pure: they validate a requested transition against the
// current status and the acting role, and say what must be written. Whether
// the actor may touch this particular request (batch/department scoping) is
// the caller's concern, as is performing the status write atomically.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/zoro24a/bonafide-api/internal/models"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
)

// SideData carries the extra fields a transition may require: the chosen
// template on the tutor forward, the reason on any return.
type SideData struct {
	TemplateID   string
	ReturnReason string
}

// transition is one legal row of the state machine table.
type transition struct {
	role            models.Role
	from            models.RequestStatus
	to              models.RequestStatus
	needsTemplate   bool
	needsReturnNote bool
}

// table enumerates every legal (role, from, to) combination. The admin
// statuses stay in the vocabulary for historical rows, but no reviewing
// operation routes through them; any office/issuance workflow past Approved
// belongs in a versioned extension of this table, not a widening of it.
var table = []transition{
	{role: models.RoleTutor, from: models.StatusPendingTutor, to: models.StatusPendingHOD, needsTemplate: true},
	{role: models.RoleTutor, from: models.StatusPendingTutor, to: models.StatusReturnedTutor, needsReturnNote: true},
	{role: models.RoleHOD, from: models.StatusPendingHOD, to: models.StatusPendingPrincipal},
	{role: models.RoleHOD, from: models.StatusPendingHOD, to: models.StatusReturnedHOD, needsReturnNote: true},
	{role: models.RolePrincipal, from: models.StatusPendingPrincipal, to: models.StatusApproved},
	{role: models.RolePrincipal, from: models.StatusPendingPrincipal, to: models.StatusReturnedPrincipal, needsReturnNote: true},
}

// Outcome describes the writes a validated transition implies.
type Outcome struct {
	From         models.RequestStatus
	To           models.RequestStatus
	TemplateID   *string
	ReturnReason *string
	// Approved is true when the transition lands in the Approved state,
	// which triggers certificate rendering as a side effect.
	Approved bool
}

// Validate checks that the requested transition is legal for the actor role
// and that its required side data is present. It never mutates the request.
func Validate(req *models.Request, actorRole models.Role, target models.RequestStatus, data SideData) (*Outcome, error) {
	if req == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request is required")
	}
	if req.Status.Terminal() {
		return nil, illegal(fmt.Sprintf("request is already %s", req.Status))
	}

	row, ok := lookup(actorRole, req.Status, target)
	if !ok {
		return nil, illegal(fmt.Sprintf("%s may not move a request from %q to %q", actorRole, req.Status, target))
	}

	outcome := &Outcome{From: req.Status, To: target, Approved: target == models.StatusApproved}

	if row.needsTemplate {
		templateID := strings.TrimSpace(data.TemplateID)
		if templateID == "" {
			return nil, illegal("forwarding from tutor requires a template selection")
		}
		outcome.TemplateID = &templateID
	}
	if row.needsReturnNote {
		reason := strings.TrimSpace(data.ReturnReason)
		if reason == "" {
			return nil, illegal("returning a request requires a return reason")
		}
		outcome.ReturnReason = &reason
	}
	if outcome.Approved && req.TemplateID == nil {
		return nil, illegal("request has no template selected; it cannot be approved")
	}

	return outcome, nil
}

// Targets lists the statuses the actor role may move the request to from its
// current status. Dashboards use it to decide which actions to offer.
func Targets(current models.RequestStatus, actorRole models.Role) []models.RequestStatus {
	var targets []models.RequestStatus
	for _, row := range table {
		if row.role == actorRole && row.from == current {
			targets = append(targets, row.to)
		}
	}
	return targets
}

// PendingStatusFor maps a reviewing role to the status it reviews.
func PendingStatusFor(role models.Role) (models.RequestStatus, bool) {
	switch role {
	case models.RoleTutor:
		return models.StatusPendingTutor, true
	case models.RoleHOD:
		return models.StatusPendingHOD, true
	case models.RolePrincipal:
		return models.StatusPendingPrincipal, true
	}
	return "", false
}

func lookup(role models.Role, from, to models.RequestStatus) (transition, bool) {
	for _, row := range table {
		if row.role == role && row.from == from && row.to == to {
			return row, true
		}
	}
	return transition{}, false
}

func illegal(message string) error {
	return appErrors.Clone(appErrors.ErrIllegalTransition, message)
}
