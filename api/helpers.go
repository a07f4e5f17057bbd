package api

import (
	"errors"

	"github.com/xraph/forge"

	"github.com/xraph/steward"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, steward.ErrUnauthorized) || errors.Is(err, steward.ErrForbidden) {
		return forge.Forbidden(err.Error())
	}
	if errors.Is(err, steward.ErrInvalidProposal) || errors.Is(err, steward.ErrInvalidDecision) ||
		errors.Is(err, steward.ErrValidation) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, steward.ErrAlreadyProcessed) || errors.Is(err, steward.ErrDefaultRoleImmutable) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, steward.ErrRoleNameTaken) || errors.Is(err, steward.ErrRoleInUse) {
		return forge.BadRequest(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, steward.ErrActionNotFound) ||
		errors.Is(err, steward.ErrRoleNotFound) ||
		errors.Is(err, steward.ErrMembershipNotFound)
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

// reviewerFromContext resolves the acting reviewer from the authenticated
// request. The role comes from the user's membership; users without one act
// with viewer-level access. A request without an identity yields nil, which
// the engine rejects with ErrUnauthorized.
func (a *API) reviewerFromContext(ctx forge.Context) *steward.Reviewer {
	userID := forge.UserIDFromContext(ctx.Context())
	if userID == "" {
		return nil
	}
	reviewer := &steward.Reviewer{ID: userID, Role: steward.RoleViewer}
	if m, err := a.eng.MembershipForUser(ctx.Context(), userID); err == nil {
		reviewer.Role = m.RoleName
	}
	return reviewer
}
