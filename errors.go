package steward

import "errors"

var (
	// ErrUnauthorized is returned when no actor identity is present.
	ErrUnauthorized = errors.New("steward: identity required")

	// ErrForbidden is returned when the actor's permissions are insufficient.
	ErrForbidden = errors.New("steward: permission denied")

	// ErrActionNotFound is returned when an action cannot be found.
	ErrActionNotFound = errors.New("steward: action not found")

	// ErrRoleNotFound is returned when a role cannot be found.
	ErrRoleNotFound = errors.New("steward: role not found")

	// ErrMembershipNotFound is returned when a role membership cannot be found.
	ErrMembershipNotFound = errors.New("steward: membership not found")

	// ErrRoleNameTaken is returned when a role name collides with an
	// existing custom role or a built-in default role.
	ErrRoleNameTaken = errors.New("steward: role name already taken")

	// ErrRoleInUse is returned when deleting a role that users still hold.
	ErrRoleInUse = errors.New("steward: role is in use")

	// ErrDefaultRoleImmutable is returned when trying to modify or delete
	// a built-in default role.
	ErrDefaultRoleImmutable = errors.New("steward: default role cannot be modified")

	// ErrInvalidDecision is returned for a decision value other than
	// approve or reject.
	ErrInvalidDecision = errors.New("steward: invalid decision")

	// ErrAlreadyProcessed is returned when deciding on an action that is
	// no longer pending.
	ErrAlreadyProcessed = errors.New("steward: action already processed")

	// ErrInvalidProposal is returned for a malformed action proposal.
	ErrInvalidProposal = errors.New("steward: invalid proposal")

	// ErrValidation is returned for malformed administrative input, such
	// as an empty role name, an empty user ID, or an oversized decision
	// batch.
	ErrValidation = errors.New("steward: invalid input")
)
