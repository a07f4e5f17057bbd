package api

// ──────────────────────────────────────────────────
// Action requests
// ──────────────────────────────────────────────────

// ProposeActionRequest is the body for recording an agent-proposed action.
type ProposeActionRequest struct {
	AgentID          string         `json:"agent_id" description:"Proposing agent identifier"`
	AgentName        string         `json:"agent_name,omitempty" description:"Human-readable agent name"`
	AgentType        string         `json:"agent_type" description:"Agent category (maintenance, leasing, finance)"`
	ActionType       string         `json:"action_type" description:"Kind of action proposed"`
	EntityType       string         `json:"entity_type,omitempty" description:"Affected entity type (work_orders, invoices)"`
	EntityID         string         `json:"entity_id,omitempty" description:"Affected entity identifier"`
	Reasoning        string         `json:"reasoning" description:"Why the agent proposes this action"`
	Confidence       float64        `json:"confidence" description:"Agent confidence in [0,1]"`
	Impact           string         `json:"impact,omitempty" description:"Impact level (low, medium, high)"`
	RequiresApproval bool           `json:"requires_approval" description:"Whether human review is requested"`
	Metadata         map[string]any `json:"metadata,omitempty" description:"Custom metadata"`
}

// DecideRequest is the body for a single review decision.
type DecideRequest struct {
	Reason string `json:"reason,omitempty" description:"Rejection reason (recorded in action metadata)"`
}

// BulkDecideRequest is the body for a batch review decision.
type BulkDecideRequest struct {
	ActionIDs []string `json:"action_ids" description:"Actions to decide"`
	Decision  string   `json:"decision" description:"Decision to apply (approve or reject)"`
	Reason    string   `json:"reason,omitempty" description:"Rejection reason applied to every item"`
}

// GetActionRequest is the path parameter for getting an action.
type GetActionRequest struct {
	ActionID string `path:"actionId" description:"Action ID"`
}

// ListActionsRequest holds query parameters for listing ledger entries.
type ListActionsRequest struct {
	Status     string `query:"status" description:"Filter by status"`
	AgentID    string `query:"agent_id" description:"Filter by proposing agent"`
	ActionType string `query:"action_type" description:"Filter by action type"`
	EntityType string `query:"entity_type" description:"Filter by entity type"`
	After      string `query:"after" description:"Created after (RFC3339)"`
	Before     string `query:"before" description:"Created before (RFC3339)"`
	Limit      int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset     int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// CreateRoleRequest is the body for creating a custom role.
type CreateRoleRequest struct {
	Name        string   `json:"name" description:"Role name"`
	Description string   `json:"description,omitempty" description:"Human-readable description"`
	Permissions []string `json:"permissions,omitempty" description:"Permission tokens (unknown tokens are dropped)"`
}

// UpdateRoleRequest is the body for updating a custom role.
type UpdateRoleRequest struct {
	Name        string   `json:"name,omitempty" description:"Role name"`
	Description string   `json:"description,omitempty" description:"Human-readable description"`
	Permissions []string `json:"permissions,omitempty" description:"Replacement permission tokens"`
}

// GetRoleRequest is the path parameter for getting a role.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// ListRolesRequest holds query parameters for listing roles.
type ListRolesRequest struct {
	Search string `query:"search" description:"Search by name"`
	Limit  int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// AssignRoleRequest is the body for binding a user to a role.
type AssignRoleRequest struct {
	UserID   string `json:"user_id" description:"User to bind"`
	RoleName string `json:"role_name" description:"Role to assign (built-in or custom)"`
}

// UnassignRoleRequest is the path parameter for removing a user's role.
type UnassignRoleRequest struct {
	UserID string `path:"userId" description:"User whose membership to remove"`
}

// ListMembershipsRequest holds query parameters for listing memberships.
type ListMembershipsRequest struct {
	UserID   string `query:"user_id" description:"Filter by user"`
	RoleName string `query:"role_name" description:"Filter by role name"`
	Limit    int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset   int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Permission check requests
// ──────────────────────────────────────────────────

// CheckRequest is the body for a permission check.
type CheckRequest struct {
	RoleName   string `json:"role_name,omitempty" description:"Role to check (mutually exclusive with user_id)"`
	UserID     string `json:"user_id,omitempty" description:"User to check via membership"`
	Permission string `json:"permission" description:"Required permission token (resource:verb)"`
}

// ResolvePermissionsRequest holds query parameters for resolving a role.
type ResolvePermissionsRequest struct {
	RoleName string `query:"role" description:"Role name to resolve"`
}

// ──────────────────────────────────────────────────
// Activity requests
// ──────────────────────────────────────────────────

// RecentActivityRequest holds query parameters for the recent feed.
type RecentActivityRequest struct {
	Scope string `query:"scope" description:"Activity scope (entity type, default: all)"`
	Limit int    `query:"limit" description:"Maximum records"`
}

// StreamActivityRequest holds query parameters for the live stream.
type StreamActivityRequest struct {
	Scope string `query:"scope" description:"Activity scope (entity type, default: all)"`
}
