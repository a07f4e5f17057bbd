package api

// CheckResponse is the response for a permission check.
type CheckResponse struct {
	Allowed    bool   `json:"allowed" description:"Whether the permission is granted"`
	Permission string `json:"permission" description:"Permission token checked"`
	RoleName   string `json:"role_name" description:"Role the check resolved against"`
}

// ResolvePermissionsResponse is the effective permission set of a role.
type ResolvePermissionsResponse struct {
	RoleName    string   `json:"role_name" description:"Role name"`
	Permissions []string `json:"permissions" description:"Effective permission tokens"`
}

// CatalogResponse enumerates the known permission tokens.
type CatalogResponse struct {
	Permissions []string `json:"permissions" description:"Every grantable permission token"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
