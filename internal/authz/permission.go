package authz

import "time"

// Service represents a downstream application whose capabilities are gated by
// permissions. Deleting a service cascades to its permissions.
type Service struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is a named capability scoped to exactly one service. The
// (service, name) pair is unique in storage.
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Service     Service   `json:"service"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionRef identifies a permission by value rather than identity.
type PermissionRef struct {
	ServiceName    string `json:"service_name"`
	PermissionName string `json:"permission_name"`
}

// Ref returns the value identity of the permission.
func (p Permission) Ref() PermissionRef {
	return PermissionRef{ServiceName: p.Service.Name, PermissionName: p.Name}
}

// Equal compares by service name and permission name, never by id. Two
// permissions with distinct ids but the same service and name are
// interchangeable; reconciliation and group membership depend on this.
func (p Permission) Equal(other Permission) bool {
	return p.Name == other.Name && p.Service.Name == other.Service.Name
}

// Matches reports whether the permission has the given value identity.
func (p Permission) Matches(ref PermissionRef) bool {
	return p.Name == ref.PermissionName && p.Service.Name == ref.ServiceName
}
