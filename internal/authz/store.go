package authz

import "context"

// UserStore manages user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	FindUser(ctx context.Context, id string) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) error
}

// ServiceUpdate is a partial update; nil fields are left untouched.
type ServiceUpdate struct {
	Name        *string
	Description *string
	URL         *string
	Icon        *string
	Version     *string
}

// ServiceStore manages the registry of downstream services.
type ServiceStore interface {
	CreateService(ctx context.Context, s *Service) error
	FindService(ctx context.Context, id string) (*Service, error)
	FindServiceByName(ctx context.Context, name string) (*Service, error)
	ListServices(ctx context.Context) ([]*Service, error)
	UpdateService(ctx context.Context, id string, upd ServiceUpdate) (*Service, error)
	DeleteService(ctx context.Context, id string) error
}

// PermissionStore manages permissions and authorization lookups.
type PermissionStore interface {
	// SyncForService reconciles the persisted permission set of a service
	// against the given authoritative list: upsert every entry, then delete
	// every persisted permission whose name is absent. Implementations apply
	// both steps in a single transaction where the backend supports it.
	SyncForService(ctx context.Context, serviceID string, permissions []Permission) error
	// FindUserPermissions returns the permissions the user holds through
	// group membership, scoped to the named service.
	FindUserPermissions(ctx context.Context, userID, serviceName string) ([]Permission, error)
	FindServicePermissions(ctx context.Context, serviceID string) ([]Permission, error)
	FindGroupPermissions(ctx context.Context, groupID string) ([]Permission, error)
}

// GroupStore manages permission groups, their membership tables and the
// user-group relation.
type GroupStore interface {
	CreateGroup(ctx context.Context, g *PermissionGroup) error
	FindGroup(ctx context.Context, id string) (*PermissionGroup, error)
	FindGroupByName(ctx context.Context, name string) (*PermissionGroup, error)
	// UpdateGroup persists name, description and updated-at.
	UpdateGroup(ctx context.Context, g *PermissionGroup) error
	DeleteGroup(ctx context.Context, id string) error
	FindUserGroups(ctx context.Context, userID string) ([]*PermissionGroup, error)
	// AddGroupPermissions and RemoveGroupPermissions change membership in one
	// batch and touch the group's updated-at alongside.
	AddGroupPermissions(ctx context.Context, groupID string, permissionIDs []string) error
	RemoveGroupPermissions(ctx context.Context, groupID string, permissionIDs []string) error
	AssignUser(ctx context.Context, groupID, userID string) error
	RemoveUser(ctx context.Context, groupID, userID string) error
}

// Store aggregates every persistence concern of the authorization model.
type Store interface {
	UserStore
	ServiceStore
	PermissionStore
	GroupStore
}
