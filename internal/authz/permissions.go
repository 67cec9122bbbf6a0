package authz

import (
	"context"
	"strings"
)

// PermissionService reconciles a service's permission catalog against an
// authoritative list and answers authorization queries.
type PermissionService struct {
	perms PermissionStore
	newID IDGenerator
}

// NewPermissionService wires the reconciliation service.
func NewPermissionService(perms PermissionStore, newID IDGenerator) (*PermissionService, error) {
	if perms == nil {
		return nil, internalf("permission store is required")
	}
	if newID == nil {
		newID = NewUUID
	}
	return &PermissionService{perms: perms, newID: newID}, nil
}

// UpdatePermissionsForService synchronizes the persisted permission set of a
// service with the given complete list: new entries are inserted, matching
// ids have name/description updated, and persisted permissions absent from
// the list are deleted. The call is idempotent. All entries must belong to
// one service; empty or mixed input is an internal invariant violation, not
// a caller-visible condition.
func (s *PermissionService) UpdatePermissionsForService(ctx context.Context, permissions []Permission) error {
	serviceID, err := singleServiceID(permissions)
	if err != nil {
		return err
	}
	for i := range permissions {
		if strings.TrimSpace(permissions[i].Name) == "" {
			return internalf("permission without a name in reconciliation input for service %s", serviceID)
		}
		if permissions[i].ID == "" {
			permissions[i].ID = s.newID()
		}
	}
	return s.perms.SyncForService(ctx, serviceID, permissions)
}

// HasPermission reports whether the user holds the named permission on the
// named service through any of their groups.
func (s *PermissionService) HasPermission(ctx context.Context, userID, serviceName, permissionName string) (bool, error) {
	permissions, err := s.PermissionsForService(ctx, userID, serviceName)
	if err != nil {
		return false, err
	}
	for _, p := range permissions {
		if p.Name == permissionName {
			return true, nil
		}
	}
	return false, nil
}

// CatalogForService lists every permission registered for a service,
// regardless of group membership.
func (s *PermissionService) CatalogForService(ctx context.Context, serviceID string) ([]Permission, error) {
	if strings.TrimSpace(serviceID) == "" {
		return nil, invalidf("service id is required")
	}
	return s.perms.FindServicePermissions(ctx, serviceID)
}

// PermissionsForService lists the user's permissions scoped to a service.
func (s *PermissionService) PermissionsForService(ctx context.Context, userID, serviceName string) ([]Permission, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(serviceName) == "" {
		return nil, invalidf("user id and service name are required")
	}
	return s.perms.FindUserPermissions(ctx, userID, serviceName)
}

// singleServiceID extracts the one service id all entries must share.
func singleServiceID(permissions []Permission) (string, error) {
	if len(permissions) == 0 {
		return "", internalf("cannot infer service id from an empty permission list")
	}
	serviceID := permissions[0].Service.ID
	if serviceID == "" {
		return "", internalf("permission %s carries no service id", permissions[0].Name)
	}
	for _, p := range permissions[1:] {
		if p.Service.ID != serviceID {
			return "", internalf("reconciliation input mixes services %s and %s", serviceID, p.Service.ID)
		}
	}
	return serviceID, nil
}
