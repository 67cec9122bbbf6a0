package authz

import "time"

// PermissionGroup is a named, reusable bundle of permissions assignable to
// users. Membership is a set under permission value equality: no two members
// may share the same (service, name) pair. Every attribute or membership
// mutation touches UpdatedAt.
type PermissionGroup struct {
	id          string
	name        string
	description string
	permissions []Permission
	createdAt   time.Time
	updatedAt   time.Time
}

// NewPermissionGroup creates an empty group.
func NewPermissionGroup(id, name, description string) *PermissionGroup {
	now := time.Now().UTC()
	return &PermissionGroup{
		id:          id,
		name:        name,
		description: description,
		createdAt:   now,
		updatedAt:   now,
	}
}

// RestorePermissionGroup reconstitutes a group from persisted state. Stored
// membership is trusted to satisfy the uniqueness invariant.
func RestorePermissionGroup(id, name, description string, permissions []Permission, createdAt, updatedAt time.Time) *PermissionGroup {
	g := &PermissionGroup{
		id:          id,
		name:        name,
		description: description,
		permissions: make([]Permission, len(permissions)),
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
	copy(g.permissions, permissions)
	return g
}

func (g *PermissionGroup) ID() string           { return g.id }
func (g *PermissionGroup) Name() string         { return g.name }
func (g *PermissionGroup) Description() string  { return g.description }
func (g *PermissionGroup) CreatedAt() time.Time { return g.createdAt }
func (g *PermissionGroup) UpdatedAt() time.Time { return g.updatedAt }

// Permissions returns a copy of the membership; mutating the returned slice
// does not affect the group.
func (g *PermissionGroup) Permissions() []Permission {
	out := make([]Permission, len(g.permissions))
	copy(out, g.permissions)
	return out
}

// Rename updates the group name and touches UpdatedAt.
func (g *PermissionGroup) Rename(name string) {
	g.name = name
	g.touch()
}

// SetDescription updates the description and touches UpdatedAt.
func (g *PermissionGroup) SetDescription(description string) {
	g.description = description
	g.touch()
}

// AddPermission appends p to the membership. It fails with
// ErrPermissionAssigned when an equal permission is already a member.
func (g *PermissionGroup) AddPermission(p Permission) error {
	if g.HasPermission(p.Ref()) {
		return errf(KindPermissionAssigned,
			"permission %s already assigned to group %s for service %s",
			p.Name, g.name, p.Service.Name)
	}
	g.permissions = append(g.permissions, p)
	g.touch()
	return nil
}

// RemovePermission removes every member equal to ref. It fails with
// ErrPermissionNotInGroup when nothing was removed.
func (g *PermissionGroup) RemovePermission(ref PermissionRef) error {
	kept := g.permissions[:0]
	for _, p := range g.permissions {
		if !p.Matches(ref) {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(g.permissions) {
		return errf(KindPermissionNotInGroup,
			"permission %s of service %s not found in group %s",
			ref.PermissionName, ref.ServiceName, g.name)
	}
	g.permissions = kept
	g.touch()
	return nil
}

// HasPermission reports membership under value equality.
func (g *PermissionGroup) HasPermission(ref PermissionRef) bool {
	for _, p := range g.permissions {
		if p.Matches(ref) {
			return true
		}
	}
	return false
}

func (g *PermissionGroup) touch() {
	g.updatedAt = time.Now().UTC()
}
