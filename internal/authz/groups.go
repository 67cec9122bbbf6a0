package authz

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// GroupUpdate is a partial update; nil fields are left untouched. A field is
// never cleared by omission.
type GroupUpdate struct {
	Name        *string
	Description *string
}

// GroupFilter narrows a group search. An empty filter means "all of the
// user's groups".
type GroupFilter struct {
	Name string
}

func (f GroupFilter) empty() bool {
	return strings.TrimSpace(f.Name) == ""
}

// PermissionGroupService orchestrates group CRUD, search and membership.
// Read-modify-write sequences against one group are serialized in-process
// with a per-group-id mutex; cross-process callers still rely on the
// repository's transaction semantics.
type PermissionGroupService struct {
	groups GroupStore
	newID  IDGenerator
	locks  keyedMutex
}

// NewPermissionGroupService wires the group orchestration.
func NewPermissionGroupService(groups GroupStore, newID IDGenerator) (*PermissionGroupService, error) {
	if groups == nil {
		return nil, internalf("group store is required")
	}
	if newID == nil {
		newID = NewUUID
	}
	return &PermissionGroupService{groups: groups, newID: newID}, nil
}

// CreateGroup creates an empty group and, when ownerUserID is given, makes
// the creator its first member. Fails with already-exists when the name is
// taken.
func (s *PermissionGroupService) CreateGroup(ctx context.Context, name, description, ownerUserID string) (*PermissionGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("group name is required")
	}
	if _, err := s.groups.FindGroupByName(ctx, name); err == nil {
		return nil, conflictf("permission group with name %s already exists", name)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	group := NewPermissionGroup(s.newID(), name, strings.TrimSpace(description))
	if err := s.groups.CreateGroup(ctx, group); err != nil {
		return nil, err
	}
	if ownerUserID != "" {
		if err := s.groups.AssignUser(ctx, group.ID(), ownerUserID); err != nil {
			return nil, err
		}
	}
	return group, nil
}

// GetGroup loads a group by id.
func (s *PermissionGroupService) GetGroup(ctx context.Context, id string) (*PermissionGroup, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalidf("group id is required")
	}
	return s.groups.FindGroup(ctx, id)
}

// GetGroupByName loads a group by its unique name.
func (s *PermissionGroupService) GetGroupByName(ctx context.Context, name string) (*PermissionGroup, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalidf("group name is required")
	}
	return s.groups.FindGroupByName(ctx, name)
}

// UpdateGroup applies a partial update. Fails with not-found when the group
// does not exist; omitted fields stay as they are.
func (s *PermissionGroupService) UpdateGroup(ctx context.Context, id string, upd GroupUpdate) (*PermissionGroup, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	group, err := s.groups.FindGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, invalidf("group name is required")
		}
		group.Rename(name)
	}
	if upd.Description != nil {
		group.SetDescription(strings.TrimSpace(*upd.Description))
	}
	if err := s.groups.UpdateGroup(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup removes a group; membership rows cascade in storage.
func (s *PermissionGroupService) DeleteGroup(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if _, err := s.groups.FindGroup(ctx, id); err != nil {
		return err
	}
	return s.groups.DeleteGroup(ctx, id)
}

// GetUserGroups returns the groups the user belongs to. A user with no
// groups is reported as not-found rather than an empty success.
func (s *PermissionGroupService) GetUserGroups(ctx context.Context, userID string) ([]*PermissionGroup, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalidf("user id is required")
	}
	groups, err := s.groups.FindUserGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, notFoundf("no permission groups found for user with id %s", userID)
	}
	return groups, nil
}

// SearchGroups filters the user's groups. Without filter fields it behaves
// exactly like GetUserGroups, including its not-found-on-empty result; with
// a name filter it returns the (possibly empty) subset whose names contain
// the pattern, case-insensitively.
func (s *PermissionGroupService) SearchGroups(ctx context.Context, filter GroupFilter, userID string) ([]*PermissionGroup, error) {
	if filter.empty() {
		return s.GetUserGroups(ctx, userID)
	}
	groups, err := s.groups.FindUserGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	pattern := strings.ToLower(strings.TrimSpace(filter.Name))
	matched := make([]*PermissionGroup, 0, len(groups))
	for _, g := range groups {
		if strings.Contains(strings.ToLower(g.Name()), pattern) {
			matched = append(matched, g)
		}
	}
	return matched, nil
}

// AddPermissionsToGroup adds the batch to the group's membership. Fails with
// not-found when the group does not exist and with permission-already-assigned
// when any entry is already a member under value equality.
func (s *PermissionGroupService) AddPermissionsToGroup(ctx context.Context, groupID string, permissions []Permission) error {
	if len(permissions) == 0 {
		return nil
	}
	unlock := s.locks.lock(groupID)
	defer unlock()

	group, err := s.groups.FindGroup(ctx, groupID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(permissions))
	for _, p := range permissions {
		if err := group.AddPermission(p); err != nil {
			return err
		}
		ids = append(ids, p.ID)
	}
	return s.groups.AddGroupPermissions(ctx, groupID, ids)
}

// RemovePermissionsFromGroup removes the batch from the group's membership.
// Fails with not-found when the group does not exist and with
// permission-not-found-in-group when any entry is not a member.
func (s *PermissionGroupService) RemovePermissionsFromGroup(ctx context.Context, groupID string, permissions []Permission) error {
	if len(permissions) == 0 {
		return nil
	}
	unlock := s.locks.lock(groupID)
	defer unlock()

	group, err := s.groups.FindGroup(ctx, groupID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(permissions))
	for _, p := range permissions {
		if err := group.RemovePermission(p.Ref()); err != nil {
			return err
		}
		ids = append(ids, p.ID)
	}
	return s.groups.RemoveGroupPermissions(ctx, groupID, ids)
}

// AddUserToGroup makes the user a member of the group.
func (s *PermissionGroupService) AddUserToGroup(ctx context.Context, groupID, userID string) error {
	unlock := s.locks.lock(groupID)
	defer unlock()

	if _, err := s.groups.FindGroup(ctx, groupID); err != nil {
		return err
	}
	return s.groups.AssignUser(ctx, groupID, userID)
}

// RemoveUserFromGroup withdraws the user's membership.
func (s *PermissionGroupService) RemoveUserFromGroup(ctx context.Context, groupID, userID string) error {
	unlock := s.locks.lock(groupID)
	defer unlock()

	if _, err := s.groups.FindGroup(ctx, groupID); err != nil {
		return err
	}
	return s.groups.RemoveUser(ctx, groupID, userID)
}

// keyedMutex serializes work per string key. Entries are kept for the
// process lifetime; the key space is bounded by the number of groups.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
