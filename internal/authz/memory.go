package authz

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety. It backs
// development mode and tests; durable deployments use the Postgres store.
type InMemory struct {
	mu         sync.RWMutex
	users      map[string]*User
	services   map[string]*Service
	perms      map[string]*Permission
	groups     map[string]*groupRow
	groupPerms map[string][]string        // group id -> ordered permission ids
	userGroups map[string]map[string]bool // user id -> group ids
}

type groupRow struct {
	id          string
	name        string
	description string
	createdAt   time.Time
	updatedAt   time.Time
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:      make(map[string]*User),
		services:   make(map[string]*Service),
		perms:      make(map[string]*Permission),
		groups:     make(map[string]*groupRow),
		groupPerms: make(map[string][]string),
		userGroups: make(map[string]map[string]bool),
	}
}

// --- users ---

func (s *InMemory) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return conflictf("user with username %s already exists", u.Username)
		}
		if existing.Email == u.Email {
			return conflictf("user with email %s already exists", u.Email)
		}
	}
	now := time.Now().UTC()
	cp := *u
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = now
	}
	s.users[cp.ID] = &cp
	*u = cp
	return nil
}

func (s *InMemory) FindUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFoundf("user with id %s not found", id)
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFoundf("user with username %s not found", username)
}

func (s *InMemory) UpdateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return notFoundf("user with id %s not found", u.ID)
	}
	cp := *u
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	s.users[cp.ID] = &cp
	return nil
}

func (s *InMemory) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return notFoundf("user with id %s not found", id)
	}
	delete(s.users, id)
	delete(s.userGroups, id)
	return nil
}

// --- services ---

func (s *InMemory) CreateService(ctx context.Context, svc *Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.services {
		if existing.Name == svc.Name {
			return conflictf("service with name %s already exists", svc.Name)
		}
	}
	now := time.Now().UTC()
	cp := *svc
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = now
	}
	s.services[cp.ID] = &cp
	*svc = cp
	return nil
}

func (s *InMemory) FindService(ctx context.Context, id string) (*Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, notFoundf("service with id %s not found", id)
	}
	cp := *svc
	return &cp, nil
}

func (s *InMemory) FindServiceByName(ctx context.Context, name string) (*Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, svc := range s.services {
		if svc.Name == name {
			cp := *svc
			return &cp, nil
		}
	}
	return nil, notFoundf("service with name %s not found", name)
}

func (s *InMemory) ListServices(ctx context.Context) ([]*Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Service, 0, len(s.services))
	for _, svc := range s.services {
		cp := *svc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) UpdateService(ctx context.Context, id string, upd ServiceUpdate) (*Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, notFoundf("service with id %s not found", id)
	}
	if upd.Name != nil {
		for _, other := range s.services {
			if other.ID != id && other.Name == *upd.Name {
				return nil, conflictf("service with name %s already exists", *upd.Name)
			}
		}
		svc.Name = *upd.Name
	}
	if upd.Description != nil {
		svc.Description = *upd.Description
	}
	if upd.URL != nil {
		svc.URL = *upd.URL
	}
	if upd.Icon != nil {
		svc.Icon = *upd.Icon
	}
	if upd.Version != nil {
		svc.Version = *upd.Version
	}
	svc.UpdatedAt = time.Now().UTC()
	cp := *svc
	return &cp, nil
}

func (s *InMemory) DeleteService(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[id]; !ok {
		return notFoundf("service with id %s not found", id)
	}
	delete(s.services, id)
	for permID, p := range s.perms {
		if p.Service.ID == id {
			s.deletePermissionLocked(permID)
		}
	}
	return nil
}

// --- permissions ---

func (s *InMemory) SyncForService(ctx context.Context, serviceID string, permissions []Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := make(map[string]*Permission)
	for _, p := range s.perms {
		if p.Service.ID == serviceID {
			byName[p.Name] = p
		}
	}

	now := time.Now().UTC()
	wanted := make(map[string]bool, len(permissions))
	for _, in := range permissions {
		wanted[in.Name] = true
		if existing, ok := byName[in.Name]; ok {
			if existing.Description != in.Description {
				existing.Description = in.Description
				existing.UpdatedAt = now
			}
			continue
		}
		cp := in
		cp.CreatedAt = now
		cp.UpdatedAt = now
		s.perms[cp.ID] = &cp
	}
	for permID, p := range s.perms {
		if p.Service.ID == serviceID && !wanted[p.Name] {
			s.deletePermissionLocked(permID)
		}
	}
	return nil
}

func (s *InMemory) FindUserPermissions(ctx context.Context, userID, serviceName string) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []Permission
	for groupID := range s.userGroups[userID] {
		for _, permID := range s.groupPerms[groupID] {
			p, ok := s.perms[permID]
			if !ok || p.Service.Name != serviceName || seen[permID] {
				continue
			}
			seen[permID] = true
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) FindServicePermissions(ctx context.Context, serviceID string) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Permission
	for _, p := range s.perms {
		if p.Service.ID == serviceID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) FindGroupPermissions(ctx context.Context, groupID string) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groupPermissionsLocked(groupID), nil
}

func (s *InMemory) groupPermissionsLocked(groupID string) []Permission {
	ids := s.groupPerms[groupID]
	out := make([]Permission, 0, len(ids))
	for _, permID := range ids {
		if p, ok := s.perms[permID]; ok {
			out = append(out, *p)
		}
	}
	return out
}

func (s *InMemory) deletePermissionLocked(permID string) {
	delete(s.perms, permID)
	for groupID, ids := range s.groupPerms {
		kept := ids[:0]
		for _, id := range ids {
			if id != permID {
				kept = append(kept, id)
			}
		}
		s.groupPerms[groupID] = kept
	}
}

// --- groups ---

func (s *InMemory) CreateGroup(ctx context.Context, g *PermissionGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.groups {
		if row.name == g.Name() {
			return conflictf("permission group with name %s already exists", g.Name())
		}
	}
	s.groups[g.ID()] = &groupRow{
		id:          g.ID(),
		name:        g.Name(),
		description: g.Description(),
		createdAt:   g.CreatedAt(),
		updatedAt:   g.UpdatedAt(),
	}
	return nil
}

func (s *InMemory) FindGroup(ctx context.Context, id string) (*PermissionGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.groups[id]
	if !ok {
		return nil, notFoundf("group with id %s not found", id)
	}
	return s.restoreGroupLocked(row), nil
}

func (s *InMemory) FindGroupByName(ctx context.Context, name string) (*PermissionGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.groups {
		if row.name == name {
			return s.restoreGroupLocked(row), nil
		}
	}
	return nil, notFoundf("group with name %s not found", name)
}

func (s *InMemory) UpdateGroup(ctx context.Context, g *PermissionGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.groups[g.ID()]
	if !ok {
		return notFoundf("group with id %s not found", g.ID())
	}
	row.name = g.Name()
	row.description = g.Description()
	row.updatedAt = g.UpdatedAt()
	return nil
}

func (s *InMemory) DeleteGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return notFoundf("group with id %s not found", id)
	}
	delete(s.groups, id)
	delete(s.groupPerms, id)
	for _, groups := range s.userGroups {
		delete(groups, id)
	}
	return nil
}

func (s *InMemory) FindUserGroups(ctx context.Context, userID string) ([]*PermissionGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*PermissionGroup
	for groupID := range s.userGroups[userID] {
		if row, ok := s.groups[groupID]; ok {
			out = append(out, s.restoreGroupLocked(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (s *InMemory) AddGroupPermissions(ctx context.Context, groupID string, permissionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.groups[groupID]
	if !ok {
		return notFoundf("group with id %s not found", groupID)
	}
	existing := make(map[string]bool, len(s.groupPerms[groupID]))
	for _, id := range s.groupPerms[groupID] {
		existing[id] = true
	}
	for _, permID := range permissionIDs {
		if _, ok := s.perms[permID]; !ok {
			return notFoundf("permission with id %s not found", permID)
		}
		if !existing[permID] {
			s.groupPerms[groupID] = append(s.groupPerms[groupID], permID)
			existing[permID] = true
		}
	}
	row.updatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) RemoveGroupPermissions(ctx context.Context, groupID string, permissionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.groups[groupID]
	if !ok {
		return notFoundf("group with id %s not found", groupID)
	}
	drop := make(map[string]bool, len(permissionIDs))
	for _, id := range permissionIDs {
		drop[id] = true
	}
	ids := s.groupPerms[groupID]
	kept := ids[:0]
	for _, id := range ids {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	s.groupPerms[groupID] = kept
	row.updatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) AssignUser(ctx context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return notFoundf("group with id %s not found", groupID)
	}
	if s.userGroups[userID] == nil {
		s.userGroups[userID] = make(map[string]bool)
	}
	s.userGroups[userID][groupID] = true
	return nil
}

func (s *InMemory) RemoveUser(ctx context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return notFoundf("group with id %s not found", groupID)
	}
	delete(s.userGroups[userID], groupID)
	return nil
}

func (s *InMemory) restoreGroupLocked(row *groupRow) *PermissionGroup {
	return RestorePermissionGroup(row.id, row.name, row.description,
		s.groupPermissionsLocked(row.id), row.createdAt, row.updatedAt)
}
