package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"gatekeeper.dev/internal/audit"
	"gatekeeper.dev/internal/authz"
)

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type groupPermissionsRequest struct {
	ServiceID   string   `json:"serviceId"`
	Permissions []string `json:"permissions"`
}

type groupMemberRequest struct {
	UserID string `json:"userId"`
}

// groupResponse is the wire shape of a permission group.
type groupResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Permissions []authz.Permission `json:"permissions"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func toGroupResponse(g *authz.PermissionGroup) groupResponse {
	perms := g.Permissions()
	if perms == nil {
		perms = []authz.Permission{}
	}
	return groupResponse{
		ID:          g.ID(),
		Name:        g.Name(),
		Description: g.Description(),
		Permissions: perms,
		CreatedAt:   g.CreatedAt(),
		UpdatedAt:   g.UpdatedAt(),
	}
}

func toGroupResponses(groups []*authz.PermissionGroup) []groupResponse {
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupResponse(g))
	}
	return out
}

func (a *API) handleGroups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createGroup(w, r)
	case http.MethodGet:
		a.searchGroups(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) createGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	group, err := a.groups.CreateGroup(r.Context(), req.Name, req.Description, userID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "authz.group.created", map[string]any{
		"group_id": group.ID(),
		"name":     group.Name(),
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/groups/%s", group.ID()))
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (a *API) searchGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	filter := authz.GroupFilter{Name: r.URL.Query().Get("name")}
	groups, err := a.groups.SearchGroups(r.Context(), filter, userID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": toGroupResponses(groups),
	})
}

func (a *API) handleGroupResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/groups/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	groupID := parts[0]
	switch {
	case len(parts) == 1:
		a.handleGroup(w, r, groupID)
	case len(parts) == 2 && parts[1] == "permissions":
		a.handleGroupPermissions(w, r, groupID)
	case len(parts) == 2 && parts[1] == "users":
		a.handleGroupMembers(w, r, groupID)
	case len(parts) == 3 && parts[1] == "users":
		a.handleGroupMember(w, r, groupID, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleGroup(w http.ResponseWriter, r *http.Request, groupID string) {
	switch r.Method {
	case http.MethodGet:
		group, err := a.groups.GetGroup(r.Context(), groupID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toGroupResponse(group))
	case http.MethodPatch:
		var req updateGroupRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		group, err := a.groups.UpdateGroup(r.Context(), groupID, authz.GroupUpdate{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "authz.group.updated", map[string]any{
			"group_id": groupID,
		})
		writeJSON(w, http.StatusOK, toGroupResponse(group))
	case http.MethodDelete:
		if err := a.groups.DeleteGroup(r.Context(), groupID); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "authz.group.deleted", map[string]any{
			"group_id": groupID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleGroupPermissions(w http.ResponseWriter, r *http.Request, groupID string) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodPost, http.MethodDelete)
		return
	}
	var req groupPermissionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ServiceID) == "" {
		writeError(w, r, http.StatusBadRequest, "serviceId is required")
		return
	}
	if len(req.Permissions) == 0 {
		writeError(w, r, http.StatusBadRequest, "permissions are required")
		return
	}
	selected, err := a.resolvePermissions(w, r, req.ServiceID, req.Permissions)
	if err != nil {
		return
	}

	if r.Method == http.MethodPost {
		err = a.groups.AddPermissionsToGroup(r.Context(), groupID, selected)
	} else {
		err = a.groups.RemovePermissionsFromGroup(r.Context(), groupID, selected)
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "authz.group.permissions.changed", map[string]any{
		"group_id": groupID,
		"count":    len(selected),
		"method":   r.Method,
	})
	group, err := a.groups.GetGroup(r.Context(), groupID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

// resolvePermissions maps permission names to catalog entries of a service.
// It writes the error response itself so callers just bail out.
func (a *API) resolvePermissions(w http.ResponseWriter, r *http.Request, serviceID string, names []string) ([]authz.Permission, error) {
	catalog, err := a.perms.CatalogForService(r.Context(), serviceID)
	if err != nil {
		handleDomainError(w, r, err)
		return nil, err
	}
	byName := make(map[string]authz.Permission, len(catalog))
	for _, p := range catalog {
		byName[p.Name] = p
	}
	selected := make([]authz.Permission, 0, len(names))
	for _, name := range names {
		p, ok := byName[strings.TrimSpace(name)]
		if !ok {
			err := fmt.Errorf("permission %s not registered for service", name)
			writeError(w, r, http.StatusNotFound, err.Error())
			return nil, err
		}
		selected = append(selected, p)
	}
	return selected, nil
}

func (a *API) handleGroupMembers(w http.ResponseWriter, r *http.Request, groupID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req groupMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, r, http.StatusBadRequest, "userId is required")
		return
	}
	if err := a.groups.AddUserToGroup(r.Context(), groupID, req.UserID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "authz.group.member.added", map[string]any{
		"group_id": groupID,
		"user_id":  req.UserID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGroupMember(w http.ResponseWriter, r *http.Request, groupID, userID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if err := a.groups.RemoveUserFromGroup(r.Context(), groupID, userID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "authz.group.member.removed", map[string]any{
		"group_id": groupID,
		"user_id":  userID,
	})
	w.WriteHeader(http.StatusNoContent)
}
