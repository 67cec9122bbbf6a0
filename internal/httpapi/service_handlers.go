package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"gatekeeper.dev/internal/audit"
	"gatekeeper.dev/internal/authz"
)

type createServiceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Icon        string `json:"icon"`
	Version     string `json:"version"`
}

type updateServiceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
	Icon        *string `json:"icon"`
	Version     *string `json:"version"`
}

type declarePermissionsRequest struct {
	Permissions []declaredPermission `json:"permissions"`
}

type declaredPermission struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *API) handleServices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createServiceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		svc, err := a.registry.CreateService(r.Context(), req.Name, req.Description, req.URL, req.Icon, req.Version)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "authz.service.created", map[string]any{
			"service_id": svc.ID,
			"name":       svc.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/services/%s", svc.ID))
		writeJSON(w, http.StatusCreated, svc)
	case http.MethodGet:
		services, err := a.registry.ListServices(r.Context())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		if services == nil {
			services = []*authz.Service{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"services": services,
		})
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleServiceResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/services/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	serviceID := parts[0]
	switch {
	case len(parts) == 1:
		a.handleService(w, r, serviceID)
	case len(parts) == 2 && parts[1] == "permissions":
		a.handleServicePermissions(w, r, serviceID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleService(w http.ResponseWriter, r *http.Request, serviceID string) {
	switch r.Method {
	case http.MethodGet:
		svc, err := a.registry.GetService(r.Context(), serviceID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, svc)
	case http.MethodPatch:
		var req updateServiceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		svc, err := a.registry.UpdateService(r.Context(), serviceID, authz.ServiceUpdate{
			Name:        req.Name,
			Description: req.Description,
			URL:         req.URL,
			Icon:        req.Icon,
			Version:     req.Version,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "authz.service.updated", map[string]any{
			"service_id": serviceID,
		})
		writeJSON(w, http.StatusOK, svc)
	case http.MethodDelete:
		if err := a.registry.DeleteService(r.Context(), serviceID); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "authz.service.deleted", map[string]any{
			"service_id": serviceID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// handleServicePermissions exposes a service's permission catalog. PUT
// replaces the catalog wholesale: the request body is the authoritative
// list and anything persisted that is absent from it gets deleted.
func (a *API) handleServicePermissions(w http.ResponseWriter, r *http.Request, serviceID string) {
	switch r.Method {
	case http.MethodGet:
		perms, err := a.perms.CatalogForService(r.Context(), serviceID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		if perms == nil {
			perms = []authz.Permission{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"permissions": perms,
		})
	case http.MethodPut:
		var req declarePermissionsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		svc, err := a.registry.GetService(r.Context(), serviceID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		declared := make([]authz.Permission, 0, len(req.Permissions))
		for _, p := range req.Permissions {
			name := strings.TrimSpace(p.Name)
			if name == "" {
				writeError(w, r, http.StatusBadRequest, "permission name is required")
				return
			}
			declared = append(declared, authz.Permission{
				Name:        name,
				Description: strings.TrimSpace(p.Description),
				Service:     *svc,
			})
		}
		if len(declared) == 0 {
			writeError(w, r, http.StatusBadRequest, "permissions are required")
			return
		}
		if err := a.perms.UpdatePermissionsForService(r.Context(), declared); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "authz.service.permissions.synced", map[string]any{
			"service_id": serviceID,
			"count":      len(declared),
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handlePermissionCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	serviceName := strings.TrimSpace(q.Get("service"))
	permissionName := strings.TrimSpace(q.Get("permission"))
	if serviceName == "" || permissionName == "" {
		writeError(w, r, http.StatusBadRequest, "service and permission are required")
		return
	}
	allowed, err := a.perms.HasPermission(r.Context(), userID, serviceName, permissionName)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"allowed": allowed,
	})
}
