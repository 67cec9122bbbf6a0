package authz

import (
	"context"
	"errors"
	"strings"
)

const defaultServiceVersion = "1.0.0"

// ServiceRegistry manages the catalog of downstream services.
type ServiceRegistry struct {
	services ServiceStore
	newID    IDGenerator
}

// NewServiceRegistry wires the registry.
func NewServiceRegistry(services ServiceStore, newID IDGenerator) (*ServiceRegistry, error) {
	if services == nil {
		return nil, internalf("service store is required")
	}
	if newID == nil {
		newID = NewUUID
	}
	return &ServiceRegistry{services: services, newID: newID}, nil
}

// CreateService registers a downstream service. Names are unique; a taken
// name fails with already-exists.
func (r *ServiceRegistry) CreateService(ctx context.Context, name, description, url, icon, version string) (*Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("service name is required")
	}
	if _, err := r.services.FindServiceByName(ctx, name); err == nil {
		return nil, conflictf("service with name %s already exists", name)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	version = strings.TrimSpace(version)
	if version == "" {
		version = defaultServiceVersion
	}
	svc := &Service{
		ID:          r.newID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		URL:         strings.TrimSpace(url),
		Icon:        strings.TrimSpace(icon),
		Version:     version,
	}
	if err := r.services.CreateService(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// GetService loads a service by id.
func (r *ServiceRegistry) GetService(ctx context.Context, id string) (*Service, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalidf("service id is required")
	}
	return r.services.FindService(ctx, id)
}

// GetServiceByName loads a service by its unique name.
func (r *ServiceRegistry) GetServiceByName(ctx context.Context, name string) (*Service, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalidf("service name is required")
	}
	return r.services.FindServiceByName(ctx, name)
}

// ListServices returns the whole catalog.
func (r *ServiceRegistry) ListServices(ctx context.Context) ([]*Service, error) {
	return r.services.ListServices(ctx)
}

// UpdateService applies a partial update; omitted fields stay as they are.
func (r *ServiceRegistry) UpdateService(ctx context.Context, id string, upd ServiceUpdate) (*Service, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalidf("service id is required")
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, invalidf("service name is required")
		}
		upd.Name = &name
	}
	return r.services.UpdateService(ctx, id, upd)
}

// DeleteService removes a service; its permissions cascade in storage.
func (r *ServiceRegistry) DeleteService(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalidf("service id is required")
	}
	return r.services.DeleteService(ctx, id)
}
