package authz

import (
	"errors"
	"testing"
	"time"
)

func perm(id, name, serviceName string) Permission {
	return Permission{ID: id, Name: name, Service: Service{ID: "svc-" + serviceName, Name: serviceName}}
}

func TestGroupAddPermissionRejectsDuplicateByValue(t *testing.T) {
	g := NewPermissionGroup("g-1", "admins", "")

	if err := g.AddPermission(perm("p-1", "invoice.read", "billing")); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := g.AddPermission(perm("p-2", "invoice.read", "billing"))
	if !errors.Is(err, ErrPermissionAssigned) {
		t.Fatalf("duplicate under value equality must fail with permission-assigned, got %v", err)
	}
	if got := len(g.Permissions()); got != 1 {
		t.Fatalf("membership len = %d, want 1", got)
	}

	// Same name on another service is a different permission.
	if err := g.AddPermission(perm("p-3", "invoice.read", "ledger")); err != nil {
		t.Fatalf("same name, other service: %v", err)
	}
}

func TestGroupRemovePermission(t *testing.T) {
	g := NewPermissionGroup("g-1", "admins", "")
	if err := g.AddPermission(perm("p-1", "invoice.read", "billing")); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := g.RemovePermission(PermissionRef{ServiceName: "billing", PermissionName: "invoice.write"})
	if !errors.Is(err, ErrPermissionNotInGroup) {
		t.Fatalf("removing an absent permission must fail with permission-not-in-group, got %v", err)
	}

	if err := g.RemovePermission(PermissionRef{ServiceName: "billing", PermissionName: "invoice.read"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if g.HasPermission(PermissionRef{ServiceName: "billing", PermissionName: "invoice.read"}) {
		t.Fatalf("permission still reported after removal")
	}
}

func TestGroupMutationsTouchUpdatedAt(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g := RestorePermissionGroup("g-1", "admins", "", nil, created, created)

	g.Rename("operators")
	if !g.UpdatedAt().After(created) {
		t.Fatalf("Rename did not touch UpdatedAt")
	}
	if g.CreatedAt() != created {
		t.Fatalf("CreatedAt changed on mutation")
	}

	before := g.UpdatedAt()
	if err := g.AddPermission(perm("p-1", "invoice.read", "billing")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if g.UpdatedAt().Before(before) {
		t.Fatalf("AddPermission did not touch UpdatedAt")
	}
}

func TestGroupPermissionsReturnsCopy(t *testing.T) {
	g := NewPermissionGroup("g-1", "admins", "")
	if err := g.AddPermission(perm("p-1", "invoice.read", "billing")); err != nil {
		t.Fatalf("add: %v", err)
	}

	got := g.Permissions()
	got[0].Name = "mutated"

	if g.Permissions()[0].Name != "invoice.read" {
		t.Fatalf("mutating the returned slice leaked into the group")
	}
}
