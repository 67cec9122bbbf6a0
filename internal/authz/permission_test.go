package authz

import "testing"

func TestPermissionEqualIgnoresID(t *testing.T) {
	billing := Service{ID: "svc-1", Name: "billing"}
	a := Permission{ID: "p-1", Name: "invoice.read", Service: billing}
	b := Permission{ID: "p-2", Name: "invoice.read", Service: Service{ID: "svc-9", Name: "billing"}}

	if !a.Equal(b) {
		t.Fatalf("permissions with equal names and service names must be equal regardless of ids")
	}
	if !a.Matches(b.Ref()) {
		t.Fatalf("Matches must agree with Equal for the same value identity")
	}
}

func TestPermissionEqualDistinguishesServiceAndName(t *testing.T) {
	base := Permission{Name: "invoice.read", Service: Service{Name: "billing"}}

	otherName := Permission{Name: "invoice.write", Service: Service{Name: "billing"}}
	if base.Equal(otherName) {
		t.Fatalf("different permission names must not be equal")
	}

	otherService := Permission{Name: "invoice.read", Service: Service{Name: "ledger"}}
	if base.Equal(otherService) {
		t.Fatalf("same name on different services must not be equal")
	}
}
