package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                "/",
		"/metrics":                        "/metrics",
		"/v1/auth/login":                  "/v1/auth/login",
		"/v1/groups":                      "/v1/groups",
		"/v1/groups/abc":                  "/v1/groups/:id",
		"/v1/groups/abc/permissions":      "/v1/groups/:id/permissions",
		"/v1/groups/abc/users":            "/v1/groups/:id/users",
		"/v1/services/abc":                "/v1/services/:id",
		"/v1/services/abc/permissions":    "/v1/services/:id/permissions",
		"/v1/groups/abc/extra":            "/v1/groups/abc/extra",
		"/v1/permissions/check?service=x": "/v1/permissions/check",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
