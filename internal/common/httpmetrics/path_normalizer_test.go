package httpmetrics

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/api/auth/login", "/api/auth/login"},
		{"/api/company/me/", "/api/company/me"},
		{"/api/departments", "/api/departments"},
		{"/api/departments/2b1c7a0e-8f49-4a8e-9d43-2f5e1c9a7b10", "/api/departments/{id}"},
		{"/api/departments/not-a-uuid", "/api/departments/{id}"},
		{"/api/departments/a/b", "unmatched"},
		{"/wp-login.php", "unmatched"},
		{"/api/auth/login/extra", "unmatched"},
	}
	for _, tc := range cases {
		if got := NormalizePath(tc.in); got != tc.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
