package handlers

import "testing"

func TestValidEmail(t *testing.T) {
	cases := []struct {
		email string
		want  bool
	}{
		{"anna@example.com", true},
		{"anna+news@example.de", true},
		{"", false},
		{"not-an-email", false},
		{"Anna Schmidt <anna@example.com>", false},
		{"anna@", false},
	}
	for _, tc := range cases {
		if got := validEmail(tc.email); got != tc.want {
			t.Errorf("validEmail(%q) = %v, want %v", tc.email, got, tc.want)
		}
	}
}
