package utils

import "testing"

func TestBuildWaiverLink(t *testing.T) {
	tests := []struct {
		form, order, want string
	}{
		{"https://forms.example.com/123", "4521", "https://forms.example.com/123?typeA=4521&order=4521"},
		{" https://forms.example.com/123?lang=en ", "4521", "https://forms.example.com/123?lang=en&typeA=4521&order=4521"},
		{"https://forms.example.com/123", "A&B 1", "https://forms.example.com/123?typeA=A%26B+1&order=A%26B+1"},
	}
	for _, tt := range tests {
		if got := BuildWaiverLink(tt.form, tt.order); got != tt.want {
			t.Errorf("BuildWaiverLink(%q, %q) = %q, want %q", tt.form, tt.order, got, tt.want)
		}
	}
}

func TestBuildLoginLink(t *testing.T) {
	if got := BuildLoginLink(""); got != "http://localhost:5173/login" {
		t.Errorf("default = %q", got)
	}
	if got := BuildLoginLink("https://checkin.example.com/"); got != "https://checkin.example.com/login" {
		t.Errorf("trailing slash = %q", got)
	}
}

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"sam@example.com":  "s*m@e******.com",
		"jo@example.com":   "j*@e******.com",
		"a@example.com":    "a@e******.com",
		"not-an-email":     "not-an-email",
		" amy@mail.co.uk ": "a*y@m***.co.uk",
	}
	for in, want := range tests {
		if got := MaskEmail(in); got != want {
			t.Errorf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(16)
	if err != nil || len(a) != 32 {
		t.Fatalf("token = %q, %v", a, err)
	}
	b, _ := GenerateSecureToken(16)
	if a == b {
		t.Fatal("tokens repeat")
	}
	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatal("expected an error for zero length")
	}
}
