package main

import (
	"strings"
	"testing"
)

func TestCheckEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"ivan@x.com", true},
		{"first.last+tag@sub.example.co", true},
		{"", false},
		{"not-an-email", false},
		{"missing@tld@twice", false},
		{"@example.com", false},
	}
	for _, tc := range tests {
		v := newValidator()
		v.checkEmail(tc.email)
		if v.hasErrors() == tc.valid {
			t.Errorf("checkEmail(%q): hasErrors = %v, want %v", tc.email, v.hasErrors(), !tc.valid)
		}
	}
}

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"abcd123456", true},
		{"12345678", true},
		{"", false},
		{"short", false},
		{strings.Repeat("a", 72), true},
		{strings.Repeat("a", 73), false},
	}
	for _, tc := range tests {
		v := newValidator()
		v.checkPassword(tc.password)
		if v.hasErrors() == tc.valid {
			t.Errorf("checkPassword(%q): hasErrors = %v, want %v", tc.password, v.hasErrors(), !tc.valid)
		}
	}
}

func TestCheckCondKeepsFirstMessage(t *testing.T) {
	v := newValidator()
	v.checkCond(false, "name", "first")
	v.checkCond(false, "name", "second")
	if v.errors["name"] != "first" {
		t.Errorf(`errors["name"] = %q, want "first"`, v.errors["name"])
	}
}

func TestValidatorToError(t *testing.T) {
	v := newValidator()
	v.checkName("")
	v.checkAge(-1)
	err := v.toError()
	if err == nil {
		t.Fatal("toError returned nil with errors present")
	}
	for _, key := range []string{"name", "age"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q missing %q field", err.Error(), key)
		}
	}
}
