package main

import (
	"strings"
	"testing"
)

func TestIsWeakSecret(t *testing.T) {
	cases := map[string]bool{
		"short":                              true,
		strings.Repeat("a", 31):              true,
		"please-change-me-0123456789abcd":    true,
		"your-secret-key-0123456789abcdefgh": true,
		"q8Zr2LxV7mN4pT1sK9wB3yD6fH0jC5aE":   false,
	}
	for secret, want := range cases {
		if got := isWeakSecret(secret); got != want {
			t.Fatalf("isWeakSecret(%q) = %v, want %v", secret, got, want)
		}
	}
}
