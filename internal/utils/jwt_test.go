package utils

import (
	"strings"
	"testing"
)

func TestJWTRoundTrip(t *testing.T) {
	SetJWTSecret("unit-test-secret")

	token, err := GenerateJWT("42", "student")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "42" || claims.Role != "student" {
		t.Errorf("claims = %q/%q, want 42/student", claims.UserID, claims.Role)
	}
}

func TestValidateJWTRejectsTampering(t *testing.T) {
	SetJWTSecret("unit-test-secret")
	token, err := GenerateJWT("42", "student")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	if _, err := ValidateJWT(tampered); err == nil {
		t.Error("tampered signature accepted")
	}

	SetJWTSecret("different-secret")
	if _, err := ValidateJWT(token); err == nil {
		t.Error("token accepted under a different secret")
	}
}

func TestGetClaimsFromAuthHeader(t *testing.T) {
	SetJWTSecret("unit-test-secret")
	token, err := GenerateJWT("7", "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	testCases := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{"bearer prefix", "Bearer " + token, false},
		{"bare token", token, false},
		{"empty header", "", true},
		{"garbage", "Bearer not.a.token", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := GetClaimsFromAuthHeader(tc.header)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if claims.UserID != "7" || claims.Role != "admin" {
				t.Errorf("claims = %q/%q, want 7/admin", claims.UserID, claims.Role)
			}
		})
	}
}
