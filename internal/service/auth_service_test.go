package service

import (
	"context"
	"errors"
	"testing"

	"qbank-service/internal/models"
	"qbank-service/internal/utils"
)

func newAuthService(t *testing.T) (*fixture, *AuthService) {
	t.Helper()
	utils.SetJWTSecret("test-secret")
	f := newFixture(t)
	return f, NewAuthService(f.users, nopLogger())
}

func TestSignupAndLogin(t *testing.T) {
	_, svc := newAuthService(t)
	ctx := context.Background()

	result, err := svc.Signup(ctx, &models.SignupRequest{
		Username: "student1",
		Email:    "  Student@Example.COM ",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if result.Token == "" {
		t.Error("signup issued no token")
	}
	if result.User.Email != "student@example.com" {
		t.Errorf("email = %q, want normalized lowercase", result.User.Email)
	}
	if result.User.Role != "student" {
		t.Errorf("role = %q, want student", result.User.Role)
	}

	login, err := svc.Login(ctx, &models.LoginRequest{
		Email:    "student@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := utils.ValidateJWT(login.Token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Role != "student" {
		t.Errorf("token role = %q, want student", claims.Role)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	_, svc := newAuthService(t)
	ctx := context.Background()

	req := &models.SignupRequest{Username: "a", Email: "dup@example.com", Password: "pw123456"}
	if _, err := svc.Signup(ctx, req); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	req.Username = "b"
	if _, err := svc.Signup(ctx, req); !errors.Is(err, ErrEmailExists) {
		t.Errorf("second signup err = %v, want ErrEmailExists", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, svc := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, &models.SignupRequest{
		Username: "s", Email: "known@example.com", Password: "rightpass",
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	testCases := []struct {
		name  string
		email string
		pass  string
	}{
		{"wrong password", "known@example.com", "wrongpass"},
		{"unknown email", "nobody@example.com", "rightpass"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(ctx, &models.LoginRequest{Email: tc.email, Password: tc.pass})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestLoginSplitsAdminAndStudent(t *testing.T) {
	_, svc := newAuthService(t)
	ctx := context.Background()

	if err := svc.SeedAdmin(ctx, "boss", "Admin@Example.com", "adminpass"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if _, err := svc.Signup(ctx, &models.SignupRequest{
		Username: "s", Email: "plain@example.com", Password: "studentpw",
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.Login(ctx, &models.LoginRequest{
		Email: "admin@example.com", Password: "adminpass",
	}); !errors.Is(err, ErrAdminLogin) {
		t.Errorf("admin via student login err = %v, want ErrAdminLogin", err)
	}
	if _, err := svc.AdminLogin(ctx, &models.LoginRequest{
		Email: "plain@example.com", Password: "studentpw",
	}); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("student via admin login err = %v, want ErrNotAdmin", err)
	}
	if _, err := svc.AdminLogin(ctx, &models.LoginRequest{
		Email: "admin@example.com", Password: "adminpass",
	}); err != nil {
		t.Errorf("admin login: %v", err)
	}
}

func TestSeedAdminIdempotent(t *testing.T) {
	f, svc := newAuthService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.SeedAdmin(ctx, "boss", "root@example.com", "pw123456"); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	var count int
	if err := f.userDB.QueryRow(
		`SELECT COUNT(*) FROM users WHERE email = 'root@example.com' AND role = 'admin'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("admin rows = %d, want 1", count)
	}

	// Empty credentials are a no-op, not an error.
	if err := svc.SeedAdmin(ctx, "x", "", ""); err != nil {
		t.Errorf("empty seed: %v", err)
	}
}
