package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type memoryAdminRepo struct {
	byID map[uint]*models.Admin
}

func newMemoryAdminRepo(admins ...*models.Admin) *memoryAdminRepo {
	repo := &memoryAdminRepo{byID: map[uint]*models.Admin{}}
	for _, admin := range admins {
		repo.byID[admin.ID] = admin
	}
	return repo
}

func (r *memoryAdminRepo) GetByUsername(username string) (*models.Admin, error) {
	for _, admin := range r.byID {
		if admin.Username == username {
			copied := *admin
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryAdminRepo) GetByID(id uint) (*models.Admin, error) {
	admin, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *admin
	return &copied, nil
}

func (r *memoryAdminRepo) List() ([]models.Admin, error) {
	rows := make([]models.Admin, 0, len(r.byID))
	for _, admin := range r.byID {
		rows = append(rows, *admin)
	}
	return rows, nil
}

func (r *memoryAdminRepo) Create(admin *models.Admin) error {
	r.byID[admin.ID] = admin
	return nil
}

func (r *memoryAdminRepo) Update(admin *models.Admin) error {
	copied := *admin
	r.byID[admin.ID] = &copied
	return nil
}

func newTestAuthService(t *testing.T, policy config.PasswordPolicyConfig, admins ...*models.Admin) (*AuthService, *memoryAdminRepo) {
	t.Helper()
	cfg := &config.Config{
		JWT:      config.JWTConfig{SecretKey: "test-secret", ExpireHours: 2},
		Security: config.SecurityConfig{PasswordPolicy: policy},
	}
	repo := newMemoryAdminRepo(admins...)
	svc := NewAuthService(cfg, repo)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func hashForTest(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	return string(hash)
}

func TestLoginIssuesSignedToken(t *testing.T) {
	admin := &models.Admin{ID: 3, Username: "finance01", PasswordHash: hashForTest(t, "S3cret!pw"), TokenVersion: 4}
	svc, repo := newTestAuthService(t, config.PasswordPolicyConfig{}, admin)

	result, err := svc.Login(context.Background(), " finance01 ", "S3cret!pw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !result.ExpiresAt.Equal(time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected expiry: %s", result.ExpiresAt)
	}

	claims := &JWTClaims{}
	parser := jwt.NewParser(jwt.WithTimeFunc(func() time.Time { return time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC) }))
	if _, err := parser.ParseWithClaims(result.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}); err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.AdminID != 3 || claims.Username != "finance01" || claims.TokenVersion != 4 {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if repo.byID[3].LastLoginAt == nil {
		t.Fatalf("last login time should be stored")
	}
}

func TestLoginRejects(t *testing.T) {
	disabled := &models.Admin{ID: 1, Username: "gone", PasswordHash: hashForTest(t, "pw"), Disabled: true}
	active := &models.Admin{ID: 2, Username: "ops", PasswordHash: hashForTest(t, "pw")}
	svc, _ := newTestAuthService(t, config.PasswordPolicyConfig{}, disabled, active)

	cases := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"unknown", "nobody", "pw", ErrInvalidCredentials},
		{"disabled", "gone", "pw", ErrAdminDisabled},
		{"wrong password", "ops", "nope", ErrInvalidCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Login(context.Background(), tc.username, tc.password); !errors.Is(err, tc.want) {
				t.Fatalf("want %v got %v", tc.want, err)
			}
		})
	}
}

func TestChangePasswordRevokesTokens(t *testing.T) {
	admin := &models.Admin{ID: 9, Username: "auditor", PasswordHash: hashForTest(t, "old-pass"), TokenVersion: 1}
	svc, repo := newTestAuthService(t, config.PasswordPolicyConfig{MinLength: 8, RequireNumber: true}, admin)
	ctx := context.Background()

	if err := svc.ChangePassword(ctx, 9, "bad-old", "newpass123"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected invalid password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, 404, "old-pass", "newpass123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	err := svc.ChangePassword(ctx, 9, "old-pass", "short")
	var policyErr *PasswordPolicyError
	if !errors.As(err, &policyErr) || policyErr.Key() != "error.password_min_length" || !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected min length policy error, got %v", err)
	}

	if err := svc.ChangePassword(ctx, 9, "old-pass", "newpass123"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	stored := repo.byID[9]
	if stored.TokenVersion != 2 || stored.TokenInvalidBefore == nil {
		t.Fatalf("tokens should be revoked, got version=%d invalid_before=%v", stored.TokenVersion, stored.TokenInvalidBefore)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("newpass123")) != nil {
		t.Fatalf("new password hash not stored")
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	policy := config.PasswordPolicyConfig{
		MinLength:      8,
		RequireUpper:   true,
		RequireLower:   true,
		RequireNumber:  true,
		RequireSpecial: true,
	}
	cases := []struct {
		password string
		wantKey  string
	}{
		{"Ab1!", "error.password_min_length"},
		{"abcdefg1!", "error.password_require_upper"},
		{"ABCDEFG1!", "error.password_require_lower"},
		{"Abcdefgh!", "error.password_require_number"},
		{"Abcdefgh1", "error.password_require_special"},
		{"Abcdefg1!", ""},
	}
	for _, tc := range cases {
		err := checkPasswordPolicy(policy, tc.password)
		if tc.wantKey == "" {
			if err != nil {
				t.Fatalf("%q should pass, got %v", tc.password, err)
			}
			continue
		}
		var policyErr *PasswordPolicyError
		if !errors.As(err, &policyErr) || policyErr.Key() != tc.wantKey {
			t.Fatalf("%q want %s got %v", tc.password, tc.wantKey, err)
		}
	}

	if err := checkPasswordPolicy(config.PasswordPolicyConfig{}, ""); err != nil {
		t.Fatalf("empty policy should accept anything, got %v", err)
	}
}
