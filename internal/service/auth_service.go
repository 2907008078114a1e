package service

import (
	"context"
	"strings"
	"time"

	"github.com/signaldesk-ledger/internal/cache"
	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 24 * time.Hour

// JWTClaims 管理端令牌声明
type JWTClaims struct {
	AdminID      uint   `json:"admin_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// LoginResult 登录结果
type LoginResult struct {
	Admin     *models.Admin
	Token     string
	ExpiresAt time.Time
}

// AuthService 管理员认证服务
type AuthService struct {
	secret []byte
	ttl    time.Duration
	policy config.PasswordPolicyConfig
	admins repository.AdminRepository
	now    func() time.Time
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, adminRepo repository.AdminRepository) *AuthService {
	s := &AuthService{admins: adminRepo, ttl: defaultTokenTTL, now: time.Now}
	if cfg != nil {
		s.secret = []byte(cfg.JWT.SecretKey)
		if cfg.JWT.ExpireHours > 0 {
			s.ttl = time.Duration(cfg.JWT.ExpireHours) * time.Hour
		}
		s.policy = cfg.Security.PasswordPolicy
	}
	return s
}

// Login 校验账号密码并签发令牌
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	admin, err := s.admins.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrInvalidCredentials
	}
	if admin.Disabled {
		return nil, ErrAdminDisabled
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	issuedAt := s.now()
	token, expiresAt, err := s.issueToken(admin, issuedAt)
	if err != nil {
		return nil, err
	}
	loginAt := issuedAt.UTC()
	admin.LastLoginAt = &loginAt
	if err := s.admins.Update(admin); err != nil {
		return nil, err
	}
	s.syncAuthState(ctx, admin)
	return &LoginResult{Admin: admin, Token: token, ExpiresAt: expiresAt}, nil
}

// ChangePassword 修改密码并吊销此前签发的全部令牌
func (s *AuthService) ChangePassword(ctx context.Context, adminID uint, oldPassword, newPassword string) error {
	admin, err := s.admins.GetByID(adminID)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidPassword
	}
	if err := checkPasswordPolicy(s.policy, newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	revokedAt := s.now().UTC()
	admin.PasswordHash = string(hash)
	admin.TokenVersion++
	admin.TokenInvalidBefore = &revokedAt
	if err := s.admins.Update(admin); err != nil {
		return err
	}
	s.syncAuthState(ctx, admin)
	return nil
}

func (s *AuthService) issueToken(admin *models.Admin, issuedAt time.Time) (string, time.Time, error) {
	expiresAt := issuedAt.Add(s.ttl)
	claims := JWTClaims{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) syncAuthState(ctx context.Context, admin *models.Admin) {
	if err := cache.SetAdminAuthState(ctx, cache.BuildAdminAuthState(admin)); err != nil {
		logger.Warnw("admin_auth_state_cache_failed", "admin_id", admin.ID, "error", err)
	}
}

