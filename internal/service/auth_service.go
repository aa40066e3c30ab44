package service

import (
	"errors"
	"strings"
	"time"

	"github.com/showcase/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	maxLoginFailures   = 5
	loginFailureWindow = 15 * time.Minute
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
)

// LoginResult 包含登录成功后的用户与 API 令牌。
type LoginResult struct {
	User      *db.User
	Token     string
	ExpiresAt time.Time
}

// AuthService 负责后台登录：密码、二次验证、失败限流与安全日志。
type AuthService struct {
	db        *gorm.DB
	tokens    *TokenService
	twoFactor *TwoFactorService
	security  *SecurityService
	now       func() time.Time
}

func NewAuthService(gdb *gorm.DB, tokens *TokenService, twoFactor *TwoFactorService, security *SecurityService) *AuthService {
	return &AuthService{db: gdb, tokens: tokens, twoFactor: twoFactor, security: security, now: time.Now}
}

func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login verifies credentials and, when enabled, the TOTP code.
func (s *AuthService) Login(username, password, code, ip string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if ip != "" {
		failures, err := s.security.RecentFailures(ip, s.now().Add(-loginFailureWindow))
		if err != nil {
			return nil, err
		}
		if failures >= maxLoginFailures {
			s.security.Record(SecurityEventLoginThrottled, username, ip, "")
			return nil, ErrTooManyAttempts
		}
	}

	var user db.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.security.Record(SecurityEventLoginFailed, username, ip, "unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.security.Record(SecurityEventLoginFailed, username, ip, "bad password")
		return nil, ErrInvalidCredentials
	}

	if user.TOTPEnabled {
		if strings.TrimSpace(code) == "" {
			return nil, ErrTOTPRequired
		}
		if !s.twoFactor.Validate(user.TOTPSecret, code) {
			s.security.Record(SecurityEventLoginFailed, username, ip, "bad 2fa code")
			return nil, ErrTOTPInvalid
		}
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	s.security.Record(SecurityEventLoginSuccess, username, ip, "")
	return &LoginResult{User: &user, Token: token, ExpiresAt: expiresAt}, nil
}

// UserByID 读取服务端保存的用户记录，中间件据此判断角色。
func (s *AuthService) UserByID(id uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate parses a bearer token and loads its user.
func (s *AuthService) Authenticate(rawToken string) (*db.User, error) {
	claims, err := s.tokens.Parse(rawToken)
	if err != nil {
		return nil, err
	}
	user, err := s.UserByID(claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrAuthTokenInvalid
	}
	return user, err
}
