package service

import (
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/showcase/internal/db"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrTOTPRequired       = errors.New("two-factor code is required")
	ErrTOTPInvalid        = errors.New("two-factor code is invalid")
	ErrTOTPNotSetup       = errors.New("two-factor secret has not been generated")
	ErrTOTPAlreadyEnabled = errors.New("two-factor authentication is already enabled")
	ErrTOTPNotEnabled     = errors.New("two-factor authentication is not enabled")
)

// TwoFactorSetup 返回给前端用于生成二维码的信息。
type TwoFactorSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauthUrl"`
}

// TwoFactorService 管理后台用户的 TOTP 二次验证。
type TwoFactorService struct {
	db       *gorm.DB
	security *SecurityService
	issuer   string
	now      func() time.Time
}

func NewTwoFactorService(gdb *gorm.DB, security *SecurityService, issuer string) *TwoFactorService {
	if strings.TrimSpace(issuer) == "" {
		issuer = defaultSiteName
	}
	return &TwoFactorService{db: gdb, security: security, issuer: issuer, now: time.Now}
}

func (s *TwoFactorService) WithClock(now func() time.Time) *TwoFactorService {
	if now != nil {
		s.now = now
	}
	return s
}

// Setup 生成新的密钥但不启用，需要 Enable 用一次有效验证码确认。
func (s *TwoFactorService) Setup(userID uint) (*TwoFactorSetup, error) {
	user, err := s.loadUser(userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{Issuer: s.issuer, AccountName: user.Username})
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(user).Updates(map[string]interface{}{"totp_secret": key.Secret(), "totp_enabled": false}).Error; err != nil {
		return nil, err
	}
	return &TwoFactorSetup{Secret: key.Secret(), URL: key.URL()}, nil
}

// Enable confirms the pending secret with a current code.
func (s *TwoFactorService) Enable(userID uint, code, ip string) error {
	user, err := s.loadUser(userID)
	if err != nil {
		return err
	}
	if user.TOTPEnabled {
		return ErrTOTPAlreadyEnabled
	}
	if user.TOTPSecret == "" {
		return ErrTOTPNotSetup
	}
	if !s.Validate(user.TOTPSecret, code) {
		return ErrTOTPInvalid
	}
	if err := s.db.Model(user).Update("totp_enabled", true).Error; err != nil {
		return err
	}
	s.security.Record(SecurityEventTwoFactorEnabled, user.Username, ip, "")
	return nil
}

// Disable 关闭二次验证并清空密钥，同样需要有效验证码。
func (s *TwoFactorService) Disable(userID uint, code, ip string) error {
	user, err := s.loadUser(userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return ErrTOTPNotEnabled
	}
	if !s.Validate(user.TOTPSecret, code) {
		return ErrTOTPInvalid
	}
	if err := s.db.Model(user).Updates(map[string]interface{}{"totp_secret": "", "totp_enabled": false}).Error; err != nil {
		return err
	}
	s.security.Record(SecurityEventTwoFactorDisabled, user.Username, ip, "")
	return nil
}

// Validate checks code against secret allowing one period of clock skew.
func (s *TwoFactorService) Validate(secret, code string) bool {
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, s.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (s *TwoFactorService) loadUser(userID uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
