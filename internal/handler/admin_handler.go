package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/db"
	"github.com/showcase/internal/service"
)

const (
	sessionUserIDKey   = "user_id"
	sessionUsernameKey = "username"
	currentUserKey     = "__current_user"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Login 校验用户名、密码与二次验证码，成功后写入会话并返回 API 令牌。
func (a *API) Login(c *gin.Context) {
	var payload loginRequest
	if !bindJSON(c, &payload, "请填写用户名和密码") {
		return
	}

	result, err := a.auth.Login(payload.Username, payload.Password, payload.Code, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		case errors.Is(err, service.ErrTOTPRequired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "请输入二次验证码", "twoFactorRequired": true})
		case errors.Is(err, service.ErrTOTPInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "二次验证码错误", "twoFactorRequired": true})
		case errors.Is(err, service.ErrTooManyAttempts):
			respondError(c, http.StatusTooManyRequests, "登录失败次数过多，请稍后再试")
		default:
			log.Error().Stack().Err(err).Str("component", "auth").Msg("login failed")
			respondError(c, http.StatusInternalServerError, "登录失败，请稍后再试")
		}
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserIDKey, result.User.ID)
	session.Set(sessionUsernameKey, result.User.Username)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      userPayload(result.User),
	})
}

// Logout 清除会话。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CurrentUser 返回当前登录用户。
func (a *API) CurrentUser(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userPayload(user)})
}

// AuthRequired 接受会话或 Bearer 令牌，并从数据库加载用户。
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.authenticate(c)
		if err != nil || user == nil {
			if err != nil && !errors.Is(err, service.ErrAuthTokenInvalid) && !errors.Is(err, service.ErrUserNotFound) {
				log.Error().Stack().Err(err).Str("component", "auth").Msg("load current user")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// AdminOnly 要求服务端记录的角色为管理员，必须放在 AuthRequired 之后。
func (a *API) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "需要管理员权限"})
			return
		}
		c.Next()
	}
}

func (a *API) authenticate(c *gin.Context) (*db.User, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			return nil, service.ErrAuthTokenInvalid
		}
		return a.auth.Authenticate(strings.TrimSpace(token))
	}

	session := sessions.Default(c)
	userID, ok := session.Get(sessionUserIDKey).(uint)
	if !ok || userID == 0 {
		return nil, nil
	}
	return a.auth.UserByID(userID)
}

func currentUser(c *gin.Context) *db.User {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil
	}
	user, _ := value.(*db.User)
	return user
}

func userPayload(user *db.User) gin.H {
	return gin.H{
		"id":               user.ID,
		"username":         user.Username,
		"role":             user.Role,
		"twoFactorEnabled": user.TOTPEnabled,
	}
}

type twoFactorCodeRequest struct {
	Code string `json:"code"`
}

// SetupTwoFactor 生成新的 TOTP 密钥，需调用 VerifyTwoFactor 后才会生效。
func (a *API) SetupTwoFactor(c *gin.Context) {
	user := currentUser(c)
	setup, err := a.twoFactor.Setup(user.ID)
	if err != nil {
		handleTwoFactorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": setup.Secret, "otpauthUrl": setup.URL})
}

func (a *API) VerifyTwoFactor(c *gin.Context) {
	var payload twoFactorCodeRequest
	if !bindJSON(c, &payload, "请输入验证码") {
		return
	}
	if err := a.twoFactor.Enable(currentUser(c).ID, payload.Code, c.ClientIP()); err != nil {
		handleTwoFactorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "二次验证已启用", "twoFactorEnabled": true})
}

func (a *API) DisableTwoFactor(c *gin.Context) {
	var payload twoFactorCodeRequest
	if !bindJSON(c, &payload, "请输入验证码") {
		return
	}
	if err := a.twoFactor.Disable(currentUser(c).ID, payload.Code, c.ClientIP()); err != nil {
		handleTwoFactorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "二次验证已关闭", "twoFactorEnabled": false})
}

func handleTwoFactorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTOTPInvalid):
		respondError(c, http.StatusBadRequest, "验证码错误")
	case errors.Is(err, service.ErrTOTPNotSetup):
		respondError(c, http.StatusBadRequest, "请先生成二次验证密钥")
	case errors.Is(err, service.ErrTOTPAlreadyEnabled):
		respondError(c, http.StatusConflict, "二次验证已启用")
	case errors.Is(err, service.ErrTOTPNotEnabled):
		respondError(c, http.StatusConflict, "二次验证未启用")
	case errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusUnauthorized, "请先登录")
	default:
		respondError(c, http.StatusInternalServerError, "更新二次验证失败")
	}
}
