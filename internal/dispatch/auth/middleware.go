package auth

import (
	"strings"

	pkgerrors "judgehub/pkg/errors"
	"judgehub/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID   = "user_id"
	ctxUserRole = "user_role"
)

// RequireRoles rejects requests without a valid access token holding one of roles.
func RequireRoles(a *Authenticator, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			response.AbortWithErrorCode(c, pkgerrors.ServiceUnavailable, "auth service unavailable")
			return
		}
		info, err := a.Authenticate(extractBearerToken(c.GetHeader("Authorization")))
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		if len(roles) > 0 && !hasRole(info.Role, roles) {
			response.AbortWithErrorCode(c, pkgerrors.InsufficientRole, "insufficient role")
			return
		}
		setUser(c, info)
		c.Next()
	}
}

// Optional records the caller's identity when a valid token is present and never rejects.
func Optional(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a != nil {
			if raw := extractBearerToken(c.GetHeader("Authorization")); raw != "" {
				if info, err := a.Authenticate(raw); err == nil {
					setUser(c, info)
				}
			}
		}
		c.Next()
	}
}

// JudgeServer rejects requests whose token header does not match token.
func JudgeServer(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !VerifyJudgeToken(token, c.GetHeader(JudgeTokenHeader)) {
			response.AbortWithErrorCode(c, pkgerrors.JudgeServerTokenError, "invalid token")
			return
		}
		c.Next()
	}
}

// UserFromContext returns the identity set by RequireRoles or Optional.
func UserFromContext(c *gin.Context) (UserInfo, bool) {
	id, ok := c.Get(ctxUserID)
	if !ok {
		return UserInfo{}, false
	}
	role, _ := c.Get(ctxUserRole)
	userID, _ := id.(int64)
	roleStr, _ := role.(string)
	return UserInfo{ID: userID, Role: roleStr}, true
}

func setUser(c *gin.Context, info UserInfo) {
	c.Set(ctxUserID, info.ID)
	c.Set(ctxUserRole, info.Role)
}

func extractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
