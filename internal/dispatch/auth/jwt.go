// Package auth verifies judge server tokens and externally issued admin JWTs.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "judgehub/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// UserInfo is the verified identity carried by an access token.
type UserInfo struct {
	ID   int64
	Role string
}

// IsAdmin reports whether the user may use the admin surface.
func (u UserInfo) IsAdmin() bool {
	return hasRole(u.Role, []string{RoleAdmin, RoleSuperAdmin})
}

// IsSuperAdmin reports whether the user holds the super admin role.
func (u UserInfo) IsSuperAdmin() bool {
	return strings.EqualFold(u.Role, RoleSuperAdmin)
}

// Authenticator verifies HS256 access tokens issued by the user service.
type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

type tokenClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Authenticate parses raw and returns the identity it carries.
func (a *Authenticator) Authenticate(raw string) (UserInfo, error) {
	if raw == "" {
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, err := a.parseToken(raw)
	if err != nil {
		return UserInfo{}, err
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return UserInfo{ID: userID, Role: claims.Role}, nil
}

func (a *Authenticator) parseToken(raw string) (*tokenClaims, error) {
	if len(a.secret) == 0 {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkgerrors.New(pkgerrors.TokenExpired)
		}
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if a.issuer != "" && claims.Issuer != a.issuer {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if claims.TokenType != "access" || claims.Subject == "" {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return claims, nil
}

func hasRole(role string, allowed []string) bool {
	for _, item := range allowed {
		if strings.EqualFold(role, item) {
			return true
		}
	}
	return false
}
