package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/valhalla/console/internal/rbac"
)

// ErrMalformedToken is returned when a token cannot be decoded locally.
var ErrMalformedToken = errors.New("auth: malformed token")

// Claims is the decoded payload of a backend token. The signature is not
// verified here; the backend is the authority through validate-token.
type Claims struct {
	UserID    string
	Username  string
	RoleID    rbac.Role
	RoleName  string
	ExpiresAt time.Time
}

// DecodeClaims reads the token payload without verifying its signature.
func DecodeClaims(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrMalformedToken
	}
	parser := jwt.NewParser(jwt.WithJSONNumber())
	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	claims := Claims{
		UserID:   firstString(mc, "userId", "sub"),
		Username: firstString(mc, "username", "name"),
		RoleName: firstString(mc, "roleName", "role"),
	}
	if role, ok := firstInt(mc, "roleId", "role_id"); ok {
		claims.RoleID = rbac.Role(role)
	}
	if exp, ok := firstFloat(mc, "exp"); ok {
		sec, frac := math.Modf(exp)
		claims.ExpiresAt = time.Unix(int64(sec), int64(frac*1e9))
	}
	return claims, nil
}

// Expired reports whether exp lies at or before now. Tokens without exp never
// expire locally.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Identity converts the claims into the session principal.
func (c Claims) Identity() Identity {
	return Identity{
		UserID:   c.UserID,
		Username: c.Username,
		RoleID:   c.RoleID,
		RoleName: c.RoleName,
	}
}

func firstString(mc jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := mc[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func firstInt(mc jwt.MapClaims, keys ...string) (int, bool) {
	for _, key := range keys {
		switch v := mc[key].(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return int(n), true
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func firstFloat(mc jwt.MapClaims, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := mc[key].(json.Number); ok {
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
