package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken     = errors.New("missing authentication token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrNoUser           = errors.New("no editor user in context")
)

// Roles of editor users. Every authenticated user may edit; admins may also
// run cleanups and read the workflow.
const (
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// clockSkew is tolerated between the token issuer and this server
const clockSkew = 30 * time.Second

// Claims are the token claims of an editor user
type Claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig configures token validation. Tokens are HS256 signed by the
// portal that hands users over to the editor.
type JWTConfig struct {
	Secret string
	Issuer string
}

// JWTValidator turns bearer tokens into editor users
type JWTValidator struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTValidator creates a validator; a secret is required
func NewJWTValidator(cfg JWTConfig) (*JWTValidator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &JWTValidator{secret: []byte(cfg.Secret), parser: jwt.NewParser(opts...)}, nil
}

// Authenticate validates token, with or without its Bearer prefix, and
// returns the user it was issued to
func (v *JWTValidator) Authenticate(token string) (*UserContext, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return nil, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidClaims)
	}
	return NewUser(claims.Subject, claims.Email, claims.Roles), nil
}

// UserContext is the editor user of a request. Sessions and locks are keyed
// by UserID.
type UserContext struct {
	UserID string
	Email  string
	Roles  []string
}

// NewUser creates a user. Unknown roles are dropped and a user without a
// known role is an editor.
func NewUser(id, email string, roles []string) *UserContext {
	known := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if (r == RoleEditor || r == RoleAdmin) && !slices.Contains(known, r) {
			known = append(known, r)
		}
	}
	if len(known) == 0 {
		known = append(known, RoleEditor)
	}
	return &UserContext{UserID: id, Email: email, Roles: known}
}

// HasRole reports whether the user carries any of roles
func (u *UserContext) HasRole(roles ...string) bool {
	return slices.ContainsFunc(roles, func(r string) bool { return slices.Contains(u.Roles, r) })
}

type contextKey struct{}

// GetUserFromContext returns the user stored by SetUserInContext
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(contextKey{}).(*UserContext)
	if !ok || user == nil {
		return nil, ErrNoUser
	}
	return user, nil
}

// SetUserInContext stores user in ctx
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}
