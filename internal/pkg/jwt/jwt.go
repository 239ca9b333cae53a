package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Roles carried in the "role" claim of access tokens issued by the identity service.
const (
	RoleAdmin          = "admin"
	RolePayrollOfficer = "payroll_officer"
	RoleApprover       = "approver"
)

var (
	ErrInvalidToken   = errors.New("invalid or missing access token")
	ErrMissingCompany = errors.New("access token has no company_id claim")
)

// Claims is the subset of access token claims the payroll API relies on.
type Claims struct {
	UserID    string
	CompanyID string
	Role      string
	Type      string
}

// CanApprove reports whether the bearer may approve and release payroll runs.
func (c Claims) CanApprove() bool {
	return c.Role == RoleAdmin || c.Role == RoleApprover
}

// CanOperate reports whether the bearer may create and compute payroll runs.
func (c Claims) CanOperate() bool {
	return c.Role == RoleAdmin || c.Role == RolePayrollOfficer || c.Role == RoleApprover
}

type Service interface {
	JWTAuth() *jwtauth.JWTAuth
	ClaimsFromContext(ctx context.Context) (Claims, error)
}

type JWTService struct {
	tokenAuth *jwtauth.JWTAuth
}

// NewJWTService verifies HS256 tokens signed by the identity service with secretKey.
func NewJWTService(secretKey string) Service {
	return &JWTService{
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func (j *JWTService) ClaimsFromContext(ctx context.Context) (Claims, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if token == nil {
		return Claims{}, ErrInvalidToken
	}

	result := Claims{
		UserID:    stringClaim(claims, "user_id"),
		CompanyID: stringClaim(claims, "company_id"),
		Role:      stringClaim(claims, "role"),
		Type:      stringClaim(claims, "type"),
	}
	if result.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	if result.CompanyID == "" {
		return Claims{}, ErrMissingCompany
	}
	return result, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}
