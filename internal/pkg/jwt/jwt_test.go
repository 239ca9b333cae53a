package jwt

import (
	"context"
	"testing"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithToken(t *testing.T, svc Service, claims map[string]interface{}) context.Context {
	t.Helper()
	_, tokenString, err := svc.JWTAuth().Encode(claims)
	require.NoError(t, err)

	token, err := jwtauth.VerifyToken(svc.JWTAuth(), tokenString)
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func TestClaimsFromContext(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt")

	ctx := contextWithToken(t, svc, map[string]interface{}{
		"user_id":    "user-1",
		"company_id": "company-1",
		"role":       RoleApprover,
		"type":       "access",
	})

	claims, err := svc.ClaimsFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "company-1", claims.CompanyID)
	assert.True(t, claims.CanApprove())
	assert.True(t, claims.CanOperate())
}

func TestClaimsFromContext_Errors(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt")

	_, err := svc.ClaimsFromContext(context.Background())
	assert.ErrorIs(t, err, ErrInvalidToken)

	ctx := contextWithToken(t, svc, map[string]interface{}{"user_id": "user-1", "type": "access"})
	_, err = svc.ClaimsFromContext(ctx)
	assert.ErrorIs(t, err, ErrMissingCompany)
}

func TestVerifyToken_RejectsForeignSecret(t *testing.T) {
	issuer := NewJWTService("another-secret")
	_, tokenString, err := issuer.JWTAuth().Encode(map[string]interface{}{"user_id": "user-1"})
	require.NoError(t, err)

	_, err = jwtauth.VerifyToken(NewJWTService("test-secret-key-for-jwt").JWTAuth(), tokenString)
	assert.Error(t, err)
}

func TestRoles(t *testing.T) {
	tests := []struct {
		role       string
		canApprove bool
		canOperate bool
	}{
		{RoleAdmin, true, true},
		{RoleApprover, true, true},
		{RolePayrollOfficer, false, true},
		{"employee", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			c := Claims{Role: tt.role}
			assert.Equal(t, tt.canApprove, c.CanApprove())
			assert.Equal(t, tt.canOperate, c.CanOperate())
		})
	}
}
