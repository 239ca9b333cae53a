package middleware

import (
	"net/http"

	"github.com/cc-visionary/payroll-os-sub004/internal/handler/http/response"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/jwt"
)

// AuthRequired rejects requests whose verified token is missing, is not an access token, or carries no company.
func AuthRequired(jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			claims, err := jwtService.ClaimsFromContext(r.Context())
			if err != nil {
				response.HandleError(w, err)
				return
			}

			if claims.Type != "access" {
				response.HandleError(w, jwt.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// RequireOperator allows payroll officers, approvers and admins.
func RequireOperator(jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := jwtService.ClaimsFromContext(r.Context())
			if err != nil {
				response.HandleError(w, err)
				return
			}
			if !claims.CanOperate() {
				response.Forbidden(w, "Payroll access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireApprover guards approval and release.
func RequireApprover(jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := jwtService.ClaimsFromContext(r.Context())
			if err != nil {
				response.HandleError(w, err)
				return
			}
			if !claims.CanApprove() {
				response.Forbidden(w, "Approver role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
