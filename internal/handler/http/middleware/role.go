package middleware

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/handler/http/response"
)

// RequireRole passes only callers whose token role is one of the given
// roles.
func RequireRole(roles ...employee.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Forbidden(w, "Insufficient role")
				return
			}

			roleStr, ok := claims["role"].(string)
			if !ok {
				response.Forbidden(w, "Insufficient role")
				return
			}

			role := employee.Role(roleStr)
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Forbidden(w, "Insufficient role")
		})
	}
}

// AdminOnly restricts a route to administrators.
func AdminOnly(next http.Handler) http.Handler {
	return RequireRole(employee.RoleAdmin)(next)
}

// ApproverOnly restricts a route to the two approving roles.
func ApproverOnly(next http.Handler) http.Handler {
	return RequireRole(employee.RoleDepartmentHead, employee.RoleExecutive)(next)
}
