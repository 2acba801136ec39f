package middleware

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/workstream-hr/attendance-engine-go/internal/handler/http/response"
)

// AuthRequired rejects requests without a valid access token carrying an
// employee identity. Tokens are minted by the identity service; this layer
// only verifies them.
func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			claims, err := token.AsMap(r.Context())
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}
			tokenType, ok := claims["type"].(string)
			if tokenType != "access" || !ok {
				response.Unauthorized(w, "Invalid token")
				return
			}
			if id, ok := claims["employee_id"].(string); !ok || id == "" {
				response.Unauthorized(w, "Token carries no employee identity")
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
