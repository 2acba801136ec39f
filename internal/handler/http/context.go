package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/jwtauth/v5"
)

// employeeIDFromContext extracts the caller's employee id from the verified
// token claims.
func employeeIDFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if id, ok := claims["employee_id"].(string); ok {
		return id
	}
	return ""
}

// roleFromContext extracts the caller's role from the verified token claims.
func roleFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if role, ok := claims["role"].(string); ok {
		return role
	}
	return ""
}

// queryInt reads an int query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// queryBool reads a bool query parameter, falling back to def when the
// parameter is absent or malformed.
func queryBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
