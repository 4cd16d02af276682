package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"

	"github.com/AaronLay10/SceneBridge/internal/config"
)

// Role is what an authenticated caller may do. Operators may read state;
// loading files requires admin.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

type credential struct {
	user, pass string
	role       Role
}

var (
	authMu sync.RWMutex
	// nil means authentication is off
	credentials []credential
)

// InitAuth takes the API credentials from s. Without an admin user and
// password authentication stays off and every caller is admin. The
// operator account is optional.
func InitAuth(s *config.Secrets) {
	var creds []credential
	if s != nil && s.AdminUser != "" && s.AdminPass != "" {
		creds = append(creds, credential{s.AdminUser, s.AdminPass, RoleAdmin})
		if s.OperatorUser != "" && s.OperatorPass != "" {
			creds = append(creds, credential{s.OperatorUser, s.OperatorPass, RoleOperator})
		}
	}
	authMu.Lock()
	credentials = creds
	authMu.Unlock()
}

// IsAuthEnabled reports whether requests must carry credentials.
func IsAuthEnabled() bool {
	authMu.RLock()
	defer authMu.RUnlock()
	return len(credentials) > 0
}

// authenticate returns the caller's role, or "" for missing or bad
// credentials.
func authenticate(r *http.Request) Role {
	authMu.RLock()
	creds := credentials
	authMu.RUnlock()
	if len(creds) == 0 {
		return RoleAdmin
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}
	var role Role
	for _, c := range creds {
		// both fields always compared
		u := secureCompare(user, c.user)
		p := secureCompare(pass, c.pass)
		if u && p && role == "" {
			role = c.role
		}
	}
	return role
}

// secureCompare is a constant-time string comparison.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type roleKey struct{}

// RoleFrom returns the role RequireRole granted the request, or "" outside
// a guarded handler.
func RoleFrom(ctx context.Context) Role {
	role, _ := ctx.Value(roleKey{}).(Role)
	return role
}

// RequireRole wraps a handler and requires one of the given roles. The
// granted role is available to the handler through RoleFrom.
func RequireRole(handler http.HandlerFunc, allowed ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := authenticate(r)
		if role == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="SceneBridge"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		for _, a := range allowed {
			if a == role {
				handler(w, r.WithContext(context.WithValue(r.Context(), roleKey{}, role)))
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// RequireAnyRole wraps a handler requiring admin or operator.
func RequireAnyRole(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin, RoleOperator)
}

// RequireAdmin wraps a handler requiring admin.
func RequireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin)
}
