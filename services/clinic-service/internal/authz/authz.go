// Package authz maps user roles to capabilities through a single declarative
// table, consulted by one check function instead of per-handler switches.
package authz

import "net/http"

type Capability string

const (
	CapPatients     Capability = "patients"
	CapDoctors      Capability = "doctors"
	CapServices     Capability = "services"
	CapAppointments Capability = "appointments"
	CapFinancial    Capability = "financial"
	CapUsers        Capability = "users"
)

// roleCapabilities is the authorization table. A nil set means every
// capability (admin).
var roleCapabilities = map[string]map[Capability]bool{
	"admin": nil,
	"manager": {
		CapPatients:     true,
		CapDoctors:      true,
		CapServices:     true,
		CapAppointments: true,
		CapFinancial:    true,
	},
	"receptionist": {
		CapPatients:     true,
		CapAppointments: true,
	},
	"doctor": {
		CapPatients:     true,
		CapAppointments: true,
	},
	"financial": {
		CapFinancial: true,
		CapPatients:  true,
	},
}

func ValidRole(role string) bool {
	_, ok := roleCapabilities[role]
	return ok
}

// Can reports whether role holds the capability. Unknown roles hold none.
func Can(role string, capability Capability) bool {
	caps, ok := roleCapabilities[role]
	if !ok {
		return false
	}
	if caps == nil {
		return true
	}
	return caps[capability]
}

// RoleFunc extracts the caller's role from a request, typically from verified
// token claims.
type RoleFunc func(r *http.Request) string

// Require rejects requests whose role lacks the capability.
func Require(capability Capability, role RoleFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Can(role(r), capability) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
