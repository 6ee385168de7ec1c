package authz

import "testing"

func TestCan(t *testing.T) {
	tests := []struct {
		role string
		cap  Capability
		want bool
	}{
		{"admin", CapUsers, true},
		{"admin", CapFinancial, true},
		{"manager", CapPatients, true},
		{"manager", CapUsers, false},
		{"receptionist", CapAppointments, true},
		{"receptionist", CapFinancial, false},
		{"doctor", CapPatients, true},
		{"doctor", CapServices, false},
		{"financial", CapFinancial, true},
		{"financial", CapAppointments, false},
		{"", CapPatients, false},
		{"intern", CapPatients, false},
	}
	for _, tt := range tests {
		if got := Can(tt.role, tt.cap); got != tt.want {
			t.Errorf("Can(%q, %q) = %v, want %v", tt.role, tt.cap, got, tt.want)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{"admin", "manager", "receptionist", "doctor", "financial"} {
		if !ValidRole(role) {
			t.Errorf("expected %q to be a valid role", role)
		}
	}
	if ValidRole("root") {
		t.Error("expected root to be invalid")
	}
}
