package domain

import "testing"

func TestRolePredicates(t *testing.T) {
	cases := []struct {
		role     Role
		staff    bool
		elevated bool
	}{
		{RoleRequester, false, false},
		{RoleSupport, true, false},
		{RoleSupervisor, true, true},
		{RoleAdmin, true, true},
	}
	for _, tc := range cases {
		if got := tc.role.IsStaff(); got != tc.staff {
			t.Errorf("%s.IsStaff() = %v, want %v", tc.role, got, tc.staff)
		}
		if got := tc.role.Elevated(); got != tc.elevated {
			t.Errorf("%s.Elevated() = %v, want %v", tc.role, got, tc.elevated)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []Role{RoleRequester, RoleSupport, RoleSupervisor, RoleAdmin} {
		if !ValidRole(r) {
			t.Errorf("ValidRole(%s) = false", r)
		}
	}
	if ValidRole("root") || ValidRole("") {
		t.Error("unknown roles accepted")
	}
}
