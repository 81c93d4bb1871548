package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role       Role
		capability Capability
		want       bool
	}{
		{RoleCitizen, CapCreateComplaint, true},
		{RoleCitizen, CapViewOwnComplaints, true},
		{RoleCitizen, CapUpdateStatus, false},
		{RoleCitizen, CapAssign, false},
		{RoleCitizen, CapComment, false},
		{RoleCitizen, CapViewAllComplaints, false},

		{RoleAuthority, CapViewAllComplaints, true},
		{RoleAuthority, CapUpdateStatus, true},
		{RoleAuthority, CapAssign, true},
		{RoleAuthority, CapComment, true},
		{RoleAuthority, CapCreateComplaint, false},
		{RoleAuthority, CapViewOwnComplaints, false},

		{RoleAdmin, CapCreateComplaint, true},
		{RoleAdmin, CapViewOwnComplaints, true},
		{RoleAdmin, CapViewAllComplaints, true},
		{RoleAdmin, CapUpdateStatus, true},
		{RoleAdmin, CapAssign, true},
		{RoleAdmin, CapComment, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.role.Can(tt.capability),
			"role %s capability %s", tt.role, tt.capability)
	}
}

func TestAdminIsUnionOfOtherRoles(t *testing.T) {
	all := []Capability{
		CapCreateComplaint, CapViewOwnComplaints, CapViewAllComplaints,
		CapUpdateStatus, CapAssign, CapComment,
	}
	for _, c := range all {
		if RoleCitizen.Can(c) || RoleAuthority.Can(c) {
			assert.True(t, RoleAdmin.Can(c), "admin should hold %s", c)
		}
	}
}

func TestViewPublicGrantedToEveryone(t *testing.T) {
	assert.True(t, RoleCitizen.Can(CapViewPublic))
	assert.True(t, RoleAuthority.Can(CapViewPublic))
	assert.True(t, RoleAdmin.Can(CapViewPublic))
	assert.True(t, Role("").Can(CapViewPublic))
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"citizen", RoleCitizen, true},
		{"authority", RoleAuthority, true},
		{"admin", RoleAdmin, true},
		{"ADMIN", RoleAdmin, true},
		{"  citizen  ", RoleCitizen, true},
		{"", RoleCitizen, true},
		{"superuser", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"Pending", "In Progress", "Resolved", "Rejected"} {
		got, ok := ParseStatus(valid)
		assert.True(t, ok, "status %q", valid)
		assert.Equal(t, Status(valid), got)
	}

	for _, invalid := range []string{"pending", "Done", "Closed", ""} {
		_, ok := ParseStatus(invalid)
		assert.False(t, ok, "status %q should not parse", invalid)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, StatusResolved.Terminal())
	assert.True(t, StatusRejected.Terminal())
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, Category("pothole"), NormalizeCategory("Pothole"))
	assert.Equal(t, Category("streetlight"), NormalizeCategory("  streetlight "))
	assert.Equal(t, CategoryGeneral, NormalizeCategory("alien invasion"))
	assert.Equal(t, CategoryGeneral, NormalizeCategory(""))
}
