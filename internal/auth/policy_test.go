package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/fleet-auth/internal/domain"
)

func fullEntries() map[domain.Role][]string {
	entries := make(map[domain.Role][]string)
	for _, role := range domain.Roles() {
		entries[role] = []string{}
	}
	return entries
}

func TestDefaultPolicyTable(t *testing.T) {
	table := DefaultPolicyTable()

	for _, role := range domain.Roles() {
		audience := table.ResolveAudiences(string(role))
		require.NotEmpty(t, audience, role)
		assert.Equal(t, ServiceRole, audience[0], role)

		seen := map[string]bool{}
		for _, svc := range audience {
			assert.False(t, seen[svc], "duplicate %s for %s", svc, role)
			seen[svc] = true
		}
	}

	assert.NotContains(t, table.ResolveAudiences(string(domain.RoleAdministrator)), ServiceInventory)
	assert.Contains(t, table.ResolveAudiences(string(domain.RoleWarehouseOperator)), ServiceInventory)
}

func TestResolveAudiencesUnknownRole(t *testing.T) {
	table := DefaultPolicyTable()

	assert.Equal(t, []string{ServiceRole}, table.ResolveAudiences("JANITOR"))
	assert.Equal(t, []string{ServiceRole}, table.ResolveAudiences(""))
	assert.Equal(t, []string{ServiceRole}, table.ResolveAudiences("administrator"))
}

func TestResolveAudiencesReturnsCopy(t *testing.T) {
	table := DefaultPolicyTable()

	audience := table.ResolveAudiences(string(domain.RoleTeacher))
	audience[0] = "tampered"

	assert.Equal(t, ServiceRole, table.ResolveAudiences(string(domain.RoleTeacher))[0])
}

func TestNewPolicyTable(t *testing.T) {
	t.Run("requires every role", func(t *testing.T) {
		entries := fullEntries()
		delete(entries, domain.RoleStudent)

		_, err := NewPolicyTable(ServiceRole, entries)
		assert.ErrorContains(t, err, "STUDENT")
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		entries := fullEntries()
		entries[domain.Role("JANITOR")] = []string{ServiceUser}

		_, err := NewPolicyTable(ServiceRole, entries)
		assert.ErrorContains(t, err, "JANITOR")
	})

	t.Run("requires issuer", func(t *testing.T) {
		_, err := NewPolicyTable("  ", fullEntries())
		assert.Error(t, err)
	})

	t.Run("rejects empty service names", func(t *testing.T) {
		entries := fullEntries()
		entries[domain.RoleTeacher] = []string{""}

		_, err := NewPolicyTable(ServiceRole, entries)
		assert.Error(t, err)
	})

	t.Run("issuer first and duplicates dropped", func(t *testing.T) {
		entries := fullEntries()
		entries[domain.RoleTeacher] = []string{ServiceCourse, "Role-Service", ServiceCourse, "COURSE-SERVICE", ServiceSchedule}

		table, err := NewPolicyTable(ServiceRole, entries)
		require.NoError(t, err)
		assert.Equal(t,
			[]string{ServiceRole, ServiceCourse, ServiceSchedule},
			table.ResolveAudiences(string(domain.RoleTeacher)))
		assert.Equal(t, []string{ServiceRole}, table.ResolveAudiences(string(domain.RoleStudent)))
	})
}

const policyYAML = `
issuer: identity-service
roles:
  ADMINISTRATOR: [user-service, catalog-service]
  WAREHOUSE_MANAGER: [inventory-service]
  WAREHOUSE_OPERATOR: [inventory-service]
  TEACHER: [course-service]
  STUDENT: []
`

func TestParsePolicy(t *testing.T) {
	table, err := ParsePolicy([]byte(policyYAML))
	require.NoError(t, err)

	assert.Equal(t, "identity-service", table.Issuer())
	assert.Equal(t,
		[]string{"identity-service", "user-service", "catalog-service"},
		table.ResolveAudiences("ADMINISTRATOR"))
	assert.True(t, table.Knows("INVENTORY-SERVICE"))
	assert.False(t, table.Knows("billing-service"))
}

func TestParsePolicyErrors(t *testing.T) {
	_, err := ParsePolicy([]byte("issuer: [unterminated"))
	assert.Error(t, err)

	_, err = ParsePolicy([]byte("issuer: role-service\nroles:\n  JANITOR: [user-service]\n"))
	assert.ErrorContains(t, err, "JANITOR")

	_, err = ParsePolicy([]byte("issuer: role-service\nroles:\n  ADMINISTRATOR: []\n"))
	assert.Error(t, err)
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(policyYAML), 0o600))

	table, err := LoadPolicyFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"identity-service", "course-service"}, table.ResolveAudiences("TEACHER"))

	_, err = LoadPolicyFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
