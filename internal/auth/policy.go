package auth

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/fleet-auth/internal/domain"
)

// Canonical service names used in token audiences.
const (
	ServiceRole      = "role-service"
	ServiceUser      = "user-service"
	ServiceCatalog   = "catalog-service"
	ServiceInventory = "inventory-service"
	ServiceWarehouse = "warehouse-service"
	ServiceCourse    = "course-service"
	ServiceSchedule  = "schedule-service"
)

// PolicyTable maps each role to the ordered audience it may reach.
// It is immutable once built.
type PolicyTable struct {
	issuer    string
	audiences map[domain.Role][]string
}

// NewPolicyTable builds a table from the issuer's service name and per-role service lists.
// Every enumerated role must have an entry; the issuer is always placed first and
// duplicate names are dropped.
func NewPolicyTable(issuer string, entries map[domain.Role][]string) (*PolicyTable, error) {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return nil, errors.New("policy: issuer service name is required")
	}

	for role := range entries {
		if _, ok := domain.ParseRole(string(role)); !ok {
			return nil, fmt.Errorf("policy: unknown role %q", role)
		}
	}

	audiences := make(map[domain.Role][]string, len(entries))
	for _, role := range domain.Roles() {
		services, ok := entries[role]
		if !ok {
			return nil, fmt.Errorf("policy: no audience defined for role %s", role)
		}

		audience := []string{issuer}
		seen := map[string]struct{}{strings.ToLower(issuer): {}}
		for _, svc := range services {
			svc = strings.TrimSpace(svc)
			if svc == "" {
				return nil, fmt.Errorf("policy: empty service name for role %s", role)
			}
			key := strings.ToLower(svc)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			audience = append(audience, svc)
		}
		audiences[role] = audience
	}

	return &PolicyTable{issuer: issuer, audiences: audiences}, nil
}

// DefaultPolicyTable returns the reference role to service mapping.
func DefaultPolicyTable() *PolicyTable {
	table, err := NewPolicyTable(ServiceRole, map[domain.Role][]string{
		domain.RoleAdministrator:     {ServiceUser, ServiceCatalog, ServiceCourse, ServiceSchedule},
		domain.RoleWarehouseManager:  {ServiceInventory, ServiceWarehouse, ServiceCatalog},
		domain.RoleWarehouseOperator: {ServiceInventory, ServiceWarehouse},
		domain.RoleTeacher:           {ServiceCourse, ServiceSchedule},
		domain.RoleStudent:           {ServiceSchedule},
	})
	if err != nil {
		panic(err)
	}
	return table
}

type policyFile struct {
	Issuer string              `yaml:"issuer"`
	Roles  map[string][]string `yaml:"roles"`
}

// LoadPolicyFile reads a YAML policy of the form:
//
//	issuer: role-service
//	roles:
//	  ADMINISTRATOR: [user-service, catalog-service]
func LoadPolicyFile(path string) (*PolicyTable, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(content)
}

// ParsePolicy decodes a YAML policy document.
func ParsePolicy(content []byte) (*PolicyTable, error) {
	var doc policyFile
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}

	entries := make(map[domain.Role][]string, len(doc.Roles))
	for name, services := range doc.Roles {
		role, ok := domain.ParseRole(name)
		if !ok {
			return nil, fmt.Errorf("policy: unknown role %q", name)
		}
		entries[role] = services
	}
	return NewPolicyTable(doc.Issuer, entries)
}

// Issuer returns the issuer's own service name.
func (p *PolicyTable) Issuer() string {
	return p.issuer
}

// ResolveAudiences returns the audience for role. Unknown roles resolve to the issuer alone.
func (p *PolicyTable) ResolveAudiences(role string) []string {
	// TODO: reject unknown roles at mint time once every principal store holds enumerated roles.
	audience, ok := p.audiences[domain.Role(role)]
	if !ok {
		return []string{p.issuer}
	}
	out := make([]string, len(audience))
	copy(out, audience)
	return out
}

// Services lists every service name referenced by the table, sorted.
func (p *PolicyTable) Services() []string {
	seen := map[string]struct{}{}
	for _, audience := range p.audiences {
		for _, svc := range audience {
			seen[svc] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for svc := range seen {
		out = append(out, svc)
	}
	sort.Strings(out)
	return out
}

// Knows reports whether service appears in any audience, ignoring case.
func (p *PolicyTable) Knows(service string) bool {
	for _, svc := range p.Services() {
		if strings.EqualFold(svc, service) {
			return true
		}
	}
	return false
}
