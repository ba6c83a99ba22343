package manifest

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	libstrings "ekscd/internal/lib/strings"
)

// MinKubernetesVersion is the oldest control plane version accepted.
const MinKubernetesVersion = "1.23"

// retention values accepted by CloudWatch Logs, 0 meaning never expire
var retentionDays = []int{0, 1, 3, 5, 7, 14, 30, 60, 90, 120, 150, 180, 365, 400, 545, 731, 1096, 1827, 2192, 2557, 2922, 3288, 3653}

type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid manifest:\n  - " + strings.Join(e.Problems, "\n  - ")
}

type problems []string

func (p *problems) add(format string, args ...interface{}) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (m *Manifest) Validate() error {
	var p problems

	if _, err := m.DefaultTags.NamePrefix(); err != nil {
		p.add("default_tags: %v", err)
	}

	validateSubnets(&p, "cluster.subnet_ids", m.Cluster.SubnetIDs)
	validateSubnets(&p, "node_group.subnet_ids", m.NodeGroup.SubnetIDs)

	if version, err := semver.NewVersion(m.Cluster.Version); err != nil {
		p.add("cluster.version: %q is not a version", m.Cluster.Version)
	} else if version.LessThan(semver.MustParse(MinKubernetesVersion)) {
		p.add("cluster.version: %s is older than %s", m.Cluster.Version, MinKubernetesVersion)
	}

	seenLogTypes := map[string]bool{}
	for _, logType := range m.Cluster.LogTypes {
		if !libstrings.AnyOf(logType, LogTypes...) {
			p.add("cluster.log_types: unknown category %q, expected one of %s", logType, strings.Join(LogTypes, ", "))
		}
		if seenLogTypes[logType] {
			p.add("cluster.log_types: %q listed twice", logType)
		}
		seenLogTypes[logType] = true
	}
	if !m.Cluster.PublicAccess() && !m.Cluster.PrivateAccess() {
		p.add("cluster: at least one of endpoint_public_access and endpoint_private_access must be enabled")
	}

	retention := m.Logging.Retention()
	if retention < 0 {
		p.add("logging.retention_days: must not be negative")
	} else if !validRetention(retention) {
		p.add("logging.retention_days: %d is not accepted by CloudWatch Logs", retention)
	}

	desired, min, max := m.NodeGroup.Scaling()
	if min < 0 {
		p.add("node_group.min_size: must not be negative")
	}
	if max < 1 {
		p.add("node_group.max_size: must be at least 1")
	}
	if min > desired || desired > max {
		p.add("node_group: min_size (%d) <= desired_size (%d) <= max_size (%d) does not hold", min, desired, max)
	}
	if !libstrings.AnyOf(m.NodeGroup.CapacityType, CapacityOnDemand, CapacitySpot) {
		p.add("node_group.capacity_type: %q, expected %s or %s", m.NodeGroup.CapacityType, CapacityOnDemand, CapacitySpot)
	}
	if m.NodeGroup.DiskSize < 1 {
		p.add("node_group.disk_size: must be positive")
	}

	seenAddons := map[string]bool{}
	for i, addon := range m.Addons {
		if addon.Name == "" {
			p.add("addons[%d].name: must be set", i)
		}
		if seenAddons[addon.Name] {
			p.add("addons[%d].name: %q declared twice", i, addon.Name)
		}
		seenAddons[addon.Name] = true
		for field, policy := range map[string]string{
			"resolve_conflicts_on_create": addon.ResolveConflictsOnCreate,
			"resolve_conflicts_on_update": addon.ResolveConflictsOnUpdate,
		} {
			if !libstrings.AnyOf(policy, ResolveOverwrite, ResolveNone, ResolvePreserve) {
				p.add("addons[%d].%s: %q, expected OVERWRITE, NONE or PRESERVE", i, field, policy)
			}
		}
	}

	switch m.State.Backend {
	case StateBackendSQLite:
	case StateBackendDynamoDB:
		if m.State.Table == "" {
			p.add("state.table: required for the dynamodb backend")
		}
	default:
		p.add("state.backend: %q, expected sqlite or dynamodb", m.State.Backend)
	}

	if len(p) > 0 {
		return &ValidationError{Problems: p}
	}
	return nil
}

func validateSubnets(p *problems, field string, subnets []string) {
	if len(subnets) == 0 {
		p.add("%s: at least one subnet is required", field)
		return
	}
	seen := map[string]bool{}
	for _, subnet := range subnets {
		if !strings.HasPrefix(subnet, "subnet-") {
			p.add("%s: %q is not a subnet id", field, subnet)
		}
		if seen[subnet] {
			p.add("%s: %q listed twice", field, subnet)
		}
		seen[subnet] = true
	}
}

func validRetention(days int) bool {
	for _, d := range retentionDays {
		if d == days {
			return true
		}
	}
	return false
}

// GitOpsReady reports what is missing before Flux can be bootstrapped.
func (m *Manifest) GitOpsReady() error {
	var p problems
	if m.GitOps.Owner == "" {
		p.add("gitops.owner: must be set")
	}
	if m.GitOps.Repository == "" {
		p.add("gitops.repository: must be set")
	}
	if m.GitOps.Path == "" {
		p.add("gitops.path: must be set")
	}
	if len(p) > 0 {
		return &ValidationError{Problems: p}
	}
	return nil
}
