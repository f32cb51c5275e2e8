package insights

import (
	"strings"

	"github.com/nucleus/di-collector/internal/core"
)

// Service is one Directory Insights event source category.
type Service string

const (
	ServiceDirectory Service = "directory"
	ServiceRadius    Service = "radius"
	ServiceSSO       Service = "sso"
	ServiceSystems   Service = "systems"
	ServiceLDAP      Service = "ldap"
	ServiceMDM       Service = "mdm"
	ServiceAll       Service = "all"
)

var knownServices = map[Service]bool{
	ServiceDirectory: true,
	ServiceRadius:    true,
	ServiceSSO:       true,
	ServiceSystems:   true,
	ServiceLDAP:      true,
	ServiceMDM:       true,
	ServiceAll:       true,
}

// Selector is a validated, ordered set of services.
type Selector struct {
	services []Service
}

// ParseSelector parses a comma-separated service list. Spaces are removed
// and names lower-cased before validation; repeated names keep their first
// position. An empty or unknown member, or "all" combined with anything
// else, is a configuration error.
func ParseSelector(raw string) (Selector, error) {
	cleaned := strings.ToLower(strings.ReplaceAll(raw, " ", ""))
	parts := strings.Split(cleaned, ",")

	seen := make(map[Service]bool, len(parts))
	services := make([]Service, 0, len(parts))
	for _, part := range parts {
		svc := Service(part)
		if !knownServices[svc] {
			return Selector{}, core.ConfigurationError("unknown service: %q", part)
		}
		if seen[svc] {
			continue
		}
		seen[svc] = true
		services = append(services, svc)
	}
	if seen[ServiceAll] && len(services) > 1 {
		return Selector{}, core.ConfigurationError("service list contains 'all' and additional services: %v", services)
	}
	return Selector{services: services}, nil
}

// Services returns a copy of the selected services in configured order.
func (s Selector) Services() []Service {
	return append([]Service(nil), s.services...)
}

// Names returns the selected service names in configured order.
func (s Selector) Names() []string {
	names := make([]string, len(s.services))
	for i, svc := range s.services {
		names[i] = string(svc)
	}
	return names
}

// Len returns the number of selected services.
func (s Selector) Len() int { return len(s.services) }

func (s Selector) String() string { return strings.Join(s.Names(), ",") }
