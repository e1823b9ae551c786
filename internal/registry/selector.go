package registry

import "strings"

// selectCluster resolves which cluster a call targets. The priority chain
// is fixed: an explicit selector always wins and must name a configured
// cluster, otherwise the resource name is matched against the route table
// in declaration order, otherwise the default cluster applies.
//
// Route matching is substring containment. Multiple matching rules are
// fine as long as they agree on the target; conflicting targets produce
// an AmbiguousRouteError instead of a silent first-wins pick.
//
// The function is pure: no I/O, no locking, no cache access.
func selectCluster(known map[string]ClusterConfig, routes []RouteRule, defaultName, explicit, resource string) (string, error) {
	if explicit != "" {
		if _, ok := known[explicit]; !ok {
			return "", &UnknownClusterError{Name: explicit}
		}
		return explicit, nil
	}

	if resource != "" {
		var targets []string
		for _, rule := range routes {
			if rule.Pattern == "" || !strings.Contains(resource, rule.Pattern) {
				continue
			}
			if !containsString(targets, rule.Target) {
				targets = append(targets, rule.Target)
			}
		}
		switch len(targets) {
		case 0:
		case 1:
			return targets[0], nil
		default:
			return "", &AmbiguousRouteError{Resource: resource, Targets: targets}
		}
	}

	return defaultName, nil
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
