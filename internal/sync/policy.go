package sync

import (
	"fmt"
	"strings"

	"github.com/xtxerr/volimport/internal/errors"
)

// =============================================================================
// Policy Router
// =============================================================================

// PolicyRouter maps reconciler paths to policies. A path without its own
// entry inherits from its nearest configured parent:
//
//	policies:
//	  coord_spaces: create-only   # never touch existing spaces
//	  coord_spaces.mosaics: merge # but keep growing mosaic bounds
//
// A router is immutable and safe for concurrent use.
type PolicyRouter struct {
	defaultPolicy Policy
	policies      map[string]Policy
}

// NewPolicyRouter returns a router over policies. An invalid default
// becomes merge; invalid entries are dropped.
func NewPolicyRouter(defaultPolicy Policy, policies map[string]Policy) *PolicyRouter {
	if !defaultPolicy.IsValid() {
		defaultPolicy = PolicyMerge
	}

	r := &PolicyRouter{
		defaultPolicy: defaultPolicy,
		policies:      make(map[string]Policy, len(policies)),
	}
	for path, p := range policies {
		if p.IsValid() {
			r.policies[path] = p
		}
	}
	return r
}

// Get returns the policy of path: its own entry, else that of the longest
// configured parent, else the default.
func (r *PolicyRouter) Get(path string) Policy {
	for {
		if p, ok := r.policies[path]; ok {
			return p
		}
		i := strings.LastIndexByte(path, '.')
		if i < 0 {
			return r.defaultPolicy
		}
		path = path[:i]
	}
}

// GetDefault returns the default policy.
func (r *PolicyRouter) GetDefault() Policy {
	return r.defaultPolicy
}

// =============================================================================
// Policy Helpers
// =============================================================================

// ParsePolicy parses a policy name. An empty string yields PolicyMerge.
func ParsePolicy(s string) (Policy, error) {
	if s == "" {
		return PolicyMerge, nil
	}
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q (want merge, create-only or ignore)", errors.ErrInvalidPolicy, s)
	}
	return p, nil
}

// ShouldCreate reports whether policy creates missing entities.
func ShouldCreate(policy Policy) bool {
	return policy != PolicyIgnore
}

// ShouldUpdate reports whether policy rewrites changed entities.
func ShouldUpdate(policy Policy) bool {
	return policy == PolicyMerge
}
