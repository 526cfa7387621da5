package models

import (
	"encoding/json"
	"maps"
	"strings"
)

// UpstreamDefinitionKey is the policy definition key binding a policy to one
// or more federation upstreams.
const UpstreamDefinitionKey = "federation-upstream"

// UpstreamValue is the payload of a federation-upstream runtime parameter.
// The management API accepts a growing set of keys (uri, ack-mode,
// prefetch-count, reconnect-delay, trust-user-id, exchange, expires, ...) and
// migration must round-trip all of them untouched, so the value stays an
// open map rather than a closed struct.
type UpstreamValue map[string]any

// URI returns the upstream connection URI, or "" when absent.
func (v UpstreamValue) URI() string {
	uri, _ := v["uri"].(string)
	return uri
}

func (v UpstreamValue) SetURI(uri string) {
	v["uri"] = uri
}

// Exchange returns the upstream exchange name, or "" when absent.
func (v UpstreamValue) Exchange() string {
	exchange, _ := v["exchange"].(string)
	return exchange
}

// Clone returns a copy safe against top-level mutation. Nested values are
// shared; callers only ever rewrite the top-level uri key.
func (v UpstreamValue) Clone() UpstreamValue {
	return UpstreamValue(maps.Clone(map[string]any(v)))
}

// Upstream is a federation-upstream parameter as returned by
// GET /api/parameters/federation-upstream/{vhost}. Unique by name per vhost.
type Upstream struct {
	Name  string        `json:"name" yaml:"name"`
	Vhost string        `json:"vhost,omitempty" yaml:"vhost,omitempty"`
	Value UpstreamValue `json:"value" yaml:"value"`
}

// Policy is a broker policy as returned by GET /api/policies/{vhost}.
// Definition is kept open because the set of federation-related keys is not
// closed.
type Policy struct {
	Name       string         `json:"name" yaml:"name"`
	Vhost      string         `json:"vhost,omitempty" yaml:"vhost,omitempty"`
	Pattern    string         `json:"pattern" yaml:"pattern"`
	ApplyTo    string         `json:"apply-to,omitempty" yaml:"apply-to,omitempty"`
	Priority   int            `json:"priority" yaml:"priority"`
	Definition map[string]any `json:"definition" yaml:"definition"`
}

// UpstreamRefs returns the federation upstream names the policy definition
// references. The management API serializes the reference as either a single
// string or a list of strings; both forms are handled.
func (p Policy) UpstreamRefs() []string {
	switch ref := p.Definition[UpstreamDefinitionKey].(type) {
	case string:
		return []string{ref}
	case []string:
		return ref
	case []any:
		names := make([]string, 0, len(ref))
		for _, item := range ref {
			if name, ok := item.(string); ok {
				names = append(names, name)
			}
		}
		return names
	default:
		return nil
	}
}

// PrefixUpstreamRefs returns a copy of the policy whose federation-upstream
// reference(s) carry the given prefix, preserving the string-vs-list shape.
// The same prefix must be applied to the upstream names themselves so the
// references stay valid.
func (p Policy) PrefixUpstreamRefs(prefix string) Policy {
	if prefix == "" || p.Definition == nil {
		return p
	}

	out := p
	out.Definition = maps.Clone(p.Definition)

	switch ref := out.Definition[UpstreamDefinitionKey].(type) {
	case string:
		out.Definition[UpstreamDefinitionKey] = prefix + ref
	case []string:
		prefixed := make([]string, len(ref))
		for i, name := range ref {
			prefixed[i] = prefix + name
		}
		out.Definition[UpstreamDefinitionKey] = prefixed
	case []any:
		prefixed := make([]any, len(ref))
		for i, item := range ref {
			if name, ok := item.(string); ok {
				prefixed[i] = prefix + name
			} else {
				prefixed[i] = item
			}
		}
		out.Definition[UpstreamDefinitionKey] = prefixed
	}
	return out
}

// PolicyFilter decides whether a policy belongs to the federation-related
// set. Injectable so the heuristic stays testable and replaceable.
type PolicyFilter func(Policy) bool

// FederationPolicyFilter is the default filter: a policy is
// federation-related iff its serialized definition contains the substring
// "federation". This is a loose heuristic rather than a strict schema match,
// kept intentionally forward-compatible with federation keys we do not know
// about yet.
func FederationPolicyFilter(p Policy) bool {
	raw, err := json.Marshal(p.Definition)
	if err != nil {
		return false
	}
	return strings.Contains(string(raw), "federation")
}

// FilterPolicies returns the policies accepted by keep, preserving order.
func FilterPolicies(policies []Policy, keep PolicyFilter) []Policy {
	filtered := make([]Policy, 0, len(policies))
	for _, p := range policies {
		if keep(p) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// Snapshot is a point-in-time read of the federation configuration of one
// broker vhost. Immutable once captured.
type Snapshot struct {
	Upstreams []Upstream `json:"upstreams" yaml:"upstreams"`
	Policies  []Policy   `json:"policies" yaml:"policies"`
}

// Empty reports whether the snapshot holds no federation configuration.
func (s Snapshot) Empty() bool {
	return len(s.Upstreams) == 0 && len(s.Policies) == 0
}

// LinkStatus is a running federation link as returned by
// GET /api/federation-links. Transient and informational only, never part of
// a snapshot.
type LinkStatus struct {
	Upstream string `json:"upstream"`
	Exchange string `json:"exchange,omitempty"`
	Queue    string `json:"queue,omitempty"`
	Type     string `json:"type,omitempty"`
	Status   string `json:"status"`
}

// Exchange is the subset of GET /api/exchanges needed for federation plugin
// detection.
type Exchange struct {
	Name  string `json:"name"`
	Vhost string `json:"vhost,omitempty"`
	Type  string `json:"type"`
}

// FederationExchangeType is the exchange type registered by the federation
// plugin; its presence in the exchange list means the plugin is enabled.
const FederationExchangeType = "x-federation-upstream"
