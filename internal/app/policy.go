package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

var (
	ErrInvalid = errors.New("invalid setting.")
)

// Policy is the immutable per-run configuration. Build it with NewPolicy;
// the zero value archives nothing.
type Policy struct {
	// Domains a member must belong to for the orphan rule. Lowercased,
	// deduplicated, no leading "@". Empty disables the rule.
	Domains []string
	// Threshold for the inactivity rule. Zero disables the rule.
	Threshold time.Duration
	// Live performs the archive calls. False simulates them.
	Live bool
	// JoinChannels joins a channel the caller is not a member of before
	// reading its history.
	JoinChannels bool
	// Exclude lists channel names never archived.
	Exclude []string
}

// PolicyInput is the raw configuration collected from the flags and the
// optional policy file, before validation.
type PolicyInput struct {
	Domains      []string
	Days         int
	Live         bool
	JoinChannels bool
	Exclude      []string
}

// NewPolicy validates and normalizes the raw input.
//
// Domains are trimmed, lowercased and deduplicated, a leading "@" is
// dropped. An empty or malformed domain is an error rather than a silent
// match-everything. Days must not be negative; zero disables the inactivity
// rule.
func NewPolicy(in PolicyInput) (Policy, error) {
	if in.Days < 0 {
		return Policy{}, fmt.Errorf("%w field:days, must not be negative", ErrInvalid)
	}

	pol := Policy{
		Threshold:    time.Duration(in.Days) * 24 * time.Hour,
		Live:         in.Live,
		JoinChannels: in.JoinChannels,
	}

	for _, raw := range in.Domains {
		domain := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "@")
		if domain == "" || strings.ContainsAny(domain, "@ ") {
			return Policy{}, fmt.Errorf("%w field:email_domains, entry:%q", ErrInvalid, raw)
		}
		if !pol.contains(domain) {
			pol.Domains = append(pol.Domains, domain)
		}
	}

	for _, raw := range in.Exclude {
		name := strings.TrimSpace(raw)
		if name == "" {
			return Policy{}, fmt.Errorf("%w field:exclude, empty channel name", ErrInvalid)
		}
		if !pol.Excluded(name) {
			pol.Exclude = append(pol.Exclude, name)
		}
	}

	return pol, nil
}

// ContainsAll reports whether every given domain belongs to the policy set.
// An empty policy set matches nothing.
func (p Policy) ContainsAll(domains []string) bool {
	if len(p.Domains) == 0 {
		return false
	}
	for _, d := range domains {
		if !p.contains(d) {
			return false
		}
	}
	return true
}

func (p Policy) contains(domain string) bool {
	for _, d := range p.Domains {
		if d == domain {
			return true
		}
	}
	return false
}

// Excluded reports whether the channel name is shielded from archival.
func (p Policy) Excluded(name string) bool {
	for _, n := range p.Exclude {
		if n == name {
			return true
		}
	}
	return false
}

// PolicyFile mirrors the optional YAML policy document. Pointer fields keep
// "absent" distinguishable from zero so the command line can override only
// what the file left unset.
type PolicyFile struct {
	EmailDomains []string `yaml:"email_domains,omitempty"`
	Days         *int     `yaml:"days,omitempty"`
	Live         *bool    `yaml:"live,omitempty"`
	JoinChannels *bool    `yaml:"join_channels,omitempty"`
	Exclude      []string `yaml:"exclude,omitempty"`
}

// LoadPolicyFile reads and parses a YAML policy document.
func LoadPolicyFile(path string) (*PolicyFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePolicyFile(raw)
}

// ParsePolicyFile parses a YAML policy document. Unknown keys are rejected.
func ParsePolicyFile(raw []byte) (*PolicyFile, error) {
	pf := &PolicyFile{}
	if err := yaml.UnmarshalStrict(raw, pf); err != nil {
		return nil, err
	}
	return pf, nil
}
