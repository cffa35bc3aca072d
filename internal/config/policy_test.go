package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicies(t *testing.T) {
	scope := DefaultScopePolicy()
	assert.Contains(t, scope.NonITPatterns, "cooking")
	assert.Contains(t, scope.ITCareerWhitelist, "certification")
	assert.Contains(t, scope.ITAnchors, "vpn")

	domain := DefaultDomainPolicy()
	assert.Contains(t, domain.DomainCategories["cybersecurity"], "nist.gov")
	assert.Contains(t, domain.DomainCategories["it_general"], "arstechnica.com")
	assert.Contains(t, domain.VendorMap["cisco"], "advisories.cisco.com")
}

func TestLoadPolicyNoFile(t *testing.T) {
	policy, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultScopePolicy(), policy.Scope)
	assert.Equal(t, DefaultDomainPolicy(), policy.Domain)
}

func TestLoadPolicyOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := `
scope:
  non_it_patterns:
    - gardening
domain:
  vendor_map:
    acme:
      - docs.acme.example
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	policy, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"gardening"}, policy.Scope.NonITPatterns)
	// Sections absent from the override keep their defaults.
	assert.Equal(t, DefaultScopePolicy().ITAnchors, policy.Scope.ITAnchors)
	assert.Equal(t, []string{"docs.acme.example"}, policy.Domain.VendorMap["acme"])
	assert.Equal(t, DefaultDomainPolicy().DomainCategories, policy.Domain.DomainCategories)
}

func TestLoadPolicyBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scope: ["), 0o644))

	policy, err := LoadPolicy(path)
	assert.Error(t, err)
	// Defaults still usable on parse failure.
	assert.Equal(t, DefaultScopePolicy(), policy.Scope)
}
