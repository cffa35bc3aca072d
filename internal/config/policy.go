package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScopePolicy holds the keyword lexicons the scope guard matches against.
type ScopePolicy struct {
	// NonITPatterns mark a query as potentially out of scope. Multi-word
	// entries match as substrings; single words match on word boundaries.
	NonITPatterns []string `yaml:"non_it_patterns"`
	// ITCareerWhitelist keeps career questions in scope when allowed.
	ITCareerWhitelist []string `yaml:"it_career_whitelist"`
	// ITAnchors override a non-IT match: a query mentioning one is never
	// refused on keywords alone.
	ITAnchors []string `yaml:"it_anchors"`
}

// DomainPolicy drives the web-search source's domain biasing.
type DomainPolicy struct {
	// DomainCategories maps a query category to its preferred domains.
	DomainCategories map[string][]string `yaml:"domain_categories"`
	// VendorMap boosts vendor sites when the vendor name appears in the query.
	VendorMap map[string][]string `yaml:"vendor_map"`
}

// Policy bundles both override surfaces for the YAML policy file.
type Policy struct {
	Scope  ScopePolicy  `yaml:"scope"`
	Domain DomainPolicy `yaml:"domain"`
}

// DefaultScopePolicy returns the built-in scope lexicons.
func DefaultScopePolicy() ScopePolicy {
	return ScopePolicy{
		NonITPatterns: []string{
			"relationship", "dating", "marriage", "breakup", "love",
			"diet", "nutrition", "weight loss", "fitness", "workout",
			"mental health", "therapy", "depression", "anxiety",
			"finance", "stock market", "stock trading", "cryptocurrency",
			"crypto trading", "crypto wallet", "investment", "tax", "budget",
			"politics", "election", "public policy", "foreign policy", "economic policy",
			"religion", "spiritual", "astrology", "horoscope",
			"parenting", "pregnancy", "baby", "children",
			"travel", "vacation", "tourism", "itinerary",
			"sports", "football", "soccer", "basketball",
			"cooking", "recipe", "food", "restaurant",
			"celebrity", "gossip", "entertainment", "movie", "music",
		},
		ITCareerWhitelist: []string{
			"resume", "cv", "interview", "career", "study path", "roadmap",
			"certification", "certifications", "soc analyst", "sre career",
			"devops upskilling", "job market", "portfolio", "linkedin",
		},
		ITAnchors: []string{
			"firewall", "vpn", "router", "switch", "ips", "ids", "siem",
			"xdr", "edr", "soar", "endpoint",
			"malware", "cve", "vulnerability", "exploit", "threat",
			"tls", "ssl", "certificate", "certificates", "ssh",
			"linux", "windows", "active directory", "group policy", "gpo", "powershell",
			"azure", "aws", "gcp", "kubernetes", "docker", "terraform",
			"ansible", "devops", "sre",
			"fortinet", "cisco", "palo alto", "okta", "cloudflare", "nginx",
			"istio", "gitlab", "github", "s3", "ec2", "vpc",
		},
	}
}

// DefaultDomainPolicy returns the built-in domain categories and vendor boosts.
func DefaultDomainPolicy() DomainPolicy {
	return DomainPolicy{
		DomainCategories: map[string][]string{
			"cybersecurity": {
				"bleepingcomputer.com", "krebsonsecurity.com", "securityweek.com",
				"threatpost.com", "darkreading.com", "infosecurity-magazine.com",
				"cybersecuritynews.com", "hackread.com", "thehackernews.com",
				"securityboulevard.com", "cyberscoop.com", "recordedfuture.com",
				"nist.gov", "cisa.gov", "sans.org", "owasp.org", "mitre.org",
				"attack.mitre.org",
				"talosintelligence.com", "unit42.paloaltonetworks.com",
				"blog.talosintelligence.com", "crowdstrike.com",
				"mandiant.com", "rapid7.com", "tenable.com", "qualys.com",
				"github.com/advisories", "msrc.microsoft.com",
			},
			"cloud_devops": {
				"aws.amazon.com", "azure.microsoft.com", "cloud.google.com",
				"aws.amazon.com/blogs/security", "azure.microsoft.com/blog/topics/security",
				"cloud.google.com/blog/products/identity-security",
				"cloudsecurityalliance.org", "devops.com", "containerjournal.com",
				"kubernetes.io", "docker.com", "redhat.com", "vmware.com",
				"docs.nginx.com", "nginx.com", "istio.io", "envoyproxy.io",
				"developer.hashicorp.com", "helm.sh", "cncf.io",
			},
			"it_general": {
				"techcrunch.com", "arstechnica.com", "zdnet.com", "computerworld.com",
				"infoworld.com", "techrepublic.com", "itpro.co.uk", "networkworld.com",
				"datacenterknowledge.com", "enterprisetech.com", "itbusinessedge.com",
			},
			"programming": {
				"stackoverflow.com", "github.com", "dev.to", "medium.com",
				"hackernoon.com", "freecodecamp.org", "codinghorror.com",
			},
			"business_tech": {
				"forbes.com", "businessinsider.com", "wired.com", "fastcompany.com",
				"venturebeat.com", "techcrunch.com", "recode.net",
			},
			"research_academic": {
				"arxiv.org", "acm.org", "ieee.org", "springer.com", "nature.com",
				"sciencedirect.com", "researchgate.net",
			},
		},
		VendorMap: map[string][]string{
			"cisco":        {"advisories.cisco.com", "blogs.cisco.com", "talosintelligence.com"},
			"palo alto":    {"paloaltonetworks.com", "unit42.paloaltonetworks.com", "docs.paloaltonetworks.com", "live.paloaltonetworks.com"},
			"fortinet":     {"fortinet.com", "docs.fortinet.com"},
			"cloudflare":   {"cloudflare.com", "blog.cloudflare.com", "developers.cloudflare.com", "docs.cloudflare.com"},
			"okta":         {"okta.com", "developer.okta.com", "help.okta.com"},
			"auth0":        {"auth0.com", "auth0.com/docs"},
			"github":       {"github.com", "docs.github.com", "github.com/advisories"},
			"gitlab":       {"gitlab.com", "docs.gitlab.com"},
			"hashicorp":    {"developer.hashicorp.com"},
			"terraform":    {"developer.hashicorp.com", "registry.terraform.io"},
			"vault":        {"developer.hashicorp.com"},
			"consul":       {"developer.hashicorp.com"},
			"nginx":        {"docs.nginx.com", "nginx.com"},
			"istio":        {"istio.io"},
			"envoy":        {"envoyproxy.io"},
			"red hat":      {"redhat.com", "access.redhat.com/security/cve"},
			"ubuntu":       {"ubuntu.com/security"},
			"debian":       {"security.debian.org"},
			"microsoft":    {"learn.microsoft.com", "msrc.microsoft.com"},
			"apple":        {"support.apple.com"},
			"project zero": {"security.googleblog.com"},
		},
	}
}

// LoadPolicy returns the default policy overlaid with the YAML override file
// when configured. Empty sections of the override keep their defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := Policy{
		Scope:  DefaultScopePolicy(),
		Domain: DefaultDomainPolicy(),
	}
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read policy file: %w", err)
	}

	var override Policy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return policy, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	if len(override.Scope.NonITPatterns) > 0 {
		policy.Scope.NonITPatterns = override.Scope.NonITPatterns
	}
	if len(override.Scope.ITCareerWhitelist) > 0 {
		policy.Scope.ITCareerWhitelist = override.Scope.ITCareerWhitelist
	}
	if len(override.Scope.ITAnchors) > 0 {
		policy.Scope.ITAnchors = override.Scope.ITAnchors
	}
	if len(override.Domain.DomainCategories) > 0 {
		policy.Domain.DomainCategories = override.Domain.DomainCategories
	}
	if len(override.Domain.VendorMap) > 0 {
		policy.Domain.VendorMap = override.Domain.VendorMap
	}
	return policy, nil
}
