package dyndns

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var errEmptyDomain = errors.New("domain cannot be empty")

// NormalizeDomain lower-cases domain and strips a trailing dot.
// It rejects names without a dot and names that are themselves a public suffix,
// since no hosted zone can own a record for "com" or "co.uk".
func NormalizeDomain(domain string) (string, error) {
	d := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if d == "" {
		return "", errEmptyDomain
	}
	if !strings.Contains(d, ".") {
		return "", fmt.Errorf("domain %q must have at least one dot", domain)
	}
	for _, label := range strings.Split(d, ".") {
		if label == "" {
			return "", fmt.Errorf("domain %q has an empty label", domain)
		}
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(d); err != nil {
		return "", fmt.Errorf("domain %q is not registrable: %w", domain, err)
	}
	return d, nil
}

// normalizeDomains validates every domain and drops duplicates, keeping the first occurrence.
func normalizeDomains(domains []string) ([]string, error) {
	if len(domains) == 0 {
		return nil, errors.New("at least one domain is required")
	}
	seen := make(map[string]bool, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		n, err := NormalizeDomain(d)
		if err != nil {
			return nil, err
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}
