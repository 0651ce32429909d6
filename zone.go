package dyndns

import "strings"

// Zone is a provider's container for the records of a domain and its subdomains.
type Zone struct {
	ID   string
	Name string // without trailing dot
}

// Record is an address record inside a Zone.
type Record struct {
	Name  string
	Type  string // "A" or "AAAA"
	TTL   int64
	Value string
}

// MatchZone returns the zone that owns domain:
// the zone with the longest name that is equal to domain or a label-aligned suffix of it.
// Zones with equal names are broken by the smallest ID.
func MatchZone(domain string, zones []Zone) (Zone, error) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))

	var best Zone
	found := false
	for _, z := range zones {
		name := strings.ToLower(strings.TrimSuffix(z.Name, "."))
		if name == "" {
			continue
		}
		if domain != name && !strings.HasSuffix(domain, "."+name) {
			continue
		}
		bestName := strings.ToLower(strings.TrimSuffix(best.Name, "."))
		longer := len(name) > len(bestName)
		tie := len(name) == len(bestName) && z.ID < best.ID
		if found && !longer && !tie {
			continue
		}
		best, found = z, true
	}
	if !found {
		return Zone{}, &ZoneLookupError{Domain: domain, Zones: len(zones)}
	}
	return best, nil
}
