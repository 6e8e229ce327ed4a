package business

import (
	"fmt"

	"github.com/talgya/holdco/internal/rng"
)

const maxNameAttempts = 20

var namePrefixes = []string{
	"Summit", "Harbor", "Keystone", "Granite", "Northwind", "Bluebird", "Cedar", "Ironwood",
	"Lakeside", "Pioneer", "Redline", "Silverleaf", "Tristate", "Evergreen", "Meridian",
	"Beacon", "Copperline", "Fairway", "Highland", "Liberty", "Oakmont", "Prairie", "Riverbend",
	"Sterling", "Westfield", "Anchor", "Crescent", "Frontier", "Heritage", "Sequoia",
}

var nameSuffixes = map[string][]string{
	"agency":        {"Creative", "Media", "Collective", "Partners", "Studio"},
	"saas":          {"Software", "Systems", "Labs", "Cloud", "Analytics"},
	"home_services": {"Home Services", "Mechanical", "Comfort Co", "Pros", "Contracting"},
	"consumer":      {"Brands", "Goods", "Supply Co", "Outfitters", "Provisions"},
	"industrial":    {"Manufacturing", "Industries", "Fabrication", "Works", "Components"},
	"b2b_services":  {"Advisors", "Solutions", "Group", "Associates", "Services"},
	"healthcare":    {"Health", "Care Partners", "Clinics", "Medical", "Wellness"},
	"restaurant":    {"Kitchen", "Hospitality", "Eateries", "Grill Group", "Dining Co"},
	"education":     {"Academy", "Learning", "Institute", "Education", "Training"},
	"distribution":  {"Distribution", "Supply", "Logistics", "Wholesale", "Trading Co"},
}

var defaultSuffixes = []string{"Holdings", "Enterprises", "Company"}

// NameRegistry tracks names in use so generated names stay unique.
type NameRegistry struct {
	used map[string]bool
}

// NewNameRegistry seeds the registry with names already in play.
func NewNameRegistry(existing ...string) *NameRegistry {
	r := &NameRegistry{used: make(map[string]bool, len(existing))}
	for _, n := range existing {
		r.used[n] = true
	}
	return r
}

// Reserve marks a name as taken.
func (r *NameRegistry) Reserve(name string) {
	r.used[name] = true
}

// Taken reports whether name is in use.
func (r *NameRegistry) Taken(name string) bool {
	return r.used[name]
}

// Generate draws a sector-flavoured name, retrying on collision and falling
// back to a numeric suffix that is guaranteed unique.
func (r *NameRegistry) Generate(sectorID string, s *rng.Stream) string {
	suffixes, ok := nameSuffixes[sectorID]
	if !ok {
		suffixes = defaultSuffixes
	}
	var name string
	for i := 0; i < maxNameAttempts; i++ {
		name = rng.Pick(s, namePrefixes) + " " + rng.Pick(s, suffixes)
		if !r.used[name] {
			r.used[name] = true
			return name
		}
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s %d", name, n)
		if !r.used[candidate] {
			r.used[candidate] = true
			return candidate
		}
	}
}
