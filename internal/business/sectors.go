package business

// SubType is a sector-specific category used for affinity checks.
type SubType struct {
	Name      string
	Group     string // affinity group within the sector
	MarginMod float64
	GrowthMod float64
}

// Sector is the static profile used to generate businesses of one industry.
type Sector struct {
	ID            string
	Name          string
	Revenue       [2]int64
	Margin        [2]float64
	Multiple      [2]float64
	Growth        [2]float64
	CapexRate     float64 // fraction of revenue
	Concentration Concentration
	// QualityCeiling caps turnaround-driven quality improvements.
	QualityCeiling int
	// RecessionSensitivity scales recession revenue shocks (1.0 = average).
	RecessionSensitivity float64
	SubTypes             []SubType
}

// DefaultSectorID identifies the fallback profile used for unknown sectors.
const DefaultSectorID = "general"

var defaultSector = Sector{
	ID:                   DefaultSectorID,
	Name:                 "General Business",
	Revenue:              [2]int64{2000, 6000},
	Margin:               [2]float64{0.10, 0.18},
	Multiple:             [2]float64{3.5, 5.0},
	Growth:               [2]float64{0.01, 0.04},
	CapexRate:            0.04,
	Concentration:        ConcentrationMedium,
	QualityCeiling:       4,
	RecessionSensitivity: 1.0,
	SubTypes: []SubType{
		{Name: "General Operations", Group: "general"},
	},
}

var sectors = []Sector{
	{
		ID: "agency", Name: "Marketing Agency",
		Revenue: [2]int64{2000, 8000}, Margin: [2]float64{0.12, 0.22},
		Multiple: [2]float64{3.0, 5.0}, Growth: [2]float64{0.02, 0.06},
		CapexRate: 0.02, Concentration: ConcentrationHigh, QualityCeiling: 4, RecessionSensitivity: 1.3,
		SubTypes: []SubType{
			{Name: "Digital Performance", Group: "digital", MarginMod: 0.01, GrowthMod: 0.02},
			{Name: "Content Studio", Group: "digital"},
			{Name: "Brand Strategy", Group: "creative", MarginMod: 0.02},
			{Name: "Public Relations", Group: "creative", GrowthMod: -0.01},
			{Name: "Event Production", Group: "experiential", MarginMod: -0.03, GrowthMod: 0.01},
		},
	},
	{
		ID: "saas", Name: "Software & SaaS",
		Revenue: [2]int64{1500, 6000}, Margin: [2]float64{0.18, 0.35},
		Multiple: [2]float64{5.0, 8.0}, Growth: [2]float64{0.06, 0.15},
		CapexRate: 0.03, Concentration: ConcentrationMedium, QualityCeiling: 5, RecessionSensitivity: 0.7,
		SubTypes: []SubType{
			{Name: "Vertical SaaS", Group: "vertical", MarginMod: 0.03, GrowthMod: 0.01},
			{Name: "Practice Management", Group: "vertical", MarginMod: 0.02},
			{Name: "Developer Tools", Group: "horizontal", GrowthMod: 0.03},
			{Name: "Data & Analytics", Group: "horizontal", MarginMod: -0.02, GrowthMod: 0.02},
			{Name: "IT Managed Services", Group: "services", MarginMod: -0.08, GrowthMod: -0.03},
		},
	},
	{
		ID: "home_services", Name: "Home Services",
		Revenue: [2]int64{2500, 9000}, Margin: [2]float64{0.10, 0.20},
		Multiple: [2]float64{3.5, 5.5}, Growth: [2]float64{0.03, 0.07},
		CapexRate: 0.05, Concentration: ConcentrationLow, QualityCeiling: 4, RecessionSensitivity: 0.9,
		SubTypes: []SubType{
			{Name: "HVAC", Group: "mechanical", MarginMod: 0.02},
			{Name: "Plumbing", Group: "mechanical", MarginMod: 0.01},
			{Name: "Electrical", Group: "mechanical"},
			{Name: "Roofing", Group: "exterior", MarginMod: -0.01, GrowthMod: 0.01},
			{Name: "Landscaping", Group: "exterior", MarginMod: -0.03},
			{Name: "Pest Control", Group: "recurring", MarginMod: 0.04, GrowthMod: 0.01},
		},
	},
	{
		ID: "consumer", Name: "Consumer Brands",
		Revenue: [2]int64{3000, 12000}, Margin: [2]float64{0.08, 0.18},
		Multiple: [2]float64{3.0, 5.5}, Growth: [2]float64{0.01, 0.08},
		CapexRate: 0.04, Concentration: ConcentrationMedium, QualityCeiling: 4, RecessionSensitivity: 1.2,
		SubTypes: []SubType{
			{Name: "DTC Apparel", Group: "lifestyle", MarginMod: -0.01, GrowthMod: 0.02},
			{Name: "Beauty & Personal Care", Group: "lifestyle", MarginMod: 0.03},
			{Name: "Specialty Food", Group: "food", GrowthMod: 0.01},
			{Name: "Pet Products", Group: "food", MarginMod: 0.01, GrowthMod: 0.02},
			{Name: "Outdoor Gear", Group: "hardgoods", MarginMod: -0.02},
		},
	},
	{
		ID: "industrial", Name: "Light Industrial",
		Revenue: [2]int64{4000, 15000}, Margin: [2]float64{0.10, 0.18},
		Multiple: [2]float64{3.5, 5.5}, Growth: [2]float64{0.01, 0.04},
		CapexRate: 0.08, Concentration: ConcentrationHigh, QualityCeiling: 4, RecessionSensitivity: 1.4,
		SubTypes: []SubType{
			{Name: "Precision Machining", Group: "fabrication", MarginMod: 0.02},
			{Name: "Metal Fabrication", Group: "fabrication"},
			{Name: "Industrial Distribution", Group: "distribution", MarginMod: -0.03, GrowthMod: 0.01},
			{Name: "Packaging", Group: "distribution", MarginMod: -0.01},
			{Name: "Testing & Inspection", Group: "services", MarginMod: 0.04, GrowthMod: 0.01},
		},
	},
	{
		ID: "b2b_services", Name: "B2B Services",
		Revenue: [2]int64{2000, 7000}, Margin: [2]float64{0.12, 0.22},
		Multiple: [2]float64{4.0, 6.0}, Growth: [2]float64{0.02, 0.06},
		CapexRate: 0.02, Concentration: ConcentrationMedium, QualityCeiling: 5, RecessionSensitivity: 1.0,
		SubTypes: []SubType{
			{Name: "Accounting & Bookkeeping", Group: "professional", MarginMod: 0.02},
			{Name: "Payroll & HR", Group: "professional", MarginMod: 0.01, GrowthMod: 0.01},
			{Name: "Staffing", Group: "workforce", MarginMod: -0.05, GrowthMod: 0.02},
			{Name: "Facilities Maintenance", Group: "workforce", MarginMod: -0.02},
			{Name: "Compliance Consulting", Group: "professional", MarginMod: 0.03},
		},
	},
	{
		ID: "healthcare", Name: "Healthcare Services",
		Revenue: [2]int64{3000, 10000}, Margin: [2]float64{0.12, 0.24},
		Multiple: [2]float64{5.0, 7.5}, Growth: [2]float64{0.03, 0.07},
		CapexRate: 0.05, Concentration: ConcentrationLow, QualityCeiling: 5, RecessionSensitivity: 0.5,
		SubTypes: []SubType{
			{Name: "Dental Practice", Group: "clinical", MarginMod: 0.02},
			{Name: "Physical Therapy", Group: "clinical"},
			{Name: "Veterinary Clinic", Group: "clinical", MarginMod: 0.01, GrowthMod: 0.01},
			{Name: "Home Health", Group: "care", MarginMod: -0.03, GrowthMod: 0.02},
			{Name: "Medical Billing", Group: "admin", MarginMod: 0.03, GrowthMod: -0.01},
		},
	},
	{
		ID: "restaurant", Name: "Restaurants",
		Revenue: [2]int64{3000, 10000}, Margin: [2]float64{0.06, 0.14},
		Multiple: [2]float64{2.5, 4.5}, Growth: [2]float64{0.00, 0.05},
		CapexRate: 0.07, Concentration: ConcentrationLow, QualityCeiling: 4, RecessionSensitivity: 1.3,
		SubTypes: []SubType{
			{Name: "Quick Service", Group: "limited", MarginMod: 0.02, GrowthMod: 0.01},
			{Name: "Fast Casual", Group: "limited", GrowthMod: 0.02},
			{Name: "Casual Dining", Group: "full", MarginMod: -0.02, GrowthMod: -0.01},
			{Name: "Catering", Group: "offsite", MarginMod: 0.01},
		},
	},
	{
		ID: "education", Name: "Education & Training",
		Revenue: [2]int64{1500, 6000}, Margin: [2]float64{0.12, 0.25},
		Multiple: [2]float64{4.0, 6.5}, Growth: [2]float64{0.03, 0.08},
		CapexRate: 0.03, Concentration: ConcentrationLow, QualityCeiling: 5, RecessionSensitivity: 0.8,
		SubTypes: []SubType{
			{Name: "Test Prep", Group: "academic", MarginMod: 0.03},
			{Name: "Tutoring Centers", Group: "academic"},
			{Name: "Trade School", Group: "vocational", GrowthMod: 0.02},
			{Name: "Corporate Training", Group: "vocational", MarginMod: 0.02, GrowthMod: -0.01},
			{Name: "Early Childhood", Group: "childcare", MarginMod: -0.03, GrowthMod: 0.01},
		},
	},
	{
		ID: "distribution", Name: "Specialty Distribution",
		Revenue: [2]int64{6000, 20000}, Margin: [2]float64{0.05, 0.11},
		Multiple: [2]float64{3.5, 5.0}, Growth: [2]float64{0.01, 0.05},
		CapexRate: 0.03, Concentration: ConcentrationMedium, QualityCeiling: 4, RecessionSensitivity: 1.1,
		SubTypes: []SubType{
			{Name: "Foodservice Distribution", Group: "consumables", MarginMod: -0.01},
			{Name: "Janitorial Supply", Group: "consumables"},
			{Name: "Building Products", Group: "durables", MarginMod: 0.01, GrowthMod: 0.01},
			{Name: "Electrical Supply", Group: "durables", MarginMod: 0.01},
			{Name: "Medical Supply", Group: "regulated", MarginMod: 0.02, GrowthMod: 0.01},
		},
	},
}

var sectorIndex = func() map[string]*Sector {
	idx := make(map[string]*Sector, len(sectors))
	for i := range sectors {
		idx[sectors[i].ID] = &sectors[i]
	}
	return idx
}()

// SectorIDs returns the ids of all known sectors in catalog order.
func SectorIDs() []string {
	ids := make([]string, len(sectors))
	for i, s := range sectors {
		ids[i] = s.ID
	}
	return ids
}

// LookupSector returns the sector profile and whether it was known.
func LookupSector(id string) (*Sector, bool) {
	s, ok := sectorIndex[id]
	return s, ok
}

// SectorOrDefault returns the sector profile, falling back to the default table.
func SectorOrDefault(id string) *Sector {
	if s, ok := sectorIndex[id]; ok {
		return s
	}
	return &defaultSector
}

// FindSubType returns the named sub-type of the sector.
func (s *Sector) FindSubType(name string) (SubType, bool) {
	for _, st := range s.SubTypes {
		if st.Name == name {
			return st, true
		}
	}
	return SubType{}, false
}
