package finance

// SharedService is a holdco-level capability that lowers costs across the
// portfolio in exchange for a fixed annual charge.
type SharedService struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	UnlockCost      int64   `json:"unlock_cost"`
	AnnualCost      int64   `json:"annual_cost"`
	CapexReduction  float64 `json:"capex_reduction"`
	ConversionBonus float64 `json:"conversion_bonus"`
	MinOpcos        int     `json:"min_opcos"`
}

var sharedServices = []SharedService{
	{ID: "finance_office", Name: "Centralized Finance", UnlockCost: 400, AnnualCost: 250, ConversionBonus: 0.05, MinOpcos: 2},
	{ID: "procurement", Name: "Group Procurement", UnlockCost: 500, AnnualCost: 300, CapexReduction: 0.15, MinOpcos: 3},
	{ID: "talent", Name: "Shared Talent Bench", UnlockCost: 350, AnnualCost: 200, MinOpcos: 3},
}

// SharedServices returns the catalog in display order.
func SharedServices() []SharedService {
	out := make([]SharedService, len(sharedServices))
	copy(out, sharedServices)
	return out
}

// LookupSharedService finds a catalog entry.
func LookupSharedService(id string) (SharedService, bool) {
	for _, s := range sharedServices {
		if s.ID == id {
			return s, true
		}
	}
	return SharedService{}, false
}

// Costs are the fixed holdco charges and shared-service effects for a round.
type Costs struct {
	SharedServices     int64
	Sourcing           int64
	TurnaroundTier     int64
	TurnaroundPrograms int64
	CapexReduction     float64
	ConversionBonus    float64
}

// Operating is the total fixed operating charge.
func (c Costs) Operating() int64 {
	return c.SharedServices + c.Sourcing + c.TurnaroundTier + c.TurnaroundPrograms
}

// SharedServiceCosts folds a set of active service ids into Costs.
func SharedServiceCosts(active []string) Costs {
	var c Costs
	for _, id := range active {
		svc, ok := LookupSharedService(id)
		if !ok {
			continue
		}
		c.SharedServices += svc.AnnualCost
		c.CapexReduction += svc.CapexReduction
		c.ConversionBonus += svc.ConversionBonus
	}
	return c
}
