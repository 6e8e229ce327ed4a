package engine

import (
	"encoding/json"
	"fmt"

	"github.com/talgya/holdco/internal/finance"
)

// ActionKind tags an Action variant.
type ActionKind string

const (
	ActionAcquire           ActionKind = "acquire"
	ActionTuckIn            ActionKind = "tuck_in"
	ActionMerge             ActionKind = "merge"
	ActionDesignatePlatform ActionKind = "designate_platform"
	ActionImprove           ActionKind = "improve"
	ActionStartTurnaround   ActionKind = "start_turnaround"
	ActionUnlockTier        ActionKind = "unlock_turnaround_tier"
	ActionUpgradeSourcing   ActionKind = "upgrade_sourcing"
	ActionSourceDeals       ActionKind = "source_deals"
	ActionSharedService     ActionKind = "shared_service"
	ActionPayDownDebt       ActionKind = "pay_down_debt"
	ActionIssueEquity       ActionKind = "issue_equity"
	ActionBuyback           ActionKind = "buyback"
	ActionDistribute        ActionKind = "distribute"
	ActionSell              ActionKind = "sell"
	ActionWindDown          ActionKind = "wind_down"
	ActionEventChoice       ActionKind = "event_choice"
)

// Action is one logged player command. Each variant carries only its own
// fields; consumers switch on the concrete type.
type Action interface {
	Kind() ActionKind
}

type AcquireAction struct {
	DealID     string                `json:"deal_id"`
	BusinessID string                `json:"business_id,omitempty"`
	Structure  finance.StructureKind `json:"structure"`
	Price      int64                 `json:"price"`
	Snatched   bool                  `json:"snatched,omitempty"`
}

type TuckInAction struct {
	DealID     string                `json:"deal_id"`
	BusinessID string                `json:"business_id,omitempty"`
	PlatformID string                `json:"platform_id"`
	Structure  finance.StructureKind `json:"structure"`
	Price      int64                 `json:"price"`
	Outcome    string                `json:"outcome,omitempty"`
	Synergies  int64                 `json:"synergies"`
	Snatched   bool                  `json:"snatched,omitempty"`
}

type MergeAction struct {
	FirstID   string `json:"first_id"`
	SecondID  string `json:"second_id"`
	MergedID  string `json:"merged_id"`
	Outcome   string `json:"outcome"`
	Synergies int64  `json:"synergies"`
	Cost      int64  `json:"cost"`
}

type DesignatePlatformAction struct {
	BusinessID string `json:"business_id"`
	Cost       int64  `json:"cost"`
}

type ImproveAction struct {
	BusinessID    string `json:"business_id"`
	ImprovementID string `json:"improvement_id"`
	Cost          int64  `json:"cost"`
}

type StartTurnaroundAction struct {
	BusinessID   string `json:"business_id"`
	ProgramID    string `json:"program_id"`
	TurnaroundID string `json:"turnaround_id"`
	Cost         int64  `json:"cost"`
}

type UnlockTierAction struct {
	Tier int   `json:"tier"`
	Cost int64 `json:"cost"`
}

type UpgradeSourcingAction struct {
	Tier int   `json:"tier"`
	Cost int64 `json:"cost"`
}

type SourceDealsAction struct {
	FocusSector string   `json:"focus_sector,omitempty"`
	DealIDs     []string `json:"deal_ids"`
	Cost        int64    `json:"cost"`
}

type SharedServiceAction struct {
	ServiceID string `json:"service_id"`
	Cost      int64  `json:"cost"`
}

type PayDownDebtAction struct {
	Target string `json:"target"` // "holdco" or a business id
	Amount int64  `json:"amount"`
}

type IssueEquityAction struct {
	Amount int64   `json:"amount"`
	Shares int64   `json:"shares"`
	Price  float64 `json:"price_per_share"`
}

type BuybackAction struct {
	Amount int64   `json:"amount"`
	Shares int64   `json:"shares"`
	Price  float64 `json:"price_per_share"`
}

type DistributeAction struct {
	Amount int64 `json:"amount"`
}

type SellAction struct {
	BusinessID  string `json:"business_id"`
	Price       int64  `json:"price"`
	NetProceeds int64  `json:"net_proceeds"`
	ViaOffer    bool   `json:"via_offer,omitempty"`
}

type WindDownAction struct {
	BusinessID string `json:"business_id"`
	Cost       int64  `json:"cost"`
}

type EventChoiceAction struct {
	EventID string `json:"event_id"`
	Accept  bool   `json:"accept"`
}

func (AcquireAction) Kind() ActionKind           { return ActionAcquire }
func (TuckInAction) Kind() ActionKind            { return ActionTuckIn }
func (MergeAction) Kind() ActionKind             { return ActionMerge }
func (DesignatePlatformAction) Kind() ActionKind { return ActionDesignatePlatform }
func (ImproveAction) Kind() ActionKind           { return ActionImprove }
func (StartTurnaroundAction) Kind() ActionKind   { return ActionStartTurnaround }
func (UnlockTierAction) Kind() ActionKind        { return ActionUnlockTier }
func (UpgradeSourcingAction) Kind() ActionKind   { return ActionUpgradeSourcing }
func (SourceDealsAction) Kind() ActionKind       { return ActionSourceDeals }
func (SharedServiceAction) Kind() ActionKind     { return ActionSharedService }
func (PayDownDebtAction) Kind() ActionKind       { return ActionPayDownDebt }
func (IssueEquityAction) Kind() ActionKind       { return ActionIssueEquity }
func (BuybackAction) Kind() ActionKind           { return ActionBuyback }
func (DistributeAction) Kind() ActionKind        { return ActionDistribute }
func (SellAction) Kind() ActionKind              { return ActionSell }
func (WindDownAction) Kind() ActionKind          { return ActionWindDown }
func (EventChoiceAction) Kind() ActionKind       { return ActionEventChoice }

// newAction returns an empty variant for a kind.
func newAction(k ActionKind) (Action, error) {
	switch k {
	case ActionAcquire:
		return &AcquireAction{}, nil
	case ActionTuckIn:
		return &TuckInAction{}, nil
	case ActionMerge:
		return &MergeAction{}, nil
	case ActionDesignatePlatform:
		return &DesignatePlatformAction{}, nil
	case ActionImprove:
		return &ImproveAction{}, nil
	case ActionStartTurnaround:
		return &StartTurnaroundAction{}, nil
	case ActionUnlockTier:
		return &UnlockTierAction{}, nil
	case ActionUpgradeSourcing:
		return &UpgradeSourcingAction{}, nil
	case ActionSourceDeals:
		return &SourceDealsAction{}, nil
	case ActionSharedService:
		return &SharedServiceAction{}, nil
	case ActionPayDownDebt:
		return &PayDownDebtAction{}, nil
	case ActionIssueEquity:
		return &IssueEquityAction{}, nil
	case ActionBuyback:
		return &BuybackAction{}, nil
	case ActionDistribute:
		return &DistributeAction{}, nil
	case ActionSell:
		return &SellAction{}, nil
	case ActionWindDown:
		return &WindDownAction{}, nil
	case ActionEventChoice:
		return &EventChoiceAction{}, nil
	}
	return nil, fmt.Errorf("unknown action kind %q", k)
}

// deref turns the pointer variants produced by decoding back into values so
// decoded records compare equal to the originals.
func deref(a Action) Action {
	switch v := a.(type) {
	case *AcquireAction:
		return *v
	case *TuckInAction:
		return *v
	case *MergeAction:
		return *v
	case *DesignatePlatformAction:
		return *v
	case *ImproveAction:
		return *v
	case *StartTurnaroundAction:
		return *v
	case *UnlockTierAction:
		return *v
	case *UpgradeSourcingAction:
		return *v
	case *SourceDealsAction:
		return *v
	case *SharedServiceAction:
		return *v
	case *PayDownDebtAction:
		return *v
	case *IssueEquityAction:
		return *v
	case *BuybackAction:
		return *v
	case *DistributeAction:
		return *v
	case *SellAction:
		return *v
	case *WindDownAction:
		return *v
	case *EventChoiceAction:
		return *v
	}
	return a
}

// ActionRecord is a logged action with its round.
type ActionRecord struct {
	Round  int
	Action Action
}

type actionEnvelope struct {
	Round int             `json:"round"`
	Kind  ActionKind      `json:"kind"`
	Data  json.RawMessage `json:"data"`
}

// MarshalJSON writes {"round":..,"kind":..,"data":{..}}.
func (r ActionRecord) MarshalJSON() ([]byte, error) {
	if r.Action == nil {
		return nil, fmt.Errorf("marshal action record: nil action")
	}
	data, err := json.Marshal(r.Action)
	if err != nil {
		return nil, fmt.Errorf("marshal %s action: %w", r.Action.Kind(), err)
	}
	return json.Marshal(actionEnvelope{Round: r.Round, Kind: r.Action.Kind(), Data: data})
}

// UnmarshalJSON decodes the envelope into the concrete variant.
func (r *ActionRecord) UnmarshalJSON(b []byte) error {
	var env actionEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("decode action envelope: %w", err)
	}
	a, err := newAction(env.Kind)
	if err != nil {
		return err
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, a); err != nil {
			return fmt.Errorf("decode %s action: %w", env.Kind, err)
		}
	}
	r.Round = env.Round
	r.Action = deref(a)
	return nil
}

func (g *Game) record(a Action) {
	rec := ActionRecord{Round: g.State.Round, Action: a}
	g.State.ActionsThisRound = append(g.State.ActionsThisRound, rec)
	g.State.ActionLog = append(g.State.ActionLog, rec)
}
