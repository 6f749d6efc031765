package bot

import (
	"fmt"

	"github.com/krispyensign/mutantstopbot/internal/broker"
)

// RiskManager enforces pre-trade checks before the bot opens a position.
type RiskManager struct {
	maxUnits       float64
	maxPositionPct float64
}

// NewRiskManager creates a RiskManager.
//
//   - maxUnits: hard cap on the size of a single entry; zero disables it.
//   - maxPositionPct: maximum fraction of equity allowed in a single
//     position (e.g. 0.10 for 10%); zero disables it.
func NewRiskManager(maxUnits, maxPositionPct float64) *RiskManager {
	return &RiskManager{
		maxUnits:       maxUnits,
		maxPositionPct: maxPositionPct,
	}
}

// CheckOrder evaluates whether an entry of the given size complies with the
// configured limits given the current account state.
func (rm *RiskManager) CheckOrder(units float64, acct *broker.Account) error {
	if units <= 0 {
		return fmt.Errorf("risk: non-positive size %v", units)
	}
	if rm.maxUnits > 0 && units > rm.maxUnits {
		return fmt.Errorf("risk: size %v exceeds cap %v", units, rm.maxUnits)
	}
	if rm.maxPositionPct > 0 && acct != nil && acct.Equity > 0 {
		// Units are priced at equity terms here only as an upper bound;
		// the broker rejects anything the account cannot actually carry.
		if units > acct.Equity*rm.maxPositionPct {
			return fmt.Errorf("risk: size %v exceeds %.0f%% of equity %v",
				units, rm.maxPositionPct*100, acct.Equity)
		}
	}
	return nil
}
