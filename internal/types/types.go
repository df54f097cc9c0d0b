package types

type TradeDirection string

type TradeStatus string

type ContractType string

type OptionStrategy string

const (
	TradeDirectionBuy  TradeDirection = "buy"
	TradeDirectionSell TradeDirection = "sell"
)

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusExecuted  TradeStatus = "executed"
	TradeStatusCancelled TradeStatus = "cancelled"
	TradeStatusFailed    TradeStatus = "failed"
)

const (
	ContractTypeCall ContractType = "call"
	ContractTypePut  ContractType = "put"
)

const (
	StrategyCoveredCall   OptionStrategy = "covered_call"
	StrategyProtectivePut OptionStrategy = "protective_put"
	StrategyLongStraddle  OptionStrategy = "long_straddle"
	StrategyIronCondor    OptionStrategy = "iron_condor"
)

// Valid reports whether s is one of the supported strategies.
func (s OptionStrategy) Valid() bool {
	switch s {
	case StrategyCoveredCall, StrategyProtectivePut, StrategyLongStraddle, StrategyIronCondor:
		return true
	}
	return false
}

// Terminal reports whether no further status transition is permitted.
func (s TradeStatus) Terminal() bool {
	switch s {
	case TradeStatusExecuted, TradeStatusCancelled, TradeStatusFailed:
		return true
	}
	return false
}
