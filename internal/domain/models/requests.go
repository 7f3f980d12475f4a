package models

import "encoding/json"

// DecisionRequest submits one decision to the ledger.
type DecisionRequest struct {
	Symbol         string          `json:"symbol" validate:"required"`
	DecisionType   string          `json:"decision_type" validate:"required,oneof=bias_establishment position_entry signal_blocked session_close system_reset"`
	Content        json.RawMessage `json:"content" validate:"required"`
	Override       bool            `json:"override"`
	OverrideReason string          `json:"override_reason,omitempty" validate:"omitempty,min=5"`
}

// ConsistencyRequest asks for a verdict on a proposed bias.
type ConsistencyRequest struct {
	Symbol          string   `json:"symbol" validate:"required"`
	ProposedBias    string   `json:"proposed_bias" validate:"required,oneof=bullish bearish neutral"`
	Reasoning       string   `json:"reasoning,omitempty"`
	ProposedAction  string   `json:"proposed_action,omitempty"`
	MarketCondition string   `json:"market_condition,omitempty" validate:"omitempty,oneof=normal volatile choppy"`
	CurrentPrice    *float64 `json:"current_price,omitempty" validate:"omitempty,gt=0"`
	Override        bool     `json:"override"`
	OverrideReason  string   `json:"override_reason,omitempty" validate:"omitempty,min=5"`
}

// ResetRequest wipes all state for a symbol. Confirm must be true or
// nothing happens.
type ResetRequest struct {
	Symbol  string `json:"symbol" validate:"required"`
	Confirm bool   `json:"confirm"`
	Reason  string `json:"reason" validate:"required,min=5"`
}

// DecisionsQuery bounds a ledger read.
type DecisionsQuery struct {
	Limit int64 `query:"limit" default:"50" validate:"min=0,max=500"`
}
