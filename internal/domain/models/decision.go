package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DecisionType discriminates the ledger record payload.
type DecisionType string

const (
	DecisionBiasEstablishment DecisionType = "bias_establishment"
	DecisionPositionEntry     DecisionType = "position_entry"
	DecisionSignalBlocked     DecisionType = "signal_blocked"
	DecisionSessionClose      DecisionType = "session_close"
	DecisionSystemReset       DecisionType = "system_reset"
)

// DecisionTypes lists every accepted decision type, in schema order.
var DecisionTypes = []DecisionType{
	DecisionBiasEstablishment,
	DecisionPositionEntry,
	DecisionSignalBlocked,
	DecisionSessionClose,
	DecisionSystemReset,
}

func (t DecisionType) Valid() bool {
	for _, known := range DecisionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DecisionContent is the typed payload of a DecisionRecord. One shape
// per decision type; validated before any store write so untyped
// dictionaries never leak into the ledger.
type DecisionContent interface {
	Type() DecisionType
	Validate() error
}

// DecisionRecord is immutable once written. Removed only by reset or
// TTL expiry.
type DecisionRecord struct {
	ID        string          `json:"decision_id"`
	Symbol    string          `json:"symbol"`
	Type      DecisionType    `json:"decision_type"`
	Content   DecisionContent `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewDecisionID derives a globally unique id from symbol, type and
// write time. The uuid suffix keeps same-millisecond writes to the
// same symbol collision-free.
func NewDecisionID(symbol string, t DecisionType, at time.Time) string {
	return fmt.Sprintf("dec_%s_%s_%d_%s",
		strings.ToLower(symbol), t, at.UnixMilli(), uuid.NewString()[:8])
}

var contentValidate = validator.New()

// BiasEstablishment sets or replaces the live bias for a symbol.
type BiasEstablishment struct {
	Bias              Bias            `json:"bias" validate:"required,oneof=bullish bearish neutral"`
	Reasoning         string          `json:"reasoning" validate:"required,min=10"`
	Confidence        int             `json:"confidence" validate:"required,min=1,max=100"`
	InvalidationLevel *float64        `json:"invalidation_level,omitempty" validate:"omitempty,gt=0"`
	KeyLevels         []float64       `json:"key_levels,omitempty"`
	MarketCondition   MarketCondition `json:"market_condition,omitempty" default:"normal" validate:"omitempty,oneof=normal volatile choppy"`
}

func (BiasEstablishment) Type() DecisionType { return DecisionBiasEstablishment }

func (c *BiasEstablishment) Validate() error {
	if err := contentValidate.Struct(c); err != nil {
		return firstFieldError(err)
	}
	if c.Bias.Directional() && c.InvalidationLevel == nil {
		return &ValidationError{
			Field:   "invalidation_level",
			Message: fmt.Sprintf("invalidation level required for %s bias", c.Bias),
		}
	}
	return nil
}

// Record converts the validated content into the live bias record.
func (c *BiasEstablishment) Record(at time.Time) *BiasRecord {
	return &BiasRecord{
		Bias:              c.Bias,
		Confidence:        c.Confidence,
		InvalidationLevel: c.InvalidationLevel,
		KeyLevels:         c.KeyLevels,
		MarketCondition:   c.MarketCondition,
		Reasoning:         c.Reasoning,
		EstablishedAt:     at,
	}
}

// PositionEntry records an opened position and its entry price, which
// the price-movement rule later uses as its reference.
type PositionEntry struct {
	Direction  string   `json:"direction" validate:"required,oneof=long short"`
	Instrument string   `json:"instrument,omitempty" validate:"omitempty,min=3"`
	EntryPrice float64  `json:"entry_price" validate:"required,gt=0"`
	Size       float64  `json:"size" validate:"required,gt=0"`
	Reasoning  string   `json:"reasoning" validate:"required,min=10"`
	LinkedBias Bias     `json:"linked_bias,omitempty" validate:"omitempty,oneof=bullish bearish neutral"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

func (PositionEntry) Type() DecisionType { return DecisionPositionEntry }

func (c *PositionEntry) Validate() error {
	if err := contentValidate.Struct(c); err != nil {
		return firstFieldError(err)
	}
	return nil
}

// MatchesBias reports whether the position direction agrees with a
// held bias (long with bullish, short with bearish).
func (c *PositionEntry) MatchesBias(b Bias) bool {
	return (b == BiasBullish && c.Direction == "long") ||
		(b == BiasBearish && c.Direction == "short")
}

// SignalBlocked records a proposal the consistency engine rejected.
type SignalBlocked struct {
	ProposedBias      Bias                   `json:"proposed_bias" validate:"required,oneof=bullish bearish neutral"`
	ProposedReasoning string                 `json:"proposed_reasoning" validate:"required,min=5"`
	BlockReason       string                 `json:"block_reason" validate:"required,oneof=time_gate whipsaw invalidation price_movement"`
	BlockDetails      map[string]interface{} `json:"block_details,omitempty"`
}

func (SignalBlocked) Type() DecisionType { return DecisionSignalBlocked }

func (c *SignalBlocked) Validate() error {
	if err := contentValidate.Struct(c); err != nil {
		return firstFieldError(err)
	}
	return nil
}

// SessionClose summarizes a finished trading session.
type SessionClose struct {
	Summary        string   `json:"summary" validate:"required,min=10"`
	PnL            float64  `json:"pnl"`
	TradesCount    int      `json:"trades_count" validate:"min=0"`
	DecisionsCount int      `json:"decisions_count" validate:"min=0"`
	KeyLearnings   []string `json:"key_learnings,omitempty"`
}

func (SessionClose) Type() DecisionType { return DecisionSessionClose }

func (c *SessionClose) Validate() error {
	if err := contentValidate.Struct(c); err != nil {
		return firstFieldError(err)
	}
	return nil
}

// SystemReset is the audit record a confirmed reset leaves behind; it
// is the only data that survives the wipe.
type SystemReset struct {
	Action      string    `json:"action" default:"force_reset"`
	Symbol      string    `json:"symbol" validate:"required"`
	Reason      string    `json:"reason" validate:"required,min=5"`
	DeletedKeys int       `json:"deleted_keys" validate:"min=0"`
	ResetAt     time.Time `json:"reset_at"`
}

func (SystemReset) Type() DecisionType { return DecisionSystemReset }

func (c *SystemReset) Validate() error {
	if err := contentValidate.Struct(c); err != nil {
		return firstFieldError(err)
	}
	return nil
}

// DecodeDecisionContent parses raw JSON into the typed payload for a
// decision type. Unknown fields are rejected, unknown types are a
// validation error.
func DecodeDecisionContent(t DecisionType, raw []byte) (DecisionContent, error) {
	var content DecisionContent
	switch t {
	case DecisionBiasEstablishment:
		content = &BiasEstablishment{}
	case DecisionPositionEntry:
		content = &PositionEntry{}
	case DecisionSignalBlocked:
		content = &SignalBlocked{}
	case DecisionSessionClose:
		content = &SessionClose{}
	case DecisionSystemReset:
		content = &SystemReset{}
	default:
		return nil, &ValidationError{
			Field:   "decision_type",
			Value:   string(t),
			Message: "unknown decision type",
			Allowed: decisionTypeNames(),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(content); err != nil {
		return nil, &ValidationError{Field: "content", Message: err.Error()}
	}
	if err := defaults.Set(content); err != nil {
		return nil, fmt.Errorf("content defaults: %w", err)
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}
	return content, nil
}

// UnmarshalJSON decodes a ledger envelope back into its typed content.
func (r *DecisionRecord) UnmarshalJSON(data []byte) error {
	var envelope struct {
		ID        string          `json:"decision_id"`
		Symbol    string          `json:"symbol"`
		Type      DecisionType    `json:"decision_type"`
		Content   json.RawMessage `json:"content"`
		Timestamp time.Time       `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	r.ID = envelope.ID
	r.Symbol = envelope.Symbol
	r.Type = envelope.Type
	r.Timestamp = envelope.Timestamp

	if len(envelope.Content) == 0 {
		return nil
	}

	var content DecisionContent
	switch envelope.Type {
	case DecisionBiasEstablishment:
		content = &BiasEstablishment{}
	case DecisionPositionEntry:
		content = &PositionEntry{}
	case DecisionSignalBlocked:
		content = &SignalBlocked{}
	case DecisionSessionClose:
		content = &SessionClose{}
	case DecisionSystemReset:
		content = &SystemReset{}
	default:
		return fmt.Errorf("decode decision %s: unknown type %q", envelope.ID, envelope.Type)
	}
	if err := json.Unmarshal(envelope.Content, content); err != nil {
		return fmt.Errorf("decode decision %s content: %w", envelope.ID, err)
	}
	r.Content = content
	return nil
}

func decisionTypeNames() []string {
	names := make([]string, len(DecisionTypes))
	for i, t := range DecisionTypes {
		names[i] = string(t)
	}
	return names
}

func firstFieldError(err error) error {
	var fieldErrs validator.ValidationErrors
	if ok := errors.As(err, &fieldErrs); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Value:   fmt.Sprintf("%v", fe.Value()),
			Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
		}
	}
	return err
}
