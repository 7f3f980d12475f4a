package repository

import (
	"context"
	"time"

	"BiasGuard/internal/domain/models"
)

// BiasRepository owns the live bias record and its change history.
type BiasRepository interface {
	Get(ctx context.Context, symbol string) (*models.BiasRecord, error)
	// Establish stores the new bias and, when the direction actually
	// changed, appends a change-history entry in the same transaction.
	Establish(ctx context.Context, symbol string, rec *models.BiasRecord, prev *models.Bias) error
	Changes(ctx context.Context, symbol string, since time.Time) ([]models.ChangeHistoryEntry, error)
}

// DecisionLedger is the append-only record of everything the engine
// was told or decided.
type DecisionLedger interface {
	Append(ctx context.Context, rec *models.DecisionRecord) error
	Recent(ctx context.Context, symbol string, limit int64) ([]models.DecisionRecord, error)
	AppendPosition(ctx context.Context, symbol string, pos *models.PositionEntry) error
	Positions(ctx context.Context, symbol string) ([]models.PositionEntry, error)
	// LatestEntryPrice returns the most recent open position entry
	// price, or nil when no position is recorded.
	LatestEntryPrice(ctx context.Context, symbol string) (*float64, error)
	// Snapshot reads bias, windowed changes and positions in one
	// transaction so the rule engine sees a consistent state.
	Snapshot(ctx context.Context, symbol string, since time.Time) (*models.ConsistencySnapshot, error)
	// Expiry reports how long appended decisions are retained.
	Expiry() time.Duration
}

// SymbolWiper deletes all per-symbol state.
type SymbolWiper interface {
	// Wipe removes every key for the symbol and returns how many were
	// actually deleted. Partial failures report both counts.
	Wipe(ctx context.Context, symbol string) (deleted int64, attempted int, err error)
}

// Publisher emits decision events to downstream consumers.
type Publisher interface {
	PublishDecision(ctx context.Context, rec *models.DecisionRecord) error
	Close() error
}

// Archiver persists decisions to long-term analytical storage.
type Archiver interface {
	Init(ctx context.Context) error
	ArchiveDecision(ctx context.Context, rec *models.DecisionRecord) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational counters and latencies.
type Metrics interface {
	RecordDecision(decisionType, symbol string)
	RecordCheck(recommendation string)
	RecordConflict(rule, severity string)
	RecordReset(result string)
	RecordLatency(op string, seconds float64)
}
