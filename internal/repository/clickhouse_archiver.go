package repository

import (
	"context"
	"encoding/json"

	"BiasGuard/internal/domain/models"
	"BiasGuard/internal/domain/repository"
	pkgch "BiasGuard/pkg/clickhouse"
)

const decisionsSchema = `
CREATE TABLE IF NOT EXISTS decisions (
    decision_id   String,
    symbol        LowCardinality(String),
    decision_type LowCardinality(String),
    content       String,
    ts            DateTime64(3)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(ts)
ORDER BY (symbol, ts)
TTL toDateTime(ts) + INTERVAL 90 DAY
`

// ClickHouseArchiver implements Archiver: the Redis ledger expires in
// days, this table keeps decisions for post-hoc analysis.
type ClickHouseArchiver struct {
	client *pkgch.Client
}

// NewClickHouseArchiver creates a ClickHouse decision archiver.
func NewClickHouseArchiver(client *pkgch.Client) repository.Archiver {
	return &ClickHouseArchiver{client: client}
}

func (a *ClickHouseArchiver) Init(ctx context.Context) error {
	return a.client.InitSchema(ctx, []string{decisionsSchema})
}

func (a *ClickHouseArchiver) ArchiveDecision(ctx context.Context, rec *models.DecisionRecord) error {
	content, err := json.Marshal(rec.Content)
	if err != nil {
		return err
	}
	q := "INSERT INTO decisions (decision_id, symbol, decision_type, content, ts) VALUES (?, ?, ?, ?, ?)"
	_, err = a.client.DB().ExecContext(ctx, q,
		rec.ID, rec.Symbol, string(rec.Type), string(content), rec.Timestamp)
	return err
}

func (a *ClickHouseArchiver) Health(ctx context.Context) error {
	return a.client.Health(ctx)
}

func (a *ClickHouseArchiver) Close() error {
	return a.client.Close()
}

// NopArchiver is used when ClickHouse is disabled.
type NopArchiver struct{}

func (NopArchiver) Init(context.Context) error                              { return nil }
func (NopArchiver) ArchiveDecision(context.Context, *models.DecisionRecord) error { return nil }
func (NopArchiver) Health(context.Context) error                            { return nil }
func (NopArchiver) Close() error                                            { return nil }
