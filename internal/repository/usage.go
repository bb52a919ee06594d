package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/costing"
)

const usageTable = "usage_records"

// UsageRecord is one persisted, priced provider call.
type UsageRecord struct {
	ID           int64
	SessionKey   string
	Filename     string
	Model        string
	InputTokens  int
	OutputTokens int
	InputCost    float64
	OutputCost   float64
	TotalCost    float64
	CreatedAt    time.Time
}

type UsageRepository interface {
	Insert(ctx context.Context, rec UsageRecord) error
	ListBySession(ctx context.Context, sessionKey string) ([]UsageRecord, error)
	// RecordUsage lets the repository serve as a costing.UsageSink.
	RecordUsage(ctx context.Context, sessionKey string, r costing.Record) error
}

type usageRepo struct {
	db  *DB
	now func() time.Time
	log *slog.Logger
}

func NewUsageRepository(db *DB, log *slog.Logger) UsageRepository {
	if log == nil {
		log = slog.Default()
	}
	return &usageRepo{db: db, now: time.Now, log: log}
}

func (r *usageRepo) Insert(ctx context.Context, rec UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	query, args := entsql.Dialect(r.db.Dialect()).
		Insert(usageTable).
		Columns("session_key", "filename", "model", "input_tokens", "output_tokens",
			"input_cost", "output_cost", "total_cost", "created_at").
		Values(rec.SessionKey, rec.Filename, rec.Model, rec.InputTokens, rec.OutputTokens,
			rec.InputCost, rec.OutputCost, rec.TotalCost, rec.CreatedAt).
		Query()
	if err := r.db.drv.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("usage insert failed", "session", rec.SessionKey, "file", rec.Filename, "err", err)
		return common.NewAppError("USAGE_INSERT", "insert usage record", errors.Join(common.ErrDatabase, err))
	}
	r.log.Debug("usage recorded", "session", rec.SessionKey, "file", rec.Filename, "model", rec.Model)
	return nil
}

func (r *usageRepo) RecordUsage(ctx context.Context, sessionKey string, c costing.Record) error {
	return r.Insert(ctx, UsageRecord{
		SessionKey:   sessionKey,
		Filename:     c.Filename,
		Model:        c.Model,
		InputTokens:  c.InputTokens,
		OutputTokens: c.OutputTokens,
		InputCost:    c.InputCost,
		OutputCost:   c.OutputCost,
		TotalCost:    c.TotalCost,
	})
}

func (r *usageRepo) ListBySession(ctx context.Context, sessionKey string) ([]UsageRecord, error) {
	query, args := entsql.Dialect(r.db.Dialect()).
		Select("id", "session_key", "filename", "model", "input_tokens", "output_tokens",
			"input_cost", "output_cost", "total_cost", "created_at").
		From(entsql.Table(usageTable)).
		Where(entsql.EQ("session_key", sessionKey)).
		OrderBy("id").
		Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, query, args, &rows); err != nil {
		r.log.Error("usage list failed", "session", sessionKey, "err", err)
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "list usage records")
	}
	defer rows.Close()

	var out []UsageRecord
	for rows.Next() {
		var u UsageRecord
		if err := rows.Scan(&u.ID, &u.SessionKey, &u.Filename, &u.Model, &u.InputTokens, &u.OutputTokens,
			&u.InputCost, &u.OutputCost, &u.TotalCost, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
