package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Log struct {
	db Querier
}

func New(db Querier) *Log {
	return &Log{db: db}
}

// Record writes one audit row. Before/after snapshots are optional and stored
// as JSON; a nil snapshot becomes SQL NULL.
func (l *Log) Record(ctx context.Context, schoolID, userID, action, entityType, entityID, requestID string, before, after any) error {
	beforeJSON, err := marshalOrNil(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalOrNil(after)
	if err != nil {
		return err
	}
	_, err = l.db.Exec(ctx, `
    INSERT INTO audit_log (school_id, user_id, action, entity_type, entity_id, request_id, before_json, after_json)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, schoolID, userID, action, entityType, entityID, requestID, beforeJSON, afterJSON)
	return err
}

func marshalOrNil(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return encoded, nil
}
