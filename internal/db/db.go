// Package db provides PostgreSQL persistence for the chat audit trail:
// turns and the operations executed on their behalf.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/repochat/repochat/internal/engine"
)

// DB wraps the underlying *sql.DB and provides typed query methods. It
// satisfies engine.Auditor.
type DB struct {
	conn *sql.DB
}

// New opens a PostgreSQL connection, verifies connectivity and applies any
// pending migrations.
func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := ApplyMigrations(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the database connection pool.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Turn is one audited chat exchange.
type Turn struct {
	TurnID    string    `json:"turn_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// Operation is one executed tool invocation within a turn. Args and Result
// are stored as JSON.
type Operation struct {
	OpID      string          `json:"op_id"`
	TurnID    string          `json:"turn_id"`
	ToolName  string          `json:"tool_name"`
	Args      json.RawMessage `json:"args"`
	Result    json.RawMessage `json:"result"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// RecordTurn inserts the audit row for a completed chat turn.
func (d *DB) RecordTurn(ctx context.Context, turnID, message, response string) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO turns (turn_id, message, response, created_at) VALUES ($1, $2, $3, now())`,
		turnID, message, response,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// RecordOperation inserts one executed operation, linked to its turn.
func (d *DB) RecordOperation(ctx context.Context, turnID string, rec engine.ExecutionRecord) error {
	args, err := json.Marshal(rec.Invocation.Args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	status := "ok"
	if !rec.Result.OK {
		status = "fail"
	}

	_, err = d.conn.ExecContext(ctx,
		`INSERT INTO operations (op_id, turn_id, tool_name, args_json, result_json, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		uuid.NewString(), turnID, rec.Invocation.Name, args, result, status,
	)
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// ListTurns returns recent turns, most recent first.
func (d *DB) ListTurns(ctx context.Context, limit int) ([]*Turn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.QueryContext(ctx,
		`SELECT turn_id, message, response, created_at FROM turns ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		t := &Turn{}
		if err := rows.Scan(&t.TurnID, &t.Message, &t.Response, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// ListOperationsByTurn returns the operations executed during one turn, in
// insertion order.
func (d *DB) ListOperationsByTurn(ctx context.Context, turnID string) ([]*Operation, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT op_id, turn_id, tool_name, args_json, result_json, status, created_at
		 FROM operations WHERE turn_id = $1 ORDER BY created_at ASC`, turnID,
	)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op := &Operation{}
		if err := rows.Scan(&op.OpID, &op.TurnID, &op.ToolName, &op.Args, &op.Result, &op.Status, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
