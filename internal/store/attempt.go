package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/prepquiz/internal/quiz"
)

// attemptRepo implements AttemptRepo on the shared sequence counter.
type attemptRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *attemptRepo) AppendAttempt(ctx context.Context, res quiz.Result) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	ts := res.SubmittedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO attempts (
			sequence, timestamp, session_id, user_id, topic, mode,
			score, total, elapsed_secs, auto, delivered, delivery_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			delivered = excluded.delivered,
			delivery_error = excluded.delivery_error`,
		seqNum, ts.UnixMilli(), res.SessionID, res.UserID, res.Topic, string(res.Mode),
		res.Score, res.Total, res.ElapsedSecs, res.Auto, res.Delivered, res.DeliveryError,
	)
	if err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (r *attemptRepo) MarkDelivered(ctx context.Context, sessionID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attempts SET delivered = 1, delivery_error = '' WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark delivered: no attempt for session %s", sessionID)
	}
	return nil
}

func (r *attemptRepo) QueryAttempts(ctx context.Context, f AttemptFilter, opts QueryOpts) ([]AttemptRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Topic != "" {
		where = append(where, "topic = ?")
		args = append(args, f.Topic)
	}
	if f.Mode != "" {
		where = append(where, "mode = ?")
		args = append(args, string(f.Mode))
	}
	if f.UndeliveredOnly {
		where = append(where, "delivered = 0")
	}
	where, args = appendQueryOpts(where, args, opts)

	query := `SELECT id, sequence, timestamp, session_id, user_id, topic, mode,
		score, total, elapsed_secs, auto, delivered, delivery_error FROM attempts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sequence DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var (
			rec  AttemptRecord
			ts   int64
			mode string
		)
		err := rows.Scan(&rec.ID, &rec.Sequence, &ts, &rec.Result.SessionID, &rec.Result.UserID,
			&rec.Result.Topic, &mode, &rec.Result.Score, &rec.Result.Total, &rec.Result.ElapsedSecs,
			&rec.Result.Auto, &rec.Result.Delivered, &rec.Result.DeliveryError)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		rec.Timestamp = time.UnixMilli(ts)
		rec.Result.SubmittedAt = rec.Timestamp
		rec.Result.Mode = quiz.Mode(mode)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func (r *attemptRepo) BestScore(ctx context.Context, userID, topic string, mode quiz.Mode) (int, bool, error) {
	var best sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(score) FROM attempts WHERE user_id = ? AND topic = ? AND mode = ?`,
		userID, topic, string(mode),
	).Scan(&best)
	if err != nil {
		return 0, false, fmt.Errorf("query best score: %w", err)
	}
	if !best.Valid {
		return 0, false, nil
	}
	return int(best.Int64), true, nil
}

// appendQueryOpts adds the sequence and time window conditions of opts.
func appendQueryOpts(where []string, args []any, opts QueryOpts) ([]string, []any) {
	if opts.After > 0 {
		where = append(where, "sequence > ?")
		args = append(args, opts.After)
	}
	if opts.Before > 0 {
		where = append(where, "sequence < ?")
		args = append(args, opts.Before)
	}
	if !opts.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, opts.From.UnixMilli())
	}
	if !opts.To.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, opts.To.UnixMilli())
	}
	return where, args
}
