package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DecodeLog is a persisted decode result. Result holds the full JSON
// payload.
type DecodeLog struct {
	ID         string
	UserID     string
	Text       string
	FinalScene string
	Confidence float64
	RiskLevel  string
	Result     json.RawMessage
	CreatedAt  time.Time
}

// FeedbackKind is a user's verdict on a decode.
type FeedbackKind string

const (
	FeedbackCorrect    FeedbackKind = "correct"
	FeedbackIncorrect  FeedbackKind = "incorrect"
	FeedbackHelpful    FeedbackKind = "helpful"
	FeedbackNotHelpful FeedbackKind = "not_helpful"
)

// Valid reports whether k is a known kind.
func (k FeedbackKind) Valid() bool {
	switch k {
	case FeedbackCorrect, FeedbackIncorrect, FeedbackHelpful, FeedbackNotHelpful:
		return true
	}
	return false
}

// SaveDecode stores a decode, assigning an ID when l.ID is empty. Returns
// the ID.
// Thread-safe: acquires write lock.
func (s *Store) SaveDecode(ctx context.Context, l DecodeLog) (string, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	if len(l.Result) == 0 {
		l.Result = json.RawMessage("{}")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decode_logs (id, user_id, text, final_scene, confidence, risk_level, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.UserID, l.Text, l.FinalScene, l.Confidence, l.RiskLevel, string(l.Result), millis(l.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("save decode: %w", err)
	}
	return l.ID, nil
}

// RecentDecodes returns the newest decodes first.
// Thread-safe: acquires read lock.
func (s *Store) RecentDecodes(ctx context.Context, limit int) ([]DecodeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(user_id, ''), text, final_scene, confidence, COALESCE(risk_level, ''), result, created_at
		FROM decode_logs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decodes: %w", err)
	}
	defer rows.Close()

	var out []DecodeLog
	for rows.Next() {
		var l DecodeLog
		var result string
		var at int64
		if err := rows.Scan(&l.ID, &l.UserID, &l.Text, &l.FinalScene, &l.Confidence, &l.RiskLevel, &result, &at); err != nil {
			return nil, err
		}
		l.Result = json.RawMessage(result)
		l.CreatedAt = fromMillis(at)
		out = append(out, l)
	}
	return out, rows.Err()
}

// SaveFeedback records feedback on a stored decode.
// Thread-safe: acquires write lock.
func (s *Store) SaveFeedback(ctx context.Context, decodeID string, kind FeedbackKind, comment string) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown feedback kind %q", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM decode_logs WHERE id = ?", decodeID).Scan(&exists); err != nil {
		return fmt.Errorf("lookup decode: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("decode %s not found", decodeID)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (decode_id, kind, comment, created_at) VALUES (?, ?, ?, ?)
	`, decodeID, string(kind), comment, millis(s.now()))
	if err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

// FeedbackCounts tallies feedback by kind.
// Thread-safe: acquires read lock.
func (s *Store) FeedbackCounts(ctx context.Context) (map[FeedbackKind]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM feedback GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	out := make(map[FeedbackKind]int)
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[FeedbackKind(k)] = n
	}
	return out, rows.Err()
}
