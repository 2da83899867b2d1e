package store

import (
	"context"
	"fmt"
	"time"
)

// HistoryWindow and HistoryLimit bound the history consulted for dynamic
// fusion weights.
const (
	HistoryWindow = 7 * 24 * time.Hour
	HistoryLimit  = 100
)

// EmotionRecord is one modality's emotion reading for a user.
type EmotionRecord struct {
	ID         int64
	UserID     string
	Modality   string
	Emotion    string
	Confidence float64
	Intensity  float64
	CreatedAt  time.Time
}

// RecordEmotions appends readings in one transaction. Zero CreatedAt means
// now.
// Thread-safe: acquires write lock.
func (s *Store) RecordEmotions(ctx context.Context, records []EmotionRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO emotion_history (user_id, modality, emotion, confidence, intensity, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		at := r.CreatedAt
		if at.IsZero() {
			at = s.now()
		}
		if _, err := stmt.ExecContext(ctx, r.UserID, r.Modality, r.Emotion, r.Confidence, r.Intensity, millis(at)); err != nil {
			return fmt.Errorf("insert emotion: %w", err)
		}
	}
	return tx.Commit()
}

// RecentEmotions returns a user's readings newer than since, newest first.
// Thread-safe: acquires read lock.
func (s *Store) RecentEmotions(ctx context.Context, userID string, since time.Time, limit int) ([]EmotionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, modality, emotion, confidence, intensity, created_at
		FROM emotion_history
		WHERE user_id = ? AND created_at > ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, millis(since), limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []EmotionRecord
	for rows.Next() {
		var r EmotionRecord
		var at int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.Modality, &r.Emotion, &r.Confidence, &r.Intensity, &at); err != nil {
			return nil, err
		}
		r.CreatedAt = fromMillis(at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentModalityUsage counts readings per modality over the last
// HistoryWindow, capped at HistoryLimit readings. total is the number of
// readings counted.
func (s *Store) RecentModalityUsage(ctx context.Context, userID string) (map[string]int, int, error) {
	records, err := s.RecentEmotions(ctx, userID, s.now().Add(-HistoryWindow), HistoryLimit)
	if err != nil {
		return nil, 0, err
	}
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Modality]++
	}
	return counts, len(records), nil
}
