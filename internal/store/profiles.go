package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abelbrown/decoder/internal/risk"
)

var _ risk.ProfileProvider = (*Store)(nil)

// Profile returns the stored profile, or risk.DefaultProfile when the user
// has none.
// Thread-safe: acquires read lock.
func (s *Store) Profile(ctx context.Context, userID string) (risk.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := risk.Profile{UserID: userID}
	var words, trend string
	err := s.db.QueryRowContext(ctx, `
		SELECT trigger_words, sensitivity, risk_threshold, recent_trend
		FROM profiles WHERE user_id = ?
	`, userID).Scan(&words, &p.Sensitivity, &p.RiskThreshold, &trend)
	if errors.Is(err, sql.ErrNoRows) {
		return risk.DefaultProfile(userID), nil
	}
	if err != nil {
		return risk.Profile{}, fmt.Errorf("query profile: %w", err)
	}
	if err := json.Unmarshal([]byte(words), &p.TriggerWords); err != nil {
		return risk.Profile{}, fmt.Errorf("decode trigger words: %w", err)
	}
	p.RecentTrend = risk.Trend(trend)
	return p, nil
}

// Sensitivity is the user's profile sensitivity.
func (s *Store) Sensitivity(ctx context.Context, userID string) (float64, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.Sensitivity, nil
}

// SaveProfile inserts or replaces a profile.
// Thread-safe: acquires write lock.
func (s *Store) SaveProfile(ctx context.Context, p risk.Profile) error {
	if p.UserID == "" {
		return errors.New("profile has no user id")
	}
	words := p.TriggerWords
	if words == nil {
		words = []string{}
	}
	b, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("encode trigger words: %w", err)
	}
	if p.RecentTrend == "" {
		p.RecentTrend = risk.TrendStable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, trigger_words, sensitivity, risk_threshold, recent_trend, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			trigger_words = excluded.trigger_words,
			sensitivity = excluded.sensitivity,
			risk_threshold = excluded.risk_threshold,
			recent_trend = excluded.recent_trend,
			updated_at = excluded.updated_at
	`, p.UserID, string(b), p.Sensitivity, p.RiskThreshold, string(p.RecentTrend), millis(s.now()))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
