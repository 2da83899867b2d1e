package modality

import (
	"context"
	"time"

	"github.com/abelbrown/decoder/internal/classify"
	"github.com/abelbrown/decoder/internal/fusion"
	"github.com/abelbrown/decoder/internal/logging"
	"github.com/abelbrown/decoder/internal/risk"
	"github.com/abelbrown/decoder/internal/store"
)

// Recorder persists readings for later dynamic weighting.
type Recorder interface {
	RecordEmotions(ctx context.Context, records []store.EmotionRecord) error
	RecentEmotions(ctx context.Context, userID string, since time.Time, limit int) ([]store.EmotionRecord, error)
}

// ProfileStore reads and writes user profiles.
type ProfileStore interface {
	Profile(ctx context.Context, userID string) (risk.Profile, error)
	SaveProfile(ctx context.Context, p risk.Profile) error
}

// Input is one real-time observation. Any subset of modalities may be
// present.
type Input struct {
	UserID            string          `json:"user_id,omitempty"`
	Text              string          `json:"text,omitempty"`
	Voice             *VoiceFeatures  `json:"voice,omitempty"`
	Face              *FaceFeatures   `json:"face,omitempty"`
	Strategy          fusion.Strategy `json:"strategy,omitempty"`
	HistoricalWeights fusion.Weights  `json:"historical_weights,omitempty"`
	RequestID         string          `json:"-"`
}

// Output is the per-modality readings plus the fused verdict.
type Output struct {
	Readings []fusion.ModalityResult   `json:"readings"`
	Text     *classify.DirectionResult `json:"text_direction,omitempty"`
	Fused    fusion.Result             `json:"fused"`
	Trend    risk.Trend                `json:"trend,omitempty"`
}

// Realtime reads each modality, fuses the readings and records them.
type Realtime struct {
	direction *classify.DirectionClassifier
	engine    *fusion.Engine
	recorder  Recorder
	profiles  ProfileStore
}

// NewRealtime creates the service. recorder and profiles may be nil, in
// which case nothing is persisted.
func NewRealtime(direction *classify.DirectionClassifier, engine *fusion.Engine, recorder Recorder, profiles ProfileStore) *Realtime {
	return &Realtime{direction: direction, engine: engine, recorder: recorder, profiles: profiles}
}

// Analyze never fails; persistence errors are logged.
func (s *Realtime) Analyze(ctx context.Context, in Input) Output {
	var out Output
	if in.Text != "" && s.direction != nil {
		d := s.direction.Classify(in.Text)
		out.Text = &d
		out.Readings = append(out.Readings, TextReading(d))
	}
	if in.Voice != nil {
		out.Readings = append(out.Readings, VoiceReading(*in.Voice))
	}
	if in.Face != nil {
		out.Readings = append(out.Readings, FaceReading(*in.Face))
	}
	if out.Readings == nil {
		out.Readings = []fusion.ModalityResult{}
	}

	out.Fused = s.engine.Fuse(ctx, fusion.Request{
		Results:           out.Readings,
		Strategy:          in.Strategy,
		UserID:            in.UserID,
		HistoricalWeights: in.HistoricalWeights,
		RequestID:         in.RequestID,
	})

	if in.UserID == "" || s.recorder == nil || len(out.Readings) == 0 {
		return out
	}
	s.record(ctx, in.UserID, out.Readings)
	if s.profiles != nil {
		out.Trend = s.updateTrend(ctx, in.UserID)
	}
	return out
}

func (s *Realtime) record(ctx context.Context, userID string, readings []fusion.ModalityResult) {
	records := make([]store.EmotionRecord, len(readings))
	for i, r := range readings {
		records[i] = store.EmotionRecord{
			UserID:     userID,
			Modality:   string(r.Modality),
			Emotion:    r.Emotion,
			Confidence: r.Confidence,
			Intensity:  r.Intensity,
		}
	}
	if err := s.recorder.RecordEmotions(ctx, records); err != nil {
		logging.Warn("Failed to record emotion history", "user", userID, "error", err)
	}
}

// updateTrend recomputes the profile trend from the last week of readings.
func (s *Realtime) updateTrend(ctx context.Context, userID string) risk.Trend {
	records, err := s.recorder.RecentEmotions(ctx, userID, time.Now().Add(-store.HistoryWindow), store.HistoryLimit)
	if err != nil {
		logging.Warn("Failed to load emotion history", "user", userID, "error", err)
		return ""
	}
	trend := Trend(records)

	p, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		logging.Warn("Failed to load profile", "user", userID, "error", err)
		return trend
	}
	if p.RecentTrend != trend {
		p.RecentTrend = trend
		if err := s.profiles.SaveProfile(ctx, p); err != nil {
			logging.Warn("Failed to save profile trend", "user", userID, "error", err)
		}
	}
	return trend
}
