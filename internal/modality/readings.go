// Package modality turns raw inputs (text, voice features, face features)
// into per-modality emotion readings and runs them through fusion.
package modality

import (
	"github.com/abelbrown/decoder/internal/classify"
	"github.com/abelbrown/decoder/internal/fusion"
	"gonum.org/v1/gonum/floats/scalar"
)

// textLabels maps text emotion types to fusion labels.
var textLabels = map[string]string{
	"开心": "happy",
	"难过": "sad",
	"生气": "angry",
	"焦虑": "anxious",
	"平静": "neutral",
	"疲惫": "tired",
	"失望": "sad",
	"尴尬": "anxious",
	"惊讶": "surprised",
	"无聊": "tired",
}

// FusionLabel maps a text emotion type to its fusion label. Unknown types
// map to neutral.
func FusionLabel(emotionType string) string {
	if l, ok := textLabels[emotionType]; ok {
		return l
	}
	return "neutral"
}

// TextReading converts a tier-2 verdict into a text reading.
func TextReading(d classify.DirectionResult) fusion.ModalityResult {
	return fusion.ModalityResult{
		Modality:   fusion.ModalityText,
		Emotion:    FusionLabel(d.EmotionType),
		Confidence: d.Confidence,
		Intensity:  d.Intensity,
	}
}

// VoiceFeatures are prosodic measurements of an utterance.
type VoiceFeatures struct {
	PitchHz       float64 `json:"pitch_hz"`
	PitchVariance float64 `json:"pitch_variance"` // 0..1
	Energy        float64 `json:"energy"`         // 0..1
	SpeakingRate  float64 `json:"speaking_rate"`  // syllables per second
}

// VoiceReading classifies voice features with fixed thresholds. The first
// matching rule wins.
func VoiceReading(f VoiceFeatures) fusion.ModalityResult {
	r := fusion.ModalityResult{Modality: fusion.ModalityVoice, Emotion: "neutral", Confidence: 0.5, Intensity: 0.5}
	switch {
	case f.Energy >= 0.75 && f.SpeakingRate >= 5:
		r.Emotion = "angry"
		r.Confidence = capped(0.6 + (f.Energy-0.75)*0.8)
		r.Intensity = f.Energy
	case f.PitchHz >= 220 && f.PitchVariance >= 0.5 && f.Energy >= 0.5:
		r.Emotion = "happy"
		r.Confidence = capped(0.55 + f.PitchVariance*0.3)
		r.Intensity = f.Energy
	case f.Energy <= 0.3 && f.SpeakingRate <= 3:
		r.Emotion = "tired"
		if f.PitchHz > 0 && f.PitchHz < 150 {
			r.Emotion = "sad"
		}
		r.Confidence = capped(0.55 + (0.3-f.Energy)*0.8)
		r.Intensity = 1 - f.Energy
	case f.PitchVariance >= 0.6 && f.SpeakingRate >= 4.5:
		r.Emotion = "anxious"
		r.Confidence = capped(0.5 + f.PitchVariance*0.3)
		r.Intensity = f.PitchVariance
	}
	r.Confidence = scalar.Round(r.Confidence, 2)
	r.Intensity = scalar.Round(clamp01(r.Intensity), 2)
	return r
}

// FaceFeatures are facial action intensities, each 0..1.
type FaceFeatures struct {
	Smile       float64 `json:"smile"`
	BrowRaise   float64 `json:"brow_raise"`
	EyeOpenness float64 `json:"eye_openness"`
	Frown       float64 `json:"frown"`
	MouthOpen   float64 `json:"mouth_open"`
}

// FaceReading classifies face features with fixed thresholds. The first
// matching rule wins.
func FaceReading(f FaceFeatures) fusion.ModalityResult {
	r := fusion.ModalityResult{Modality: fusion.ModalityFace, Emotion: "neutral", Confidence: 0.5, Intensity: 0.5}
	switch {
	case f.Smile >= 0.6:
		r.Emotion = "happy"
		r.Confidence = capped(0.5 + f.Smile*0.4)
		r.Intensity = f.Smile
	case f.Frown >= 0.6 && f.BrowRaise < 0.3:
		r.Emotion = "angry"
		r.Confidence = capped(0.5 + f.Frown*0.35)
		r.Intensity = f.Frown
	case f.BrowRaise >= 0.6 && f.EyeOpenness >= 0.7 && f.MouthOpen >= 0.5:
		r.Emotion = "surprised"
		r.Confidence = capped(0.5 + f.BrowRaise*0.3)
		r.Intensity = f.BrowRaise
	case f.Frown >= 0.4 && f.EyeOpenness <= 0.4:
		r.Emotion = "sad"
		r.Confidence = capped(0.5 + f.Frown*0.3)
		r.Intensity = f.Frown
	case f.EyeOpenness <= 0.25:
		r.Emotion = "tired"
		r.Confidence = capped(0.5 + (0.25-f.EyeOpenness)*0.8)
		r.Intensity = 1 - f.EyeOpenness
	case f.BrowRaise >= 0.5 && f.Frown >= 0.3:
		r.Emotion = "anxious"
		r.Confidence = capped(0.5 + (f.BrowRaise+f.Frown)*0.15)
		r.Intensity = (f.BrowRaise + f.Frown) / 2
	}
	r.Confidence = scalar.Round(r.Confidence, 2)
	r.Intensity = scalar.Round(clamp01(r.Intensity), 2)
	return r
}

// heuristic readings never claim more than this
const maxHeuristicConfidence = 0.85

func capped(v float64) float64 { return min(maxHeuristicConfidence, max(0, v)) }

func clamp01(v float64) float64 { return min(1, max(0, v)) }
