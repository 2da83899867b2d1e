package refine

import (
	"context"
	"fmt"
	"strings"

	"github.com/abelbrown/decoder/internal/classify"
	"github.com/abelbrown/decoder/internal/risk"
)

// Request is one structured-output call to a model backend.
type Request struct {
	Name         string // schema name
	Description  string
	Instructions string
	Input        string
	Schema       map[string]interface{}
	MaxTokens    int64
}

// Backend is a model that answers with JSON matching a schema.
type Backend interface {
	Name() string
	// Available reports whether the backend is configured and reachable.
	Available(ctx context.Context) bool
	GenerateJSON(ctx context.Context, req Request, out any) error
}

// Model turns a Backend into the decoder's model-backed collaborators: the
// tier-3 Refiner, the scene classifier's semantic layer and the risk
// assessor.
type Model struct {
	backend Backend
	scenes  []string
}

var (
	_ Refiner                     = (*Model)(nil)
	_ classify.SemanticClassifier = (*Model)(nil)
	_ risk.Assessor               = (*Model)(nil)
)

// NewModel wraps b. scenes lists the categories the model may choose from.
func NewModel(b Backend, scenes []string) *Model {
	return &Model{backend: b, scenes: scenes}
}

// Provider names the backend.
func (m *Model) Provider() string {
	if m == nil || m.backend == nil {
		return ""
	}
	return m.backend.Name()
}

func (m *Model) ready(ctx context.Context) error {
	if m == nil || m.backend == nil {
		return ErrUnavailable
	}
	if !m.backend.Available(ctx) {
		return fmt.Errorf("%s: %w", m.backend.Name(), ErrUnavailable)
	}
	return nil
}

const refinePrompt = `你是社交信号解读助手。给定一段文本，以及规则分类器给出的行为类别和情绪方向，判断最终的社交场景。
如果规则结果合理，保持原类别并给出置信度；如果不合理，给出更准确的类别。
只能从给定的场景列表中选择，reason 用一句中文说明。`

const scenePrompt = `你是社交信号解读助手。判断文本所属的社交场景，只能从给定的场景列表中选择，并给出 0 到 1 的置信度。`

const riskPrompt = `你是情绪风险评估助手。评估文本中是否存在情绪或安全风险。
risk_level 只能是 low、medium 或 high。reasons 和 suggestions 使用简短的中文。`

// Refine implements Refiner.
func (m *Model) Refine(ctx context.Context, text string, tier1 classify.Result, tier2 classify.DirectionResult) (Result, error) {
	if err := m.ready(ctx); err != nil {
		return Result{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "文本：%s\n\n", text)
	fmt.Fprintf(&b, "一级分类：%s（置信度%.2f，方法%s）\n", tier1.Category, tier1.Confidence, tier1.Method)
	if tier1.Explanation != "" {
		fmt.Fprintf(&b, "一级说明：%s\n", tier1.Explanation)
	}
	fmt.Fprintf(&b, "二级分类：%s，情绪%s（强度%.1f）\n", tier2.Direction, tier2.EmotionType, tier2.Intensity)
	if len(m.scenes) > 0 {
		fmt.Fprintf(&b, "\n可选场景：%s\n", strings.Join(m.scenes, "、"))
	}

	var v verdict
	err := m.backend.GenerateJSON(ctx, Request{
		Name:         "SceneRefinement",
		Description:  "Refined social scene",
		Instructions: refinePrompt,
		Input:        b.String(),
		Schema:       verdictSchema,
		MaxTokens:    400,
	}, &v)
	if err != nil {
		return Result{}, fmt.Errorf("refine: %w", err)
	}
	return Result{
		FinalScene: strings.TrimSpace(v.FinalScene),
		Confidence: v.Confidence,
		Reason:     strings.TrimSpace(v.Reason),
		Provider:   m.backend.Name(),
	}, nil
}

// ClassifyScene implements classify.SemanticClassifier.
func (m *Model) ClassifyScene(ctx context.Context, text string) (string, float64, error) {
	if err := m.ready(ctx); err != nil {
		return "", 0, err
	}
	input := "文本：" + text
	if len(m.scenes) > 0 {
		input += "\n\n可选场景：" + strings.Join(m.scenes, "、")
	}

	var v sceneVerdict
	err := m.backend.GenerateJSON(ctx, Request{
		Name:         "SceneClassification",
		Description:  "Social scene of a text",
		Instructions: scenePrompt,
		Input:        input,
		Schema:       sceneVerdictSchema,
		MaxTokens:    200,
	}, &v)
	if err != nil {
		return "", 0, fmt.Errorf("classify scene: %w", err)
	}
	return strings.TrimSpace(v.Scene), v.Confidence, nil
}

// AssessRisk implements risk.Assessor.
func (m *Model) AssessRisk(ctx context.Context, text string) (risk.Assessment, error) {
	if err := m.ready(ctx); err != nil {
		return risk.Assessment{}, err
	}

	var v riskVerdict
	err := m.backend.GenerateJSON(ctx, Request{
		Name:         "RiskAssessment",
		Description:  "Emotional risk assessment",
		Instructions: riskPrompt,
		Input:        "文本：" + text,
		Schema:       riskVerdictSchema,
		MaxTokens:    400,
	}, &v)
	if err != nil {
		return risk.Assessment{}, fmt.Errorf("assess risk: %w", err)
	}
	return risk.Assessment{
		Level:       risk.Level(strings.ToLower(strings.TrimSpace(v.RiskLevel))),
		Reasons:     v.Reasons,
		Suggestions: v.Suggestions,
	}, nil
}
