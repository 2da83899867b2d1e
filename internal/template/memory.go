package template

import "context"

// Memory is an in-process Store over a fixed template list.
type Memory struct {
	templates []Template
}

var _ Store = (*Memory)(nil)

// NewMemory creates a store holding templates in the given order.
func NewMemory(templates ...Template) *Memory {
	return &Memory{templates: append([]Template(nil), templates...)}
}

func (m *Memory) Templates(ctx context.Context) ([]Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.templates, nil
}

func (m *Memory) Patterns(ctx context.Context, category string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return patternsFor(m.templates, category), nil
}

func (m *Memory) Suggestion(ctx context.Context, scene, text string) (Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return Suggestion{}, err
	}
	return suggestionFor(m.templates, scene, text)
}
