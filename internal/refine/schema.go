package refine

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/invopop/jsonschema"
)

// verdict is the structured answer to a refinement prompt.
type verdict struct {
	FinalScene string  `json:"final_scene" jsonschema:"required,description=最终场景类型"`
	Confidence float64 `json:"confidence" jsonschema:"required"`
	Reason     string  `json:"reason" jsonschema:"required,description=修正或确认的原因"`
}

// sceneVerdict is the answer to a bare scene classification prompt.
type sceneVerdict struct {
	Scene      string  `json:"scene" jsonschema:"required"`
	Confidence float64 `json:"confidence" jsonschema:"required"`
}

// riskVerdict is the answer to a risk assessment prompt.
type riskVerdict struct {
	RiskLevel   string   `json:"risk_level" jsonschema:"required,enum=low,enum=medium,enum=high"`
	Reasons     []string `json:"reasons" jsonschema:"required"`
	Suggestions []string `json:"suggestions" jsonschema:"required"`
}

var (
	verdictSchema      = generateSchema[verdict]()
	sceneVerdictSchema = generateSchema[sceneVerdict]()
	riskVerdictSchema  = generateSchema[riskVerdict]()
)

func generateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	obj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureStrict(obj)
	return obj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ensureStrict makes every object closed and every property required, which
// strict structured output demands.
func ensureStrict(schema map[string]interface{}) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]interface{}); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]interface{}); ok {
				ensureStrict(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]interface{}); ok {
		ensureStrict(items)
	}
}

// decodeModelJSON unmarshals model output, tolerating prose around the
// first top-level object.
func decodeModelJSON(output string, v any) error {
	s := strings.TrimSpace(output)
	if s == "" {
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start != -1 && end == -1 {
		return io.ErrUnexpectedEOF
	}
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}
