package refine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/abelbrown/decoder/internal/logging"
	"golang.org/x/time/rate"
)

// DefaultOllamaEndpoint is the local Ollama server.
const DefaultOllamaEndpoint = "http://localhost:11434"

// Ollama is a Backend on a local Ollama server. Structured output is
// requested by passing the schema as the generate call's format.
type Ollama struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter

	mu    sync.Mutex
	model string // empty until configured or detected
}

// NewOllama creates an Ollama backend. If model is empty the first model
// the server lists is used.
func NewOllama(endpoint, model string) *Ollama {
	if endpoint == "" {
		endpoint = DefaultOllamaEndpoint
	}
	return &Ollama{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 60 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
}

func (o *Ollama) Name() string { return "ollama" }

// Available reports whether the server answers and has a model.
func (o *Ollama) Available(ctx context.Context) bool {
	model := o.getModel(ctx)
	if model == "" {
		logging.Debug("Ollama not available - no models found", "endpoint", o.endpoint)
		return false
	}
	return true
}

// getModel returns the configured model, detecting one on first use.
func (o *Ollama) getModel(ctx context.Context) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.model != "" {
		return o.model
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"/api/tags", nil)
	if err != nil {
		return ""
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ""
	}
	if len(result.Models) == 0 {
		return ""
	}
	o.model = result.Models[0].Name
	logging.Info("Ollama auto-detected model", "model", o.model)
	return o.model
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  any            `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// GenerateJSON implements Backend.
func (o *Ollama) GenerateJSON(ctx context.Context, req Request, out any) error {
	model := o.getModel(ctx)
	if model == "" {
		return fmt.Errorf("ollama at %s has no models: %w", o.endpoint, ErrUnavailable)
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	opts := map[string]any{"temperature": 0.1}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	body, err := json.Marshal(ollamaRequest{
		Model:   model,
		Prompt:  req.Input,
		System:  req.Instructions,
		Format:  req.Schema,
		Options: opts,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		logging.Warn("Ollama API error", "status", resp.StatusCode, "body", truncate(string(respBody), 200))
		return fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result ollamaResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	logging.Debug("Ollama response", "schema", req.Name, "model", result.Model, "length", len(result.Response))

	if err := decodeModelJSON(result.Response, out); err != nil {
		return fmt.Errorf("decode %s: %w", req.Name, err)
	}
	return nil
}
