package refine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/abelbrown/decoder/internal/logging"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"golang.org/x/time/rate"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI is a Backend on the Responses API with strict JSON schema output.
type OpenAI struct {
	client  *openai.Client
	model   string
	apiKey  string
	limiter *rate.Limiter
}

// NewOpenAI creates an OpenAI backend. An empty apiKey leaves the backend
// unavailable. Extra request options (base URL, HTTP client) are passed
// through to the client.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAI{
		client:  &client,
		model:   model,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 2),
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Available(context.Context) bool { return o.apiKey != "" }

// GenerateJSON implements Backend.
func (o *OpenAI) GenerateJSON(ctx context.Context, req Request, out any) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(req.MaxTokens),
		Instructions:    openai.String(req.Instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Input, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        req.Name,
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
					Description: openai.String(req.Description),
					Type:        "json_schema",
				},
			},
		},
	}

	start := time.Now()
	resp, err := callWithRetry(ctx, o.client, params)
	if err != nil {
		return fmt.Errorf("openai %s: %w", req.Name, err)
	}
	logging.Debug("OpenAI response", "schema", req.Name, "model", o.model, "duration", time.Since(start))

	if err := decodeModelJSON(resp.OutputText(), out); err != nil {
		return fmt.Errorf("decode %s: %w (model_output_prefix=%q)", req.Name, err, truncate(resp.OutputText(), 200))
	}
	return nil
}

var retryWaits = []time.Duration{500 * time.Millisecond, 2 * time.Second}

// callWithRetry retries rate-limit and server errors a bounded number of
// times. Waits give up as soon as ctx is done.
func callWithRetry(ctx context.Context, client *openai.Client, params responses.ResponseNewParams) (*responses.Response, error) {
	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) || attempt == maxAttempts-1 {
			break
		}
		logging.Warn("OpenAI call failed, retrying", "attempt", attempt+1, "error", err)
		select {
		case <-time.After(retryWaits[attempt]):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// retryable reports whether err is an API error worth another attempt:
// rate limiting or a server-side failure.
func retryable(err error) bool {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
