// Package gemini is a small client for the Gemini generateContent endpoint.
//
// Every outcome is folded into a domain.GenerationResult: provider refusals,
// quota exhaustion and transport failures come back as blocked results with a
// reason rather than as Go errors. Calls are never retried.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-subtext-backend/internal/config"
	"github.com/tbourn/go-subtext-backend/internal/domain"
)

// ReasonNoAPIKey is returned without calling the provider when no key is set.
const ReasonNoAPIKey = domain.ReasonNoAPIKey

// headerAPIKey carries the key; it must stay out of the URL, which ends up
// in transport error strings.
const headerAPIKey = "x-goog-api-key"

const (
	finishSafety      = "SAFETY"
	statusExhausted   = "RESOURCE_EXHAUSTED"
	safetyThreshold   = "BLOCK_MEDIUM_AND_ABOVE"
	rewriteMaxTokens  = 1024
	rewriteTemperature = 0.7
)

var safetyCategories = []string{
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// quotaTerms mark a provider error as a capacity problem.
var quotaTerms = []string{"quota", "billing", "rate limit"}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type generateResponse struct {
	Candidates     []candidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

// Client calls one Gemini model.
type Client struct {
	http   *resty.Client
	apiKey string
	model  string
	log    zerolog.Logger
}

// New builds a client from cfg. A zero cfg.Timeout keeps the transport default.
func New(cfg config.GeminiConfig, log zerolog.Logger) *Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader(headerAPIKey, cfg.APIKey)
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	return &Client{http: c, apiKey: cfg.APIKey, model: cfg.Model, log: log}
}

// Generate rewrites body as the sender's inner monologue.
func (c *Client) Generate(ctx context.Context, sender, receiver, body string) domain.GenerationResult {
	return c.Complete(ctx, RewritePrompt(sender, receiver, body), rewriteMaxTokens, rewriteTemperature)
}

// Complete sends a single-turn prompt with the given sampling settings.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) domain.GenerationResult {
	ctx, span := otel.Tracer("gemini").Start(ctx, "Client.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", c.model), attribute.Int("gemini.max_tokens", maxTokens))

	if strings.TrimSpace(c.apiKey) == "" {
		return domain.GenerationResult{Blocked: true, Kind: domain.BlockUpstream, Reason: ReasonNoAPIKey}
	}

	req := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		SafetySettings:   make([]safetySetting, 0, len(safetyCategories)),
		GenerationConfig: generationConfig{MaxOutputTokens: maxTokens, Temperature: temperature},
	}
	for _, cat := range safetyCategories {
		req.SafetySettings = append(req.SafetySettings, safetySetting{Category: cat, Threshold: safetyThreshold})
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&req).
		SetPathParam("model", c.model).
		Post("/models/{model}:generateContent")
	if err != nil {
		span.RecordError(err)
		return c.failed(err)
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		span.RecordError(err)
		if resp.StatusCode() != http.StatusOK {
			return c.failed(fmt.Errorf("status %d", resp.StatusCode()))
		}
		return c.failed(fmt.Errorf("decode response: %w", err))
	}

	res := interpret(resp.StatusCode(), &out)
	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode()),
		attribute.Bool("gemini.blocked", res.Blocked),
		attribute.String("gemini.block_kind", string(res.Kind)),
	)
	if res.Blocked {
		ev := c.log.Warn().Int("status", resp.StatusCode()).Str("kind", string(res.Kind))
		if out.Error != nil {
			ev = ev.Str("detail", c.redact(out.Error.Message))
		}
		ev.Msg("generation blocked")
	}
	return res
}

// interpret maps a decoded provider response onto a GenerationResult.
func interpret(status int, out *generateResponse) domain.GenerationResult {
	if out.Error != nil {
		if isQuota(status, out.Error) {
			return domain.GenerationResult{Blocked: true, Kind: domain.BlockQuota, Reason: domain.ReasonQuota}
		}
		return upstream()
	}
	if status == http.StatusTooManyRequests {
		return domain.GenerationResult{Blocked: true, Kind: domain.BlockQuota, Reason: domain.ReasonQuota}
	}
	if status != http.StatusOK {
		return upstream()
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" && len(out.Candidates) == 0 {
		return domain.GenerationResult{Blocked: true, Kind: domain.BlockSafety, Reason: domain.ReasonSafetyFilter}
	}
	if len(out.Candidates) == 0 {
		return domain.GenerationResult{}
	}
	first := out.Candidates[0]
	if first.FinishReason == finishSafety {
		return domain.GenerationResult{Blocked: true, Kind: domain.BlockSafety, Reason: domain.ReasonSafetyFilter}
	}
	if len(first.Content.Parts) == 0 {
		return domain.GenerationResult{}
	}
	return domain.GenerationResult{Text: first.Content.Parts[0].Text}
}

func isQuota(status int, e *apiError) bool {
	if status == http.StatusTooManyRequests || e.Code == http.StatusTooManyRequests || e.Status == statusExhausted {
		return true
	}
	msg := strings.ToLower(e.Message)
	for _, t := range quotaTerms {
		if strings.Contains(msg, t) {
			return true
		}
	}
	return false
}

// failed logs err with the key scrubbed and reports a generic upstream block.
func (c *Client) failed(err error) domain.GenerationResult {
	c.log.Warn().Str("detail", c.redact(err.Error())).Msg("generation call failed")
	return upstream()
}

func upstream() domain.GenerationResult {
	return domain.GenerationResult{Blocked: true, Kind: domain.BlockUpstream, Reason: domain.ReasonUpstream}
}

// redact removes the API key from s.
func (c *Client) redact(s string) string {
	if k := strings.TrimSpace(c.apiKey); k != "" {
		s = strings.ReplaceAll(s, k, "[REDACTED]")
	}
	return s
}
