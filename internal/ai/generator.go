// Package ai wraps the text-generation backend used for recipes, food
// suggestions and emotion check-ins. Callers always have a deterministic
// fallback, so every failure here is recoverable.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"google.golang.org/genai"

	"breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
)

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 30 * time.Second
	providerGemini = "gemini"
)

// Generator turns a prompt into text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig configures the Gemini backend
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GeminiGenerator calls the Gemini API through google.golang.org/genai
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  logging.Logger
}

// NewGeminiGenerator creates a client for cfg. An empty API key is a
// validation error so hosts can fall back to StaticGenerator or nothing.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig, logger logging.Logger) (*GeminiGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.HandleValidationError("NewGeminiGenerator", "api_key", "", "an API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.HandleUpstreamError("NewGeminiGenerator", providerGemini, err)
	}

	return &GeminiGenerator{client: client, model: cfg.Model, timeout: cfg.Timeout, logger: logger}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", errors.HandleUpstreamError("Generate", providerGemini, err)
	}

	text := strings.TrimSpace(resp.Text())
	logging.LogOperation(g.logger, "ai.generate", time.Since(start), map[string]interface{}{
		"model":      g.model,
		"prompt_len": len(prompt),
		"reply_len":  len(text),
	})
	if text == "" {
		return "", errors.HandleUpstreamError("Generate", providerGemini, fmt.Errorf("empty response"))
	}
	return text, nil
}

// StaticGenerator returns the same reply for every prompt
type StaticGenerator struct {
	Reply string

	calls      atomic.Int64
	lastPrompt atomic.Value
}

func NewStaticGenerator(reply string) *StaticGenerator {
	return &StaticGenerator{Reply: reply}
}

func (g *StaticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.calls.Add(1)
	g.lastPrompt.Store(prompt)
	return g.Reply, nil
}

// Calls reports how many prompts were answered
func (g *StaticGenerator) Calls() int64 { return g.calls.Load() }

func (g *StaticGenerator) LastPrompt() string {
	p, _ := g.lastPrompt.Load().(string)
	return p
}

// FailingGenerator fails every call with an upstream error
type FailingGenerator struct {
	Err error
}

func (g FailingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	err := g.Err
	if err == nil {
		err = fmt.Errorf("generator unavailable")
	}
	return "", errors.HandleUpstreamError("Generate", "static", err)
}

var (
	leadingFence  = regexp.MustCompile("(?i)^```(?:json)?")
	trailingFence = regexp.MustCompile("```$")
)

// StripFences removes a markdown code fence around a reply
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(strings.TrimSpace(text), "")
	return strings.TrimSpace(text)
}

// DecodeJSON parses a possibly fenced JSON reply into T. Parse failures are
// upstream errors: the provider answered, but not in the agreed shape.
func DecodeJSON[T any](op, text string) (*T, error) {
	var v T
	if err := json.Unmarshal([]byte(StripFences(text)), &v); err != nil {
		return nil, errors.HandleUpstreamError(op, "decode", err)
	}
	return &v, nil
}
