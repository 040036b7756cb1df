package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
	"github.com/tidwall/gjson"
)

// textPath is where generateContent puts the first candidate's text.
const textPath = "candidates.0.content.parts.0.text"

// Gateway sends a prompt to a language model and returns its text.
type Gateway interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config configures the Gemini gateway.
type Config struct {
	APIKey        string
	URL           string
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

// NewConfig builds a gateway config from the application configuration.
func NewConfig(config *helper.Configuration) *Config {
	return &Config{
		APIKey:        config.APIKey,
		URL:           config.APIURL,
		Timeout:       config.LLMTimeout,
		RetryAttempts: config.RetryAttempts,
		RetryBackoff:  config.RetryBackoff,
	}
}

// Gemini calls the Gemini generateContent endpoint.
type Gemini struct {
	config *Config
	client *resty.Client
	log    *slog.Logger
}

// NewGemini creates a Gemini gateway. A missing API key is not an error here;
// every Generate call reports it instead.
func NewGemini(config *Config, logger *slog.Logger) *Gemini {
	c := *config
	if c.URL == "" {
		c.URL = helper.DefaultGeminiURL
	}
	if c.Timeout <= 0 {
		c.Timeout = helper.DefaultLLMTimeout
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = helper.DefaultRetryBackoff
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	}

	client := resty.New().
		SetTimeout(c.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Gemini{
		config: &c,
		client: client,
		log:    logger,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// statusError is a non 2xx response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.code, http.StatusText(e.code))
}

// Generate sends the prompt and returns the trimmed text of the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(g.config.APIKey) == "" {
		return "", helper.NewError("generate", fmt.Errorf("%w: GEMINI_API_KEY is not set", model.ErrConfiguration))
	}

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}

	backoff := retry.WithMaxRetries(uint64(g.config.RetryAttempts), retry.NewExponential(g.config.RetryBackoff)) // #nosec G115 -- attempts clamped in NewGemini

	var payload []byte
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		resp, err := g.client.R().
			SetContext(ctx).
			SetQueryParam("key", g.config.APIKey).
			SetBody(body).
			Post(g.config.URL)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			g.log.Warn("Gemini request failed", slog.Int("attempt", attempt), slog.String("error", g.redact(err.Error())))
			return retry.RetryableError(err)
		}

		code := resp.StatusCode()
		if code < 200 || code >= 300 {
			statusErr := &statusError{code: code}
			if code == http.StatusTooManyRequests || code >= 500 {
				g.log.Warn("Gemini returned retryable status", slog.Int("attempt", attempt), slog.Int("status", code))
				return retry.RetryableError(statusErr)
			}
			return statusErr
		}

		payload = resp.Body()
		return nil
	})
	if err != nil {
		cause := g.redact(err.Error())
		g.log.Error("Gemini request failed", slog.Int("attempts", attempt), slog.String("error", cause))
		return "", helper.NewError("generate", fmt.Errorf("%w: %s", model.ErrGatewayTransport, cause))
	}

	result := gjson.GetBytes(payload, textPath)
	if !result.Exists() || result.Type != gjson.String {
		reason := gjson.GetBytes(payload, "candidates.0.finishReason").String()
		if reason == "" {
			reason = gjson.GetBytes(payload, "promptFeedback.blockReason").String()
		}
		g.log.Warn("Gemini response has no text", slog.String("reason", reason))
		return "", helper.NewError("generate", fmt.Errorf("%w: missing %s (reason %q)", model.ErrGatewayShape, textPath, reason))
	}

	text := strings.TrimSpace(result.String())
	if text == "" {
		return "", helper.NewError("generate", fmt.Errorf("%w: empty text", model.ErrGatewayShape))
	}

	return text, nil
}

// Complete is Generate with every error mapped to a fixed user facing message.
func (g *Gemini) Complete(ctx context.Context, prompt string) string {
	text, err := g.Generate(ctx, prompt)
	if err != nil {
		return Message(err)
	}
	return text
}

// Message maps a Generate error to its fixed user facing message.
func Message(err error) string {
	switch {
	case errors.Is(err, model.ErrConfiguration):
		return model.MsgMissingCredential
	case errors.Is(err, model.ErrGatewayShape):
		return model.MsgUnclearResponse
	default:
		return model.MsgTransportError
	}
}

func (g *Gemini) redact(s string) string {
	if g.config.APIKey == "" {
		return s
	}
	return strings.ReplaceAll(s, g.config.APIKey, "[REDACTED]")
}
