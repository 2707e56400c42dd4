package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/smith3v/tutor625/pkg/config"
	"github.com/smith3v/tutor625/pkg/logger"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	defaultOpenAIModel = "gpt-4o-mini"
	defaultGeminiModel = "gemini-2.5-flash"
)

const systemPrompt = "You are a patient tutor helping a secondary school student revise for state exams. " +
	"Answer concisely, show working for maths and point out what an examiner would reward."

var (
	ErrDisabled       = errors.New("ai assistant is not configured")
	ErrInvalidRequest = errors.New("invalid ask request")
	ErrEmptyResponse  = errors.New("empty ai response")
)

// Request is a student question with optional surrounding material, such as
// the flashcard or exam question on screen.
type Request struct {
	Prompt  string `json:"prompt" validate:"required,max=4000"`
	Context string `json:"context" validate:"max=8000"`
}

type Response struct {
	Response string `json:"response"`
}

// Asker answers student questions.
type Asker interface {
	Ask(ctx context.Context, req Request) (Response, error)
}

// backend performs a single completion call.
type backend interface {
	complete(ctx context.Context, system, user string) (string, error)
	name() string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (r Request) normalized() Request {
	return Request{
		Prompt:  strings.TrimSpace(r.Prompt),
		Context: strings.TrimSpace(r.Context),
	}
}

func (r Request) Validate() error {
	if err := validate.Struct(r.normalized()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Client wraps a backend with validation, per-attempt timeouts and retry
// with exponential backoff.
type Client struct {
	backend    backend
	maxRetries int
	timeout    time.Duration
	baseDelay  time.Duration
}

// New builds the assistant selected by cfg. An empty provider yields a
// disabled assistant that rejects every question with ErrDisabled.
func New(cfg config.AIConfig) (Asker, error) {
	var (
		b   backend
		err error
	)
	switch cfg.Provider {
	case "":
		return Disabled{}, nil
	case ProviderOpenAI:
		b = newOpenAIBackend(cfg)
	case ProviderGemini:
		b, err = newGeminiBackend(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
	logger.Info("ai assistant enabled", "provider", b.name())
	return newClient(b, cfg.MaxRetries, cfg.Timeout), nil
}

func newClient(b backend, maxRetries int, timeout time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		backend:    b,
		maxRetries: maxRetries,
		timeout:    timeout,
		baseDelay:  time.Second,
	}
}

func (c *Client) Ask(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	req = req.normalized()

	user := req.Prompt
	if req.Context != "" {
		user = "Context:\n" + req.Context + "\n\nQuestion:\n" + req.Prompt
	}

	var answer string
	err := c.doWithRetry(ctx, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		text, err := c.backend.complete(attemptCtx, systemPrompt, user)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return ErrEmptyResponse
		}
		answer = text
		return nil
	})
	if err != nil {
		return Response{}, fmt.Errorf("ask %s: %w", c.backend.name(), err)
	}
	return Response{Response: answer}, nil
}

func (c *Client) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == c.maxRetries-1 {
			break
		}
		wait := c.baseDelay << attempt
		logger.Debug("ai request failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// Disabled is the assistant used when no provider is configured.
type Disabled struct{}

func (Disabled) Ask(context.Context, Request) (Response, error) {
	return Response{}, ErrDisabled
}
