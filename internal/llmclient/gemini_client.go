// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/locator-cli/internal/config"
)

// contentGenerator is the subset of *genai.Models the client relies on.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// GeminiClient implements Client for Google Gemini APIs.
type GeminiClient struct {
	models     contentGenerator
	logger     *zap.Logger
	config     config.AssistConfig
	newBackOff func() backoff.BackOff
}

// NewGeminiClient initializes the client.
func NewGeminiClient(ctx context.Context, cfg config.AssistConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.Endpoint
	}
	if cfg.APITimeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.APITimeout}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGeminiClient(client.Models, cfg, logger), nil
}

func newGeminiClient(models contentGenerator, cfg config.AssistConfig, logger *zap.Logger) *GeminiClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiClient{
		models: models,
		logger: logger.Named("llm_client.gemini"),
		config: cfg,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			b.MaxInterval = 30 * time.Second
			return b
		},
	}
}

// Generate sends the request to Gemini and returns the generated text, retrying transient failures.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	contents, genConfig := c.buildRequest(req)

	var responseContent string
	operation := func() error {
		startTime := time.Now()
		resp, err := c.models.GenerateContent(ctx, c.config.Model, contents, genConfig)
		duration := time.Since(startTime)
		if err != nil {
			return c.classifyError(ctx, err)
		}

		text, err := responseText(resp)
		if err != nil {
			return err
		}

		fields := []zap.Field{zap.Duration("duration", duration)}
		if u := resp.UsageMetadata; u != nil {
			fields = append(fields,
				zap.Int32("prompt_tokens", u.PromptTokenCount),
				zap.Int32("completion_tokens", u.CandidatesTokenCount),
				zap.Int32("total_tokens", u.TotalTokenCount))
		}
		c.logger.Info("LLM generation complete (Gemini)", fields...)

		responseContent = text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return "", err
	}
	return responseContent, nil
}

// Stream sends the request with streaming enabled. Each response piece is forwarded as it arrives.
func (c *GeminiClient) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	req = ensureID(req)
	contents, genConfig := c.buildRequest(req)
	out := make(chan Chunk, 16)

	go func() {
		defer close(out)
		em := &emitter{ctx: ctx, id: req.ID, out: out}
		for resp, err := range c.models.GenerateContentStream(ctx, c.config.Model, contents, genConfig) {
			if err != nil {
				c.logger.Warn("Gemini stream failed.", zap.String("request_id", req.ID), zap.Error(err))
				em.finish(fmt.Errorf("gemini stream error: %w", err))
				return
			}
			if resp == nil {
				continue
			}
			if !em.send(resp.Text()) {
				em.finish(ctx.Err())
				return
			}
		}
		c.logger.Debug("Gemini stream complete.", zap.String("request_id", req.ID), zap.Int("bytes", len(em.text)))
		em.finish(nil)
	}()
	return out, nil
}

// Close releases client resources. The GenAI client holds none that need explicit release.
func (c *GeminiClient) Close() error { return nil }

func (c *GeminiClient) buildRequest(req Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	system := []string{}
	if req.SystemPrompt != "" {
		system = append(system, req.SystemPrompt)
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	temperature := req.Temperature
	genConfig := &genai.GenerateContentConfig{
		Temperature:    &temperature,
		SafetySettings: c.safetySettings(),
	}
	if len(system) > 0 {
		genConfig.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}
	if maxTokens > 0 {
		genConfig.MaxOutputTokens = int32(maxTokens)
	}
	if c.config.TopP > 0 {
		topP := c.config.TopP
		genConfig.TopP = &topP
	}
	if c.config.TopK > 0 {
		topK := float32(c.config.TopK)
		genConfig.TopK = &topK
	}
	if req.ForceJSON {
		genConfig.ResponseMIMEType = "application/json"
	}
	return contents, genConfig
}

func (c *GeminiClient) safetySettings() []*genai.SafetySetting {
	settings := make([]*genai.SafetySetting, 0, len(c.config.SafetyFilters))
	for category, threshold := range c.config.SafetyFilters {
		settings = append(settings, &genai.SafetySetting{
			Category:  genai.HarmCategory(strings.ToUpper(category)),
			Threshold: genai.HarmBlockThreshold(strings.ToUpper(threshold)),
		})
	}
	return settings
}

// classifyError marks API errors other than rate limiting and server faults as permanent.
func (c *GeminiClient) classifyError(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		c.logger.Error("Gemini API returned error status", zap.Int("status", apiErr.Code), zap.String("message", apiErr.Message))
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
			return fmt.Errorf("gemini API error: %w", err)
		default:
			return backoff.Permanent(fmt.Errorf("gemini API error: %w", err))
		}
	}
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}
	c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
	return fmt.Errorf("gemini request failed: %w", err)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", backoff.Permanent(fmt.Errorf("gemini API blocked the prompt (Reason: %s)", resp.PromptFeedback.BlockReason))
		}
		return "", backoff.Permanent(errors.New("gemini API returned no candidates"))
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		switch candidate.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonBlocklist:
			return "", backoff.Permanent(fmt.Errorf("gemini API blocked the request (Reason: %s)", candidate.FinishReason))
		}
		return "", fmt.Errorf("gemini API returned empty content parts (Reason: %s)", candidate.FinishReason)
	}
	return resp.Text(), nil
}
