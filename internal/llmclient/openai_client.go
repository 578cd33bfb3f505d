// internal/llmclient/openai_client.go
package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/locator-cli/internal/config"
)

// OpenAIClient talks to any chat-completions endpoint that follows the OpenAI wire format.
type OpenAIClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	config     config.AssistConfig
	newBackOff func() backoff.BackOff
}

// -- Chat Completions Request/Response Structures (Internal to this file) --

type openAIRequest struct {
	Model          string          `json:"model,omitempty"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	TopP           float32         `json:"top_p,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message,omitempty"`
		Delta *struct {
			Content string `json:"content"`
		} `json:"delta,omitempty"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient initializes the client. Both an endpoint and a key are required.
func NewOpenAIClient(cfg config.AssistConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingEndpoint)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		endpoint:   cfg.Endpoint,
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.APITimeout},
		logger:     logger.Named("llm_client.openai"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			b.MaxInterval = 30 * time.Second
			return b
		},
	}, nil
}

// Generate sends the request and returns choices[0].message.content, retrying transient failures.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(c.buildPayload(req, false))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var responseContent string
	operation := func() error {
		startTime := time.Now()
		resp, err := c.do(ctx, body, "application/json")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		duration := time.Since(startTime)

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		var payload openAIResponse
		if err := json.Unmarshal(respBody, &payload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		if payload.Error != nil {
			return backoff.Permanent(fmt.Errorf("openai API error: %s", payload.Error.Message))
		}
		if len(payload.Choices) == 0 || payload.Choices[0].Message == nil {
			return backoff.Permanent(errors.New("openai API returned no choices"))
		}

		fields := []zap.Field{zap.Duration("duration", duration)}
		if payload.Usage != nil {
			fields = append(fields,
				zap.Int("prompt_tokens", payload.Usage.PromptTokens),
				zap.Int("completion_tokens", payload.Usage.CompletionTokens),
				zap.Int("total_tokens", payload.Usage.TotalTokens))
		}
		c.logger.Info("LLM generation complete (OpenAI)", fields...)

		responseContent = payload.Choices[0].Message.Content
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return "", err
	}
	return responseContent, nil
}

// Stream opens a server-sent-events response and forwards choices[0].delta.content pieces in
// order. Only establishing the connection is retried; a stream that fails midway is reported
// in the Done chunk.
func (c *OpenAIClient) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	req = ensureID(req)
	body, err := json.Marshal(c.buildPayload(req, true))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var resp *http.Response
	connect := func() error {
		r, err := c.do(ctx, body, "text/event-stream")
		if err != nil {
			return err
		}
		resp = r
		return nil
	}
	if err := backoff.Retry(connect, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return nil, err
	}

	out := make(chan Chunk, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		em := &emitter{ctx: ctx, id: req.ID, out: out}
		err := c.readEvents(resp.Body, em)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err != nil {
			c.logger.Warn("OpenAI stream failed.", zap.String("request_id", req.ID), zap.Error(err))
		} else {
			c.logger.Debug("OpenAI stream complete.", zap.String("request_id", req.ID), zap.Int("bytes", len(em.text)))
		}
		em.finish(err)
	}()
	return out, nil
}

// readEvents consumes "data:" lines until the [DONE] sentinel, a finish_reason, or end of body.
func (c *OpenAIClient) readEvents(r io.Reader, em *emitter) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil
		}

		var event openAIResponse
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			c.logger.Debug("Skipping malformed stream event.", zap.Error(err))
			continue
		}
		if event.Error != nil {
			return fmt.Errorf("openai API error: %s", event.Error.Message)
		}
		if len(event.Choices) == 0 {
			continue
		}
		choice := event.Choices[0]
		if choice.Delta != nil && !em.send(choice.Delta.Content) {
			return em.ctx.Err()
		}
		if choice.FinishReason != "" {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read failed: %w", err)
	}
	return nil
}

// Close releases idle connections.
func (c *OpenAIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *OpenAIClient) buildPayload(req Request, stream bool) openAIRequest {
	messages := make([]Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, req.Messages...)

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}
	payload := openAIRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
		TopP:        c.config.TopP,
		Stream:      stream,
	}
	if req.ForceJSON {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return payload
}

// do issues one POST and returns the response only for 200 OK. Other statuses are drained,
// closed, and classified for the retry loop.
func (c *OpenAIClient) do(ctx context.Context, body []byte, accept string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, c.handleAPIError(resp.StatusCode, respBody)
	}
	return resp, nil
}

func (c *OpenAIClient) handleAPIError(statusCode int, body []byte) error {
	c.logger.Error("OpenAI API returned error status", zap.Int("status", statusCode), zap.String("response", string(body)))
	err := fmt.Errorf("openai API error: status %d, body: %s", statusCode, strings.TrimSpace(string(body)))

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError, http.StatusBadGateway:
		return err
	default:
		return backoff.Permanent(err)
	}
}
