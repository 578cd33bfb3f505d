// internal/assist/service.go
package assist

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/locator-cli/internal/config"
	"github.com/xkilldash9x/locator-cli/internal/llmclient"
	"github.com/xkilldash9x/locator-cli/internal/locator"
)

// ChatRequest is one user turn in a conversation about a selected element.
type ChatRequest struct {
	ID      string
	Record  locator.ElementRecord
	History []llmclient.Message
	Prompt  string
}

// Service asks a language model for locator candidates and chat replies about an element.
type Service struct {
	client llmclient.Client
	cfg    config.AssistConfig
	logger *zap.Logger
}

// NewService wires a model client with the assist settings.
func NewService(client llmclient.Client, cfg config.AssistConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, cfg: cfg, logger: logger.Named("assist")}
}

// Generate requests candidates for rec in a single completion.
func (s *Service) Generate(ctx context.Context, rec locator.ElementRecord) ([]locator.Candidate, error) {
	req, err := s.generationRequest(rec)
	if err != nil {
		return nil, err
	}

	reply, err := s.client.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("AI generation failed: %w", err)
	}

	cands := ParseCandidates(reply)
	s.logger.Info("AI candidates parsed.", zap.Int("count", len(cands)), zap.Int("reply_bytes", len(reply)))
	if len(cands) == 0 {
		return nil, ErrNoCandidates
	}
	return cands, nil
}

// GenerateStream requests candidates with a streamed completion and hands each one to onCandidate
// as soon as its line is complete. It returns the full ordered list once the stream ends.
func (s *Service) GenerateStream(ctx context.Context, rec locator.ElementRecord, onCandidate func(locator.Candidate)) ([]locator.Candidate, error) {
	req, err := s.generationRequest(rec)
	if err != nil {
		return nil, err
	}

	chunks, err := s.client.Stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("AI generation failed: %w", err)
	}

	var (
		buf   LineBuffer
		cands []locator.Candidate
	)
	emit := func(line string) {
		if c, ok := ParseLine(line); ok {
			cands = append(cands, c)
			if onCandidate != nil {
				onCandidate(c)
			}
		}
	}

	var streamErr error
	for chunk := range chunks {
		if chunk.Done {
			streamErr = chunk.Err
			break
		}
		for _, line := range buf.Write(chunk.Text) {
			emit(line)
		}
	}
	if rest, ok := buf.Flush(); ok {
		emit(rest)
	}

	if streamErr != nil {
		return cands, fmt.Errorf("AI generation stream failed: %w", streamErr)
	}
	if err := ctx.Err(); err != nil {
		return cands, err
	}
	s.logger.Info("AI candidates parsed.", zap.Int("count", len(cands)))
	if len(cands) == 0 {
		return nil, ErrNoCandidates
	}
	return cands, nil
}

// Chat streams the model's reply to one user turn. The system prompt grounds the model in the
// record; history is sent in order before the new prompt.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (<-chan llmclient.Chunk, error) {
	system, err := BuildChatSystemPrompt(req.Record)
	if err != nil {
		return nil, err
	}

	messages := make([]llmclient.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, llmclient.Message{Role: llmclient.RoleUser, Content: req.Prompt})

	s.logger.Debug("Starting chat turn.", zap.String("request_id", req.ID), zap.Int("history", len(req.History)))
	ch, err := s.client.Stream(ctx, llmclient.Request{
		ID:           req.ID,
		SystemPrompt: system,
		Messages:     messages,
		Temperature:  s.cfg.ChatTemperature,
		MaxTokens:    s.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("AI chat failed: %w", err)
	}
	return ch, nil
}

func (s *Service) generationRequest(rec locator.ElementRecord) (llmclient.Request, error) {
	prompt, err := BuildPrompt(rec, s.cfg.Prompt)
	if err != nil {
		return llmclient.Request{}, err
	}
	req := llmclient.UserPrompt(GenerationSystemPrompt, prompt)
	req.Temperature = s.cfg.Temperature
	req.MaxTokens = s.cfg.MaxTokens
	return req, nil
}
