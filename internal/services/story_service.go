// internal/services/story_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Corphon/Chronicle/internal/config"
	apperrors "github.com/Corphon/Chronicle/internal/errors"
	"github.com/Corphon/Chronicle/internal/llm"
	"github.com/Corphon/Chronicle/internal/models"
	"github.com/Corphon/Chronicle/internal/retry"
	"github.com/Corphon/Chronicle/internal/utils"
)

// ErrMissingMistralKey is the cause of the precondition error raised when
// mistral is selected without a key.
var ErrMissingMistralKey = errors.New("mistral api key is required")

// StoryInput 单回合故事生成的输入
type StoryInput struct {
	Input        string
	History      []models.Turn // prior turns, excluding Input
	Inventory    []string
	Quest        string
	Language     models.Language
	Provider     models.ProviderName
	SecondaryKey string // Mistral key, required when Provider is mistral
}

// ProviderFactory builds the story backend for one turn.
type ProviderFactory func(name models.ProviderName, secondaryKey string) (llm.StoryProvider, error)

// RegistryProviders resolves backends from the llm registry using cfg.
func RegistryProviders(cfg *config.Config) ProviderFactory {
	return func(name models.ProviderName, secondaryKey string) (llm.StoryProvider, error) {
		if name == models.ProviderMistral {
			return llm.GetProvider(string(models.ProviderMistral), cfg.MistralConfig(secondaryKey))
		}
		return llm.GetProvider(string(models.ProviderGemini), cfg.GeminiConfig())
	}
}

// StoryService 生成结构化故事状态：重试只包裹网络调用，解析在重试之外
type StoryService struct {
	providers ProviderFactory
	policy    retry.Policy
	metrics   *utils.Metrics
	options   []retry.Option
}

// NewStoryService 创建故事服务。options are applied to every retry sequence.
func NewStoryService(providers ProviderFactory, policy retry.Policy, metrics *utils.Metrics, options ...retry.Option) *StoryService {
	if metrics == nil {
		metrics = utils.GetMetrics()
	}
	return &StoryService{
		providers: providers,
		policy:    policy,
		metrics:   metrics,
		options:   options,
	}
}

// ProduceStoryState fetches and decodes the next story state. Throttling
// that outlasts the retry budget comes back as a throttled AppError; other
// provider errors are returned unchanged.
func (s *StoryService) ProduceStoryState(ctx context.Context, in StoryInput, opts ...retry.Option) (*models.StoryState, error) {
	if in.Provider == models.ProviderMistral && strings.TrimSpace(in.SecondaryKey) == "" {
		return nil, apperrors.NewPreconditionError("Mistral API Key is required.", ErrMissingMistralKey)
	}

	provider, err := s.providers(in.Provider, in.SecondaryKey)
	if err != nil {
		if apperrors.TypeOf(err) != "" {
			return nil, err
		}
		return nil, apperrors.NewPreconditionError("story provider is not configured", err)
	}

	req := llm.StoryRequest{
		SystemInstruction: llm.BuildSystemInstruction(in.Inventory, in.Quest, in.Language),
		History:           in.History,
		Input:             in.Input,
	}

	logger := utils.GetLogger()
	all := append([]retry.Option{
		retry.WithName("story"),
		retry.WithOnRetry(func(ev retry.RetryEvent) {
			s.metrics.RecordRetry(ev.Operation, ev.Delay)
			logger.Warn("API rate limit or quota hit, pausing before retry", map[string]interface{}{
				"provider":           provider.GetName(),
				"delay_ms":           ev.Delay.Milliseconds(),
				"attempts_remaining": ev.AttemptsRemaining,
				"hinted":             ev.Hinted,
			})
		}),
	}, s.options...)
	all = append(all, opts...)

	start := time.Now()
	text, err := retry.Do(ctx, s.policy, func(ctx context.Context) (string, error) {
		return provider.CompleteStory(ctx, req)
	}, all...)
	s.metrics.RecordLLMRequest(provider.GetName(), time.Since(start))

	if err != nil {
		logger.Error("story generation failed", map[string]interface{}{
			"provider": provider.GetName(),
			"error":    err.Error(),
		})
		if retry.IsThrottling(err) {
			return nil, apperrors.NewThrottledError("story provider is exhausted", err)
		}
		return nil, err
	}

	state, err := llm.DecodeStoryState(text)
	if err != nil {
		logger.Error("story response rejected", map[string]interface{}{
			"provider": provider.GetName(),
			"error":    err.Error(),
		})
		return nil, err
	}
	return state, nil
}
