// internal/services/image_service.go
package services

import (
	"context"

	"github.com/Corphon/Chronicle/internal/llm"
	"github.com/Corphon/Chronicle/internal/models"
	"github.com/Corphon/Chronicle/internal/retry"
	"github.com/Corphon/Chronicle/internal/utils"
)

const (
	HighQualityImageModel = "gemini-3-pro-image-preview"
	StandardImageModel    = "gemini-2.5-flash-image"

	// ImageStylePrefix keeps every illustration in the same art style.
	ImageStylePrefix = "Digital fantasy art, oil painting style, highly detailed, dramatic lighting, cinematic composition. "

	imageAspectRatio = "16:9"
	defaultImageMIME = "image/png"
)

// ImageService illustrates scenes. It never returns an error: any failure
// is logged, counted and reported as an absent image.
type ImageService struct {
	provider llm.ImageProvider
	policy   retry.Policy
	metrics  *utils.Metrics
	options  []retry.Option
}

// NewImageService 创建图像服务。provider may be nil when no image
// credential is configured.
func NewImageService(provider llm.ImageProvider, policy retry.Policy, metrics *utils.Metrics, options ...retry.Option) *ImageService {
	if metrics == nil {
		metrics = utils.GetMetrics()
	}
	return &ImageService{provider: provider, policy: policy, metrics: metrics, options: options}
}

// ProduceSceneImage returns a data URI for the scene, or ok=false when no
// image could be produced. The high-capability model is tried first; a
// permission denial drops to the standard model once.
func (s *ImageService) ProduceSceneImage(ctx context.Context, visualDescription string, size models.ImageSize, opts ...retry.Option) (string, bool) {
	logger := utils.GetLogger()
	if s.provider == nil {
		s.metrics.RecordImageFailure("no_provider")
		logger.Warn("image generation skipped, no image provider configured", nil)
		return "", false
	}

	prompt := ImageStylePrefix + visualDescription

	result, err := s.generate(ctx, llm.ImageRequest{
		Model:       HighQualityImageModel,
		Prompt:      prompt,
		ImageSize:   string(size),
		AspectRatio: imageAspectRatio,
	}, opts)

	if err != nil && retry.IsPermissionDenied(err) {
		s.metrics.RecordImageFallback()
		logger.Warn("403 Permission Denied on high-res model, falling back to standard model", map[string]interface{}{
			"model": HighQualityImageModel,
		})
		result, err = s.generate(ctx, llm.ImageRequest{
			Model:       StandardImageModel,
			Prompt:      prompt,
			AspectRatio: imageAspectRatio,
		}, opts)
	}

	if err != nil {
		s.metrics.RecordImageFailure(failureReason(err))
		logger.Warn("image generation failed, continuing without image", map[string]interface{}{
			"error": err.Error(),
		})
		return "", false
	}
	if result == nil || result.Data == "" {
		s.metrics.RecordImageFailure("no_image")
		return "", false
	}

	mime := result.MIMEType
	if mime == "" {
		mime = defaultImageMIME
	}
	return "data:" + mime + ";base64," + result.Data, true
}

func (s *ImageService) generate(ctx context.Context, req llm.ImageRequest, opts []retry.Option) (*llm.ImageResult, error) {
	all := append([]retry.Option{
		retry.WithName("image"),
		retry.WithOnRetry(func(ev retry.RetryEvent) {
			s.metrics.RecordRetry(ev.Operation, ev.Delay)
			utils.GetLogger().Warn("image rate limit hit, pausing before retry", map[string]interface{}{
				"model":              req.Model,
				"delay_ms":           ev.Delay.Milliseconds(),
				"attempts_remaining": ev.AttemptsRemaining,
			})
		}),
	}, s.options...)
	all = append(all, opts...)

	return retry.Do(ctx, s.policy, func(ctx context.Context) (*llm.ImageResult, error) {
		return s.provider.GenerateImage(ctx, req)
	}, all...)
}

func failureReason(err error) string {
	switch {
	case retry.IsThrottling(err):
		return "throttled"
	case retry.IsPermissionDenied(err):
		return "permission_denied"
	default:
		return "error"
	}
}
