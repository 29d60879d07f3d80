// internal/llm/interface.go
package llm

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Corphon/Chronicle/internal/models"
)

// 错误定义
var ErrUnknownProvider = errors.New("unknown story provider")

// 配置键
const (
	ConfigAPIKey       = "api_key"
	ConfigBaseURL      = "base_url"
	ConfigDefaultModel = "default_model"
)

// StoryRequest is everything a backend needs for one story turn.
type StoryRequest struct {
	SystemInstruction string
	History           []models.Turn // prior turns only, oldest first
	Input             string
}

// ImageRequest 图像生成请求
type ImageRequest struct {
	Model       string
	Prompt      string
	ImageSize   string // omitted from the request when empty
	AspectRatio string
}

// ImageResult 图像生成结果，Data 为 base64
type ImageResult struct {
	MIMEType string
	Data     string
}

// StoryProvider 定义所有故事后端必须实现的接口
type StoryProvider interface {
	// 获取提供者名称
	GetName() string

	// 初始化提供者，传入配置
	Initialize(config map[string]string) error

	// CompleteStory returns the raw JSON text of one story state. Decoding
	// is left to the caller so it is never retried.
	CompleteStory(ctx context.Context, req StoryRequest) (string, error)
}

// ImageProvider is implemented by backends that can illustrate a scene.
// A nil result with a nil error means the response held no image.
type ImageProvider interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// ProviderFactory 提供者工厂
type ProviderFactory func() StoryProvider

// Registry 提供者注册表
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]ProviderFactory)}
}

// 全局注册表
var DefaultRegistry = NewRegistry()

// Register 注册一个新的提供者
func (r *Registry) Register(name string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = factory
}

// GetProvider 获取指定名称的提供者实例
func (r *Registry) GetProvider(name string, config map[string]string) (StoryProvider, error) {
	r.mu.RLock()
	factory, exists := r.providers[name]
	r.mu.RUnlock()
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, err
	}
	return provider, nil
}

// GetAvailableProviders 返回所有已注册的提供者名称，按字母排序
func (r *Registry) GetAvailableProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register 在默认注册表中注册提供者
func Register(name string, factory ProviderFactory) {
	DefaultRegistry.Register(name, factory)
}

// GetProvider 从默认注册表创建提供者
func GetProvider(name string, config map[string]string) (StoryProvider, error) {
	return DefaultRegistry.GetProvider(name, config)
}

// ListProviders 返回默认注册表中的提供者名称
func ListProviders() []string {
	return DefaultRegistry.GetAvailableProviders()
}
