// internal/models/settings.go
package models

import (
	"fmt"
	"strings"
)

// Language 文本字段使用的语言，不影响协议结构
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageRussian Language = "ru"
)

// ProviderName selects the story backend.
type ProviderName string

const (
	ProviderGemini  ProviderName = "gemini"
	ProviderMistral ProviderName = "mistral"
)

// ImageSize is the resolution tier for the high-capability image model.
type ImageSize string

const (
	ImageSize1K ImageSize = "1K"
	ImageSize2K ImageSize = "2K"
	ImageSize4K ImageSize = "4K"
)

// Settings 用户设置
type Settings struct {
	ImageSize  ImageSize    `json:"imageSize"`
	Language   Language     `json:"language"`
	Provider   ProviderName `json:"provider"`
	MistralKey string       `json:"mistralKey,omitempty"`
}

// DefaultSettings 默认设置
func DefaultSettings() Settings {
	return Settings{
		ImageSize: ImageSize1K,
		Language:  LanguageEnglish,
		Provider:  ProviderGemini,
	}
}

// ParseLanguage accepts "en"/"ru" in any case.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LanguageEnglish:
		return LanguageEnglish, nil
	case LanguageRussian:
		return LanguageRussian, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// ParseProvider accepts "gemini"/"mistral" in any case.
func ParseProvider(s string) (ProviderName, error) {
	switch ProviderName(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderGemini:
		return ProviderGemini, nil
	case ProviderMistral:
		return ProviderMistral, nil
	}
	return "", fmt.Errorf("unsupported provider %q", s)
}

// ParseImageSize accepts "1K", "2K" or "4K" (case-insensitive).
func ParseImageSize(s string) (ImageSize, error) {
	switch ImageSize(strings.ToUpper(strings.TrimSpace(s))) {
	case ImageSize1K:
		return ImageSize1K, nil
	case ImageSize2K:
		return ImageSize2K, nil
	case ImageSize4K:
		return ImageSize4K, nil
	}
	return "", fmt.Errorf("unsupported image size %q", s)
}

// Normalize fills zero values with defaults and validates the rest.
func (s Settings) Normalize() (Settings, error) {
	def := DefaultSettings()
	out := s
	var err error
	if out.ImageSize == "" {
		out.ImageSize = def.ImageSize
	} else if out.ImageSize, err = ParseImageSize(string(out.ImageSize)); err != nil {
		return s, err
	}
	if out.Language == "" {
		out.Language = def.Language
	} else if out.Language, err = ParseLanguage(string(out.Language)); err != nil {
		return s, err
	}
	if out.Provider == "" {
		out.Provider = def.Provider
	} else if out.Provider, err = ParseProvider(string(out.Provider)); err != nil {
		return s, err
	}
	out.MistralKey = strings.TrimSpace(out.MistralKey)
	return out, nil
}
