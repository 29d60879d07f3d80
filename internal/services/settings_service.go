// internal/services/settings_service.go
package services

import (
	"errors"
	"os"
	"sync"

	apperrors "github.com/Corphon/Chronicle/internal/errors"
	"github.com/Corphon/Chronicle/internal/models"
	"github.com/Corphon/Chronicle/internal/storage"
	"github.com/Corphon/Chronicle/internal/utils"
)

const settingsFile = "chronicle_settings_v1.json"

// SettingsSource is the read side the game loop needs.
type SettingsSource interface {
	Get() models.Settings
}

// SettingsUpdate is a partial update; nil fields are left unchanged.
type SettingsUpdate struct {
	ImageSize  *string `json:"imageSize,omitempty"`
	Language   *string `json:"language,omitempty"`
	Provider   *string `json:"provider,omitempty"`
	MistralKey *string `json:"mistralKey,omitempty"`
}

// SettingsService 持久化用户设置，Mistral 密钥在磁盘上加密保存
type SettingsService struct {
	mu       sync.RWMutex
	fs       *storage.FileStorage
	secret   string
	settings models.Settings
}

// NewSettingsService loads saved settings, falling back to defaults when the
// file is missing or unreadable.
func NewSettingsService(fs *storage.FileStorage, secret string) *SettingsService {
	s := &SettingsService{fs: fs, secret: secret, settings: models.DefaultSettings()}
	s.load()
	return s
}

func (s *SettingsService) load() {
	logger := utils.GetLogger()

	var saved models.Settings
	if err := s.fs.LoadJSONFile("", settingsFile, &saved); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("ignoring unreadable settings file", map[string]interface{}{"error": err.Error()})
		}
		return
	}

	key, err := utils.OpenCredential(saved.MistralKey, s.secret)
	if err != nil {
		logger.Warn("cannot unseal stored Mistral key", map[string]interface{}{"error": err.Error()})
		key = ""
	}
	saved.MistralKey = key

	normalized, err := saved.Normalize()
	if err != nil {
		logger.Warn("ignoring invalid settings file", map[string]interface{}{"error": err.Error()})
		return
	}
	s.settings = normalized
}

// Get 返回当前设置
func (s *SettingsService) Get() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update applies a partial update and persists the result.
func (s *SettingsService) Update(update SettingsUpdate) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	if update.ImageSize != nil {
		next.ImageSize = models.ImageSize(*update.ImageSize)
	}
	if update.Language != nil {
		next.Language = models.Language(*update.Language)
	}
	if update.Provider != nil {
		next.Provider = models.ProviderName(*update.Provider)
	}
	if update.MistralKey != nil {
		next.MistralKey = *update.MistralKey
	}

	normalized, err := next.Normalize()
	if err != nil {
		return s.settings, apperrors.NewValidationError(err.Error(), err)
	}

	stored := normalized
	if stored.MistralKey, err = utils.SealCredential(normalized.MistralKey, s.secret); err != nil {
		return s.settings, apperrors.NewProcessingError("failed to seal Mistral key", err)
	}
	if err := s.fs.SaveJSONFile("", settingsFile, stored); err != nil {
		return s.settings, apperrors.NewProcessingError("failed to save settings", err)
	}

	s.settings = normalized
	return normalized, nil
}

// Public hides the Mistral key, reporting only whether one is set.
func Public(s models.Settings) map[string]interface{} {
	return map[string]interface{}{
		"imageSize":     s.ImageSize,
		"language":      s.Language,
		"provider":      s.Provider,
		"hasMistralKey": s.MistralKey != "",
	}
}
