// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/Chronicle/internal/api"
	"github.com/Corphon/Chronicle/internal/config"
	"github.com/Corphon/Chronicle/internal/i18n"
	"github.com/Corphon/Chronicle/internal/llm"
	"github.com/Corphon/Chronicle/internal/services"
	"github.com/Corphon/Chronicle/internal/storage"
	"github.com/Corphon/Chronicle/internal/utils"

	// 注册故事提供者
	_ "github.com/Corphon/Chronicle/internal/llm/providers/gemini"
	_ "github.com/Corphon/Chronicle/internal/llm/providers/mistral"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

const shutdownTimeout = 30 * time.Second

// App 应用程序实例
type App struct {
	config   *config.Config
	metrics  *utils.Metrics
	store    storage.SnapshotStore
	settings *services.SettingsService
	game     *services.GameService
	hub      *api.Hub
	router   *gin.Engine

	closeOnce sync.Once
	closers   []func() error
}

// New wires every service for cfg. The caller must call Cleanup.
func New(cfg *config.Config) (*App, error) {
	a := &App{config: cfg}

	if err := a.initLogger(); err != nil {
		return nil, err
	}
	if err := i18n.Load(); err != nil {
		a.Cleanup()
		return nil, fmt.Errorf("load message catalogs: %w", err)
	}

	fs, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		a.Cleanup()
		return nil, fmt.Errorf("open data directory: %w", err)
	}
	if a.store, err = a.openSnapshotStore(fs); err != nil {
		a.Cleanup()
		return nil, err
	}

	a.metrics = utils.NewMetrics()
	a.settings = services.NewSettingsService(fs, cfg.SettingsSecret)

	policy := cfg.RetryPolicy()
	story := services.NewStoryService(services.RegistryProviders(cfg), policy, a.metrics)
	images := services.NewImageService(a.imageProvider(), policy, a.metrics)

	a.hub = api.NewHub()
	a.game = services.NewGameService(story, images, a.settings, a.metrics,
		services.WithEventSink(a.hub),
		services.WithSnapshotStore(a.store),
	)

	a.router = api.SetupRouter(api.RouterConfig{
		Game:           a.game,
		Settings:       a.settings,
		Hub:            a.hub,
		Metrics:        a.metrics,
		MetricsEnabled: cfg.MetricsEnabled,
		DebugMode:      cfg.DebugMode,
		Version:        Version,
	})

	utils.GetLogger().Info("application initialized", map[string]interface{}{
		"providers":        llm.ListProviders(),
		"snapshot_backend": cfg.SnapshotBackend,
		"image_generation": cfg.GeminiAPIKey != "",
	})
	return a, nil
}

func (a *App) initLogger() error {
	logger := utils.GetLogger()
	if err := utils.InitLogger(filepath.Join(a.config.LogDir, "chronicle.log")); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.closers = append(a.closers, logger.Close)

	if a.config.DebugMode {
		logger.SetLogLevel(utils.DEBUG)
	} else {
		logger.SetLogLevel(utils.INFO)
	}
	return nil
}

func (a *App) openSnapshotStore(fs *storage.FileStorage) (storage.SnapshotStore, error) {
	if a.config.SnapshotBackend != config.SnapshotBackendRedis {
		return storage.NewFileSnapshotStore(fs), nil
	}

	store := storage.NewRedisSnapshotStore(a.config.RedisAddr, a.config.RedisPassword, a.config.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", a.config.RedisAddr, err)
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

// imageProvider returns the Gemini backend, which also draws scenes, or nil
// when no Gemini key is configured.
func (a *App) imageProvider() llm.ImageProvider {
	if a.config.GeminiAPIKey == "" {
		utils.GetLogger().Warnf("GEMINI_API_KEY not set, scene images disabled")
		return nil
	}
	provider, err := llm.GetProvider("gemini", a.config.GeminiConfig())
	if err != nil {
		utils.GetLogger().Warnf("gemini provider unavailable: %v", err)
		return nil
	}
	images, ok := provider.(llm.ImageProvider)
	if !ok {
		return nil
	}
	return images
}

// Config 返回配置
func (a *App) Config() *config.Config { return a.config }

// Game 返回游戏服务
func (a *App) Game() *services.GameService { return a.game }

// Settings 返回设置服务
func (a *App) Settings() *services.SettingsService { return a.settings }

// SnapshotStore 返回存档存储
func (a *App) SnapshotStore() storage.SnapshotStore { return a.store }

// Router 返回HTTP路由
func (a *App) Router() *gin.Engine { return a.router }

// IsDebugMode 检查是否为调试模式
func (a *App) IsDebugMode() bool { return a.config.DebugMode }

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + a.config.Port,
		Handler: a.router,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.GetLogger().Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.GetLogger().Info("shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}

// Cleanup releases the snapshot store and the log file. Safe to call twice.
func (a *App) Cleanup() {
	a.closeOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				utils.GetLogger().Errorf("cleanup failed: %v", err)
			}
		}
	})
}
