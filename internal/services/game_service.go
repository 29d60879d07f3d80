// internal/services/game_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Corphon/Chronicle/internal/errors"
	"github.com/Corphon/Chronicle/internal/i18n"
	"github.com/Corphon/Chronicle/internal/mapgen"
	"github.com/Corphon/Chronicle/internal/models"
	"github.com/Corphon/Chronicle/internal/retry"
	"github.com/Corphon/Chronicle/internal/storage"
	"github.com/Corphon/Chronicle/internal/utils"
)

// 回合事件类型
const (
	EventTurnStarted   = "turn_started"
	EventRetryWait     = "retry_wait"
	EventTurnCompleted = "turn_completed"
	EventTurnFailed    = "turn_failed"
)

const (
	DefaultCharacterName  = "Traveler"
	DefaultCharacterClass = "warrior"

	// messages longer than this are replaced by the generic failure text
	maxRawErrorLength = 100
)

// GameEvent is pushed to live clients while a turn runs.
type GameEvent struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// EventSink receives turn events. Publish must not block.
type EventSink interface {
	Publish(event GameEvent)
}

// GameService owns the single session. At most one turn is in flight; a
// second request while one runs fails with a busy error.
type GameService struct {
	mu        sync.Mutex
	state     *models.GameState
	suggested []string

	story    *StoryService
	images   *ImageService
	settings SettingsSource
	store    storage.SnapshotStore
	events   EventSink
	metrics  *utils.Metrics
	now      func() time.Time
}

// GameOption configures a GameService.
type GameOption func(*GameService)

// WithEventSink publishes turn events to sink.
func WithEventSink(sink EventSink) GameOption {
	return func(g *GameService) { g.events = sink }
}

// WithSnapshotStore enables autosave after every successful turn.
func WithSnapshotStore(store storage.SnapshotStore) GameOption {
	return func(g *GameService) { g.store = store }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) GameOption {
	return func(g *GameService) { g.now = now }
}

// NewGameService 创建游戏服务
func NewGameService(story *StoryService, images *ImageService, settings SettingsSource, metrics *utils.Metrics, opts ...GameOption) *GameService {
	if metrics == nil {
		metrics = utils.GetMetrics()
	}
	g := &GameService{
		state:    models.NewGameState(),
		story:    story,
		images:   images,
		settings: settings,
		metrics:  metrics,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.suggested = g.initialActions()
	return g
}

func (g *GameService) initialActions() []string {
	return append([]string{}, i18n.Lookup(g.settings.Get().Language).InitialActions...)
}

func (g *GameService) publish(eventType string, data map[string]interface{}) {
	if g.events == nil {
		return
	}
	g.events.Publish(GameEvent{Type: eventType, Data: data, Timestamp: g.now().UnixMilli()})
}

func (g *GameService) retryNotice() retry.Option {
	return retry.WithOnRetry(func(ev retry.RetryEvent) {
		g.publish(EventRetryWait, map[string]interface{}{
			"operation":         ev.Operation,
			"delayMs":           ev.Delay.Milliseconds(),
			"attemptsRemaining": ev.AttemptsRemaining,
		})
	})
}

func (g *GameService) turnID(offset int64) string {
	return strconv.FormatInt(g.now().UnixMilli()+offset, 10)
}

// State returns a copy of the session.
func (g *GameService) State() *models.GameState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Clone()
}

// SuggestedActions returns the current action suggestions.
func (g *GameService) SuggestedActions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string{}, g.suggested...)
}

// StartGame replaces the session with a new adventure for ch. On failure
// the previous session is kept.
func (g *GameService) StartGame(ctx context.Context, ch models.Character) (*models.GameState, error) {
	settings := g.settings.Get()
	catalog := i18n.Lookup(settings.Language)

	ch.Name = strings.TrimSpace(ch.Name)
	if ch.Name == "" {
		ch.Name = DefaultCharacterName
	}
	if strings.TrimSpace(ch.Class) == "" {
		ch.Class = DefaultCharacterClass
	}
	ch.Class = catalog.ClassName(ch.Class)
	ch.Appearance = strings.TrimSpace(ch.Appearance)

	if settings.Provider == models.ProviderMistral && settings.MistralKey == "" {
		return nil, apperrors.NewPreconditionError(catalog.MissingMistralKey, ErrMissingMistralKey)
	}

	g.mu.Lock()
	if g.state.IsGenerating {
		g.mu.Unlock()
		return nil, apperrors.NewBusyError("a turn is already in progress")
	}
	previous, previousSuggested := g.state, g.suggested
	g.state = models.NewGameState()
	g.state.GameStarted = true
	g.state.IsGenerating = true
	g.state.Character = &ch
	g.suggested = []string{}
	g.mu.Unlock()

	g.publish(EventTurnStarted, map[string]interface{}{"kind": "start"})

	story, err := g.story.ProduceStoryState(ctx, StoryInput{
		Input:        catalog.StartPromptFor(ch),
		Inventory:    []string{},
		Language:     settings.Language,
		Provider:     settings.Provider,
		SecondaryKey: settings.MistralKey,
	}, g.retryNotice())
	if err != nil {
		g.mu.Lock()
		g.state, g.suggested = previous, previousSuggested
		g.mu.Unlock()
		g.fail(err)
		return nil, err
	}

	image, _ := g.images.ProduceSceneImage(ctx, story.VisualDescription, settings.ImageSize, g.retryNotice())

	g.mu.Lock()
	g.state.History = []models.Turn{g.modelTurn(story, image)}
	g.apply(story)
	g.state.LocationHistory = mapgen.AppendLocation([]string{}, story.LocationName)
	snapshot := g.snapshotLocked()
	result := g.state.Clone()
	g.mu.Unlock()

	g.complete(ctx, snapshot)
	return result, nil
}

// TakeAction runs one turn for the player's action. On a story failure the
// user turn is removed again and the prior state is kept.
func (g *GameService) TakeAction(ctx context.Context, text string) (*models.GameState, error) {
	action := strings.TrimSpace(text)
	if action == "" {
		return nil, apperrors.NewValidationError("action must not be empty", nil)
	}
	settings := g.settings.Get()

	g.mu.Lock()
	if !g.state.GameStarted {
		g.mu.Unlock()
		return nil, apperrors.NewValidationError("no game in progress", nil)
	}
	if g.state.IsGenerating {
		g.mu.Unlock()
		return nil, apperrors.NewBusyError("a turn is already in progress")
	}

	prior := g.state.Clone()
	priorSuggested := g.suggested
	g.state.History = append(g.state.History, models.Turn{
		ID:        g.turnID(0),
		Role:      models.RoleUser,
		Text:      action,
		Timestamp: g.now(),
	})
	g.state.IsGenerating = true
	g.suggested = []string{}
	g.mu.Unlock()

	g.publish(EventTurnStarted, map[string]interface{}{"kind": "action", "text": action})

	story, err := g.story.ProduceStoryState(ctx, StoryInput{
		Input:        action,
		History:      prior.History,
		Inventory:    prior.Inventory,
		Quest:        prior.CurrentQuest,
		Language:     settings.Language,
		Provider:     settings.Provider,
		SecondaryKey: settings.MistralKey,
	}, g.retryNotice())
	if err != nil {
		g.mu.Lock()
		g.state, g.suggested = prior, priorSuggested
		g.mu.Unlock()
		g.fail(err)
		return nil, err
	}

	image, _ := g.images.ProduceSceneImage(ctx, story.VisualDescription, settings.ImageSize, g.retryNotice())

	g.mu.Lock()
	g.state.History = append(g.state.History, g.modelTurn(story, image))
	g.apply(story)
	g.state.LocationHistory = mapgen.AppendLocation(g.state.LocationHistory, story.LocationName)
	snapshot := g.snapshotLocked()
	result := g.state.Clone()
	g.mu.Unlock()

	g.complete(ctx, snapshot)
	return result, nil
}

func (g *GameService) modelTurn(story *models.StoryState, image string) models.Turn {
	return models.Turn{
		ID:          g.turnID(1),
		Role:        models.RoleModel,
		Text:        story.Narrative,
		ImageURL:    image,
		ImagePrompt: story.VisualDescription,
		Timestamp:   g.now(),
	}
}

// apply merges a story state into the session. Caller holds g.mu.
func (g *GameService) apply(story *models.StoryState) {
	g.state.Inventory = append([]string{}, story.Inventory...)
	g.state.CurrentQuest = story.CurrentQuest
	g.state.ActiveCharacters = append([]models.NPC{}, story.ActiveCharacters...)
	g.state.IsGenerating = false
	g.suggested = append([]string{}, story.SuggestedActions...)
}

func (g *GameService) complete(ctx context.Context, snapshot models.Snapshot) {
	g.metrics.RecordTurn("ok")
	g.autosave(ctx, snapshot)
	g.publish(EventTurnCompleted, map[string]interface{}{
		"location": lastLocation(snapshot.GameState.LocationHistory),
	})
}

func (g *GameService) fail(err error) {
	result := string(apperrors.TypeOf(err))
	if result == "" {
		result = "error"
	}
	g.metrics.RecordTurn(result)
	g.publish(EventTurnFailed, map[string]interface{}{"message": g.UserMessage(err)})
}

func lastLocation(history []string) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1]
}

// snapshotLocked builds the autosave blob. Caller holds g.mu.
func (g *GameService) snapshotLocked() models.Snapshot {
	state := g.state.Clone()
	state.IsGenerating = false
	return models.Snapshot{
		GameState:        state,
		SuggestedActions: append([]string{}, g.suggested...),
		Timestamp:        g.now().UnixMilli(),
	}
}

// Snapshot returns the current save blob.
func (g *GameService) Snapshot() models.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *GameService) autosave(ctx context.Context, snapshot models.Snapshot) {
	if g.store == nil || !snapshot.GameState.GameStarted || len(snapshot.GameState.History) == 0 {
		return
	}
	data, err := json.Marshal(snapshot)
	if err == nil {
		err = g.store.SaveSnapshot(ctx, data)
	}
	if err != nil {
		utils.GetLogger().Warn("autosave failed", map[string]interface{}{"error": err.Error()})
	}
}

// Restore replaces the session with a saved snapshot. The blob is only
// shape-checked.
func (g *GameService) Restore(snapshot models.Snapshot) (*models.GameState, error) {
	if snapshot.GameState == nil || snapshot.SuggestedActions == nil {
		return nil, apperrors.NewValidationError("saved game is missing gameState or suggestedActions", nil)
	}

	state := snapshot.GameState.Clone()
	state.IsGenerating = false
	if state.Inventory == nil {
		state.Inventory = []string{}
	}
	if state.History == nil {
		state.History = []models.Turn{}
	}
	if state.LocationHistory == nil {
		state.LocationHistory = []string{}
	}
	if state.ActiveCharacters == nil {
		state.ActiveCharacters = []models.NPC{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.IsGenerating {
		return nil, apperrors.NewBusyError("a turn is already in progress")
	}
	g.state = state
	g.suggested = append([]string{}, snapshot.SuggestedActions...)
	return g.state.Clone(), nil
}

// HasSave reports whether the store holds an autosave.
func (g *GameService) HasSave(ctx context.Context) bool {
	if g.store == nil {
		return false
	}
	_, err := g.store.LoadSnapshot(ctx)
	return err == nil
}

// LoadSaved restores the autosave from the store.
func (g *GameService) LoadSaved(ctx context.Context) (*models.GameState, error) {
	if g.store == nil {
		return nil, apperrors.NewNotFoundError("no saved game", nil)
	}
	data, err := g.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, apperrors.NewValidationError("Corrupted save file found.", err)
	}
	return g.Restore(snapshot)
}

// Reset returns to an empty, unstarted session. The autosave is kept.
func (g *GameService) Reset() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.IsGenerating {
		return apperrors.NewBusyError("a turn is already in progress")
	}
	g.state = models.NewGameState()
	g.suggested = g.initialActions()
	return nil
}

// UserMessage renders err for the player in the current language.
func (g *GameService) UserMessage(err error) string {
	return UserMessage(err, g.settings.Get().Language)
}

// UserMessage maps an error to the text shown next to the input box.
func UserMessage(err error, lang models.Language) string {
	if err == nil {
		return ""
	}
	catalog := i18n.Lookup(lang)
	switch {
	case apperrors.IsThrottledError(err) || retry.IsThrottling(err):
		return catalog.RateLimit
	case errors.Is(err, ErrMissingMistralKey):
		return catalog.MissingMistralKey
	case apperrors.IsPreconditionError(err):
		return catalog.ErrorKey
	}

	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if len([]rune(msg)) < maxRawErrorLength {
		return msg
	}
	return catalog.ErrorGen
}
