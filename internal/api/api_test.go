package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/Chronicle/internal/llm"
	"github.com/Corphon/Chronicle/internal/models"
	"github.com/Corphon/Chronicle/internal/retry"
	"github.com/Corphon/Chronicle/internal/services"
	"github.com/Corphon/Chronicle/internal/storage"
	"github.com/Corphon/Chronicle/internal/utils"
)

const turnJSON = `{
  "narrative": "You stand in a dusty crypt.",
  "visualDescription": "A dusty crypt",
  "inventory": ["rusty key"],
  "currentQuest": "Find the gold coin",
  "locationName": "Dusty Crypt",
  "suggestedActions": ["Open the chest"],
  "activeCharacters": []
}`

// gatedStory returns turnJSON, optionally waiting on gate first.
type gatedStory struct {
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedStory) GetName() string                    { return "gated" }
func (g *gatedStory) Initialize(map[string]string) error { return nil }
func (g *gatedStory) CompleteStory(context.Context, llm.StoryRequest) (string, error) {
	if g.gate != nil {
		g.entered <- struct{}{}
		<-g.gate
	}
	return turnJSON, nil
}

type noImages struct{}

func (noImages) GenerateImage(context.Context, llm.ImageRequest) (*llm.ImageResult, error) {
	return nil, nil
}

type fixture struct {
	router *gin.Engine
	story  *gatedStory
	hub    *Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fs, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	metrics := utils.NewMetrics()
	story := &gatedStory{}
	noWait := retry.WithSleeper(func(context.Context, time.Duration) error { return nil })

	settings := services.NewSettingsService(fs, "")
	factory := func(models.ProviderName, string) (llm.StoryProvider, error) { return story, nil }
	hub := NewHub()
	game := services.NewGameService(
		services.NewStoryService(factory, retry.DefaultPolicy(), metrics, noWait),
		services.NewImageService(noImages{}, retry.DefaultPolicy(), metrics, noWait),
		settings,
		metrics,
		services.WithEventSink(hub),
		services.WithSnapshotStore(storage.NewFileSnapshotStore(fs)),
	)

	router := SetupRouter(RouterConfig{
		Game:           game,
		Settings:       settings,
		Hub:            hub,
		Metrics:        metrics,
		MetricsEnabled: true,
		DebugMode:      true,
		Version:        "test",
	})
	return &fixture{router: router, story: story, hub: hub}
}

func (f *fixture) do(method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var envelope map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	return rec, envelope
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, env["success"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGameFlow(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(http.MethodPost, "/api/game/action", `{"text":"look"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, env["success"])

	rec, env = f.do(http.MethodPost, "/api/game/start", `{"name":"Ada","class":"rogue"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := env["data"].(map[string]interface{})
	state := data["gameState"].(map[string]interface{})
	assert.Equal(t, true, state["gameStarted"])
	assert.Equal(t, true, data["hasSave"])

	rec, _ = f.do(http.MethodPost, "/api/game/action", `{"text":"open the chest"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(http.MethodGet, "/api/map", "")
	require.Equal(t, http.StatusOK, rec.Code)
	nodes := env["data"].(map[string]interface{})["nodes"].([]interface{})
	assert.Len(t, nodes, 1)

	rec, _ = f.do(http.MethodGet, "/api/map.svg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "image/svg+xml")
	assert.Contains(t, rec.Body.String(), "Dusty Crypt")

	rec, _ = f.do(http.MethodDelete, "/api/game", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(http.MethodPost, "/api/game/load", "")
	require.Equal(t, http.StatusOK, rec.Code)
	state = env["data"].(map[string]interface{})["gameState"].(map[string]interface{})
	assert.Equal(t, "Find the gold coin", state["currentQuest"])
}

func TestActionWhileBusyReturnsConflict(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(http.MethodPost, "/api/game/start", "")
	require.Equal(t, http.StatusOK, rec.Code)

	f.story.gate = make(chan struct{})
	f.story.entered = make(chan struct{}, 1)
	done := make(chan int, 1)
	go func() {
		rec, _ := f.do(http.MethodPost, "/api/game/action", `{"text":"open the chest"}`)
		done <- rec.Code
	}()
	<-f.story.entered

	rec, env := f.do(http.MethodPost, "/api/game/action", `{"text":"run"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TURN_IN_PROGRESS", env["error"].(map[string]interface{})["code"])

	close(f.story.gate)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestSettingsEndpoints(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(http.MethodPut, "/api/settings", `{"language":"ru","mistralKey":"sk-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := env["data"].(map[string]interface{})
	assert.Equal(t, "ru", data["language"])
	assert.Equal(t, true, data["hasMistralKey"])
	assert.NotContains(t, rec.Body.String(), "sk-1")

	rec, env = f.do(http.MethodPut, "/api/settings", `{"imageSize":"16K"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env["error"].(map[string]interface{})["code"])

	rec, env = f.do(http.MethodGet, "/api/i18n", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ru", env["data"].(map[string]interface{})["language"])
}

func TestStartWithoutMistralKeyIsPreconditionFailed(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(http.MethodPut, "/api/settings", `{"provider":"mistral"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := f.do(http.MethodPost, "/api/game/start", "")
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "Please enter your Mistral API Key in Settings", env["error"].(map[string]interface{})["message"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodGet, "/api/health", "")
	rec, _ := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chronicle_api_requests_total")
}

func TestWebSocketReceivesTurnEvents(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/game", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/game/start", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first services.GameEvent
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, services.EventTurnStarted, first.Type)

	var second services.GameEvent
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, services.EventTurnCompleted, second.Type)
	assert.Equal(t, "Dusty Crypt", second.Data["location"])
}
