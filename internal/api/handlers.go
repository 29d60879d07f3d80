// internal/api/handlers.go
package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/Chronicle/internal/i18n"
	"github.com/Corphon/Chronicle/internal/llm"
	"github.com/Corphon/Chronicle/internal/mapgen"
	"github.com/Corphon/Chronicle/internal/models"
	"github.com/Corphon/Chronicle/internal/services"
)

// Handler 处理API请求
type Handler struct {
	game     *services.GameService
	settings *services.SettingsService
	hub      *Hub
	response *ResponseHelper
	version  string
}

// NewHandler 创建API处理器
func NewHandler(game *services.GameService, settings *services.SettingsService, hub *Hub, version string) *Handler {
	return &Handler{
		game:     game,
		settings: settings,
		hub:      hub,
		response: NewResponseHelper(),
		version:  version,
	}
}

// ActionRequest 玩家行动请求
type ActionRequest struct {
	Text string `json:"text"`
}

// fail renders err with the localized player-facing message.
func (h *Handler) fail(c *gin.Context, err error) {
	status, code := statusFor(err)
	h.response.Error(c, status, code, h.game.UserMessage(err))
}

// bindOptional decodes a JSON body when one was sent.
func bindOptional(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// turnContext detaches a turn from the HTTP request: once started, a turn
// runs to completion even if the browser goes away.
func turnContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (h *Handler) gamePayload(ctx context.Context, state *models.GameState) gin.H {
	return gin.H{
		"gameState":        state,
		"suggestedActions": h.game.SuggestedActions(),
		"hasSave":          h.game.HasSave(ctx),
	}
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	h.response.Success(c, gin.H{
		"status":    "ok",
		"version":   h.version,
		"providers": llm.ListProviders(),
		"clients":   h.hub.ClientCount(),
	})
}

// GetSettings 获取设置，不返回 Mistral 密钥本身
func (h *Handler) GetSettings(c *gin.Context) {
	h.response.Success(c, services.Public(h.settings.Get()))
}

// UpdateSettings 部分更新设置
func (h *Handler) UpdateSettings(c *gin.Context) {
	var update services.SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.response.BadRequest(c, "invalid settings payload")
		return
	}
	updated, err := h.settings.Update(update)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.response.Success(c, services.Public(updated))
}

// GetCatalog returns the UI strings for ?lang=, Accept-Language, or the
// configured language, in that order.
func (h *Handler) GetCatalog(c *gin.Context) {
	lang := h.settings.Get().Language
	if q := c.Query("lang"); q != "" {
		if parsed, err := models.ParseLanguage(q); err == nil {
			lang = parsed
		}
	} else if accept := c.GetHeader("Accept-Language"); accept != "" {
		lang = i18n.Match(accept)
	}
	h.response.Success(c, gin.H{"language": lang, "messages": i18n.Lookup(lang)})
}

// StartGame 开始新游戏
func (h *Handler) StartGame(c *gin.Context) {
	var character models.Character
	if err := bindOptional(c, &character); err != nil {
		h.response.BadRequest(c, "invalid character payload")
		return
	}
	ctx := turnContext(c)
	state, err := h.game.StartGame(ctx, character)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.response.Success(c, h.gamePayload(ctx, state))
}

// TakeAction 执行玩家行动
func (h *Handler) TakeAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "invalid action payload")
		return
	}
	ctx := turnContext(c)
	state, err := h.game.TakeAction(ctx, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.response.Success(c, h.gamePayload(ctx, state))
}

// GetState 获取当前游戏状态
func (h *Handler) GetState(c *gin.Context) {
	h.response.Success(c, h.gamePayload(c.Request.Context(), h.game.State()))
}

// LoadGame restores the snapshot in the body, or the autosave when the
// body is empty.
func (h *Handler) LoadGame(c *gin.Context) {
	var (
		state *models.GameState
		err   error
	)
	if c.Request.ContentLength > 0 {
		var snapshot models.Snapshot
		if bindErr := c.ShouldBindJSON(&snapshot); bindErr != nil {
			h.response.BadRequest(c, "Corrupted save file found.")
			return
		}
		state, err = h.game.Restore(snapshot)
	} else {
		state, err = h.game.LoadSaved(c.Request.Context())
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.response.Success(c, h.gamePayload(c.Request.Context(), state))
}

// ExportGame 返回当前存档数据
func (h *Handler) ExportGame(c *gin.Context) {
	h.response.Success(c, h.game.Snapshot())
}

// ResetGame 回到未开始状态
func (h *Handler) ResetGame(c *gin.Context) {
	if err := h.game.Reset(); err != nil {
		h.fail(c, err)
		return
	}
	h.response.Success(c, h.gamePayload(c.Request.Context(), h.game.State()))
}

// GetMap 返回地图布局
func (h *Handler) GetMap(c *gin.Context) {
	h.response.Success(c, mapgen.Layout(h.game.State().LocationHistory))
}

// GetMapSVG 返回地图 SVG
func (h *Handler) GetMapSVG(c *gin.Context) {
	svg := mapgen.RenderSVG(h.game.State().LocationHistory)
	c.Data(http.StatusOK, "image/svg+xml; charset=utf-8", []byte(svg))
}
