package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/Chronicle/internal/llm"
	"github.com/Corphon/Chronicle/internal/models"
	"github.com/Corphon/Chronicle/internal/retry"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := llm.GetProvider(ProviderName, map[string]string{
		llm.ConfigAPIKey:  "test-key",
		llm.ConfigBaseURL: srv.URL + "/",
	})
	require.NoError(t, err)
	return p.(*Provider)
}

func TestInitializeRequiresKey(t *testing.T) {
	_, err := llm.GetProvider(ProviderName, map[string]string{})
	assert.Error(t, err)
}

func TestCompleteStoryRequestShape(t *testing.T) {
	var captured generateRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-3-pro-preview:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"narrative\":"},{"text":"\"x\"}"}]}}]}`))
	})

	text, err := p.CompleteStory(context.Background(), llm.StoryRequest{
		SystemInstruction: "be a DM",
		History: []models.Turn{
			{Role: models.RoleUser, Text: "start"},
			{Role: models.RoleModel, Text: "you wake"},
		},
		Input: "open the chest",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"narrative":"x"}`, text)

	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "be a DM", captured.SystemInstruction.Parts[0].Text)
	require.Len(t, captured.Contents, 3)
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "model", captured.Contents[1].Role)
	assert.Equal(t, "open the chest", captured.Contents[2].Parts[0].Text)
	assert.Equal(t, "application/json", captured.GenerationConfig["responseMimeType"])
	assert.Contains(t, captured.GenerationConfig, "responseSchema")
}

func TestCompleteStoryAPIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"Please retry in 2s.","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := p.CompleteStory(context.Background(), llm.StoryRequest{Input: "hi"})
	require.Error(t, err)

	var apiErr *llm.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.StatusCode)
	assert.True(t, retry.IsThrottling(err))
}

func TestGenerateImage(t *testing.T) {
	var captured generateRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-3-pro-image-preview:generateContent", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"AAAA"}}]}}]}`))
	})

	img, err := p.GenerateImage(context.Background(), llm.ImageRequest{
		Model:       "gemini-3-pro-image-preview",
		Prompt:      "a crypt",
		ImageSize:   "2K",
		AspectRatio: "16:9",
	})
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "AAAA", img.Data)
	assert.Equal(t, "image/png", img.MIMEType)

	cfg := captured.GenerationConfig["imageConfig"].(map[string]interface{})
	assert.Equal(t, "2K", cfg["imageSize"])
	assert.Equal(t, "16:9", cfg["aspectRatio"])
	assert.Equal(t, "a crypt", captured.Contents[0].Parts[0].Text)
}

func TestGenerateImageWithoutInlineData(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"no picture today"}]}}]}`))
	})

	img, err := p.GenerateImage(context.Background(), llm.ImageRequest{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.Nil(t, img)
}
