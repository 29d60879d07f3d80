package mistral

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/Chronicle/internal/errors"
	"github.com/Corphon/Chronicle/internal/llm"
	"github.com/Corphon/Chronicle/internal/models"
	"github.com/Corphon/Chronicle/internal/retry"
)

func TestMissingKeyIsPrecondition(t *testing.T) {
	_, err := llm.GetProvider(ProviderName, map[string]string{llm.ConfigAPIKey: "  "})
	require.Error(t, err)
	assert.True(t, apperrors.IsPreconditionError(err))
}

func TestCompleteStory(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"narrative\":\"x\"}"}}]}`))
	}))
	defer srv.Close()

	p, err := llm.GetProvider(ProviderName, map[string]string{
		llm.ConfigAPIKey:  "sk-test",
		llm.ConfigBaseURL: srv.URL,
	})
	require.NoError(t, err)

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

	assert.Equal(t, DefaultModel, captured.Model)
	assert.Equal(t, "json_object", captured.ResponseFormat["type"])
	assert.InDelta(t, 0.7, captured.Temperature, 1e-9)

	require.Len(t, captured.Messages, 4)
	system := captured.Messages[0]
	assert.Equal(t, "system", system.Role)
	assert.True(t, strings.HasPrefix(system.Content, "be a DM\n\nIMPORTANT: You must output a valid JSON object matching this schema: "))
	assert.Contains(t, system.Content, `"suggestedActions"`)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "assistant", captured.Messages[2].Role)
	assert.Equal(t, message{Role: "user", Content: "open the chest"}, captured.Messages[3])
}

func TestCompleteStoryOverloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"object":"error","message":"Service tier capacity exceeded","type":"service_tier_capacity_exceeded"}`))
	}))
	defer srv.Close()

	p, err := llm.GetProvider(ProviderName, map[string]string{llm.ConfigAPIKey: "k", llm.ConfigBaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.CompleteStory(context.Background(), llm.StoryRequest{Input: "hi"})
	require.Error(t, err)
	assert.True(t, retry.IsThrottling(err))
	assert.Contains(t, err.Error(), "Service tier capacity exceeded")
}
