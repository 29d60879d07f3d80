package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/Chronicle/internal/errors"
	"github.com/Corphon/Chronicle/internal/models"
	"github.com/Corphon/Chronicle/internal/retry"
)

const crypt = `{
  "narrative": "The lid creaks open.",
  "visualDescription": "A dusty crypt lit by a single torch",
  "inventory": ["rusty key", "gold coin"],
  "currentQuest": "Find the gold coin",
  "locationName": "Dusty Crypt",
  "suggestedActions": ["Leave", "Search", "Rest"],
  "activeCharacters": [{"name": "Ghoul", "description": "Hungry"}]
}`

func TestDecodeStoryState(t *testing.T) {
	state, err := DecodeStoryState(crypt)
	require.NoError(t, err)
	assert.Equal(t, []string{"rusty key", "gold coin"}, state.Inventory)
	assert.Equal(t, "Find the gold coin", state.CurrentQuest)
	assert.Equal(t, "Dusty Crypt", state.LocationName)
	assert.Equal(t, []models.NPC{{Name: "Ghoul", Description: "Hungry"}}, state.ActiveCharacters)
}

func TestDecodeStoryStateFenced(t *testing.T) {
	state, err := DecodeStoryState("```json\n" + crypt + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "Dusty Crypt", state.LocationName)
}

func TestDecodeStoryStateRejects(t *testing.T) {
	var missing map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(crypt), &missing))
	delete(missing, "locationName")
	noLocation, _ := json.Marshal(missing)

	var mistyped map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(crypt), &mistyped))
	mistyped["inventory"] = "rusty key"
	badInventory, _ := json.Marshal(mistyped)

	cases := map[string]string{
		"empty":         "   ",
		"not json":      "The lid creaks open.",
		"array":         "[]",
		"missing field": string(noLocation),
		"wrong type":    string(badInventory),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeStoryState(payload)
			require.Error(t, err)
			assert.True(t, apperrors.IsParseError(err))
			assert.False(t, retry.IsThrottling(err), "parse errors must not look retryable")
		})
	}
}

func TestGeminiSchemaListsEveryField(t *testing.T) {
	schema := GeminiSchema()
	props := schema["properties"].(map[string]interface{})
	for _, name := range StoryFieldNames() {
		assert.Contains(t, props, name)
	}
	assert.Equal(t, StoryFieldNames(), schema["required"])
	assert.Contains(t, SchemaJSON(), `"activeCharacters"`)
}

func TestBuildSystemInstruction(t *testing.T) {
	en := BuildSystemInstruction(nil, "", models.LanguageEnglish)
	assert.Contains(t, en, "Current Inventory: [].")
	assert.Contains(t, en, "OUTPUT RULE: All content must be in English.")
	assert.True(t, strings.HasPrefix(en, "You are an advanced Dungeon Master"))

	ru := BuildSystemInstruction([]string{"torch"}, "Escape", models.LanguageRussian)
	assert.Contains(t, ru, `Current Inventory: ["torch"].`)
	assert.Contains(t, ru, `Current Quest: "Escape".`)
	assert.Contains(t, ru, "MUST be in Russian")
	assert.Contains(t, ru, "'visualDescription' MUST be in English")
	assert.Contains(t, ru, "9. OUTPUT RULE")
}

func TestAPIError(t *testing.T) {
	google := NewAPIError("gemini", 429, []byte(`{"error":{"code":429,"message":"Quota exceeded. Please retry in 16.68s.","status":"RESOURCE_EXHAUSTED"}}`))
	assert.Equal(t, "RESOURCE_EXHAUSTED", google.Status)
	assert.Contains(t, google.Error(), "retry in 16.68s")
	assert.True(t, retry.IsThrottling(google))

	hint, ok := retry.ParseRetryHint(google.Error())
	require.True(t, ok)
	assert.Equal(t, int64(16680), hint.Milliseconds())

	flat := NewAPIError("mistral", 401, []byte(`{"message":"Unauthorized","type":"invalid_api_key"}`))
	assert.Equal(t, "Unauthorized", flat.Message)
	assert.False(t, retry.IsThrottling(flat))

	raw := NewAPIError("mistral", 503, []byte("upstream connect error"))
	assert.Equal(t, "upstream connect error", raw.Message)
	assert.True(t, retry.IsThrottling(raw))

	forbidden := NewAPIError("gemini", 403, []byte(`{"error":{"message":"denied","status":"PERMISSION_DENIED"}}`))
	assert.True(t, retry.IsPermissionDenied(forbidden))
}

type stubProvider struct{ key string }

func (s *stubProvider) GetName() string { return "stub" }
func (s *stubProvider) Initialize(config map[string]string) error {
	if config[ConfigAPIKey] == "" {
		return errors.New("missing key")
	}
	s.key = config[ConfigAPIKey]
	return nil
}
func (s *stubProvider) CompleteStory(context.Context, StoryRequest) (string, error) {
	return crypt, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", func() StoryProvider { return &stubProvider{} })
	r.Register("alpha", func() StoryProvider { return &stubProvider{} })

	assert.Equal(t, []string{"alpha", "stub"}, r.GetAvailableProviders())

	_, err := r.GetProvider("missing", nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = r.GetProvider("stub", map[string]string{})
	assert.Error(t, err)

	p, err := r.GetProvider("stub", map[string]string{ConfigAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "k", p.(*stubProvider).key)
}
