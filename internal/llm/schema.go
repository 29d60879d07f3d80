// internal/llm/schema.go
package llm

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mitchellh/mapstructure"

	apperrors "github.com/Corphon/Chronicle/internal/errors"
	"github.com/Corphon/Chronicle/internal/models"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindStringList
	kindCharacterList
)

type storyField struct {
	name        string
	kind        fieldKind
	description string
}

// storyFields drives both the wire schema sent to providers and the local
// validator. Order is the order fields are presented to the model.
var storyFields = []storyField{
	{"narrative", kindString, "The next segment of the story. Engaging, descriptive, and reactive to user choice."},
	{"visualDescription", kindString, "A concise English visual description of the current scene for an image generator. Focus on environment, lighting, and key characters. If the protagonist is visible, their appearance must match the established character description."},
	{"inventory", kindStringList, "The current list of items in the player's inventory. Update based on story events (add/remove)."},
	{"currentQuest", kindString, "The current main objective or quest name."},
	{"locationName", kindString, "The specific name of the player's current location (e.g., 'The Rusty Anchor Inn', 'Darkwood Forest', 'King's Throne Room')."},
	{"suggestedActions", kindStringList, "3 short, punchy suggested actions the user might take."},
	{"activeCharacters", kindCharacterList, "Non-player characters present in the current scene, each with a name and a short description."},
}

// StoryFieldNames lists the required story state fields in schema order.
func StoryFieldNames() []string {
	names := make([]string, len(storyFields))
	for i, f := range storyFields {
		names[i] = f.name
	}
	return names
}

// GeminiSchema returns the response schema in the Gemini responseSchema
// dialect (upper-case type names).
func GeminiSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(storyFields))
	for _, f := range storyFields {
		var prop map[string]interface{}
		switch f.kind {
		case kindStringList:
			prop = map[string]interface{}{
				"type":  "ARRAY",
				"items": map[string]interface{}{"type": "STRING"},
			}
		case kindCharacterList:
			prop = map[string]interface{}{
				"type": "ARRAY",
				"items": map[string]interface{}{
					"type": "OBJECT",
					"properties": map[string]interface{}{
						"name":        map[string]interface{}{"type": "STRING"},
						"description": map[string]interface{}{"type": "STRING"},
					},
					"required": []string{"name", "description"},
				},
			}
		default:
			prop = map[string]interface{}{"type": "STRING"}
		}
		prop["description"] = f.description
		properties[f.name] = prop
	}

	return map[string]interface{}{
		"type":       "OBJECT",
		"properties": properties,
		"required":   StoryFieldNames(),
	}
}

// SchemaJSON is GeminiSchema serialized, for providers that only accept the
// schema as prompt text.
func SchemaJSON() string {
	data, err := json.Marshal(GeminiSchema())
	if err != nil {
		return "{}"
	}
	return string(data)
}

var (
	validatorOnce  sync.Once
	storyValidator *openapi3.Schema
)

func validator() *openapi3.Schema {
	validatorOnce.Do(func() {
		npc := openapi3.NewObjectSchema().
			WithProperty("name", openapi3.NewStringSchema()).
			WithProperty("description", openapi3.NewStringSchema())
		npc.Required = []string{"name", "description"}

		schema := openapi3.NewObjectSchema()
		for _, f := range storyFields {
			var prop *openapi3.Schema
			switch f.kind {
			case kindStringList:
				prop = openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
			case kindCharacterList:
				prop = openapi3.NewArraySchema().WithItems(npc)
			default:
				prop = openapi3.NewStringSchema()
			}
			prop.Description = f.description
			schema.WithProperty(f.name, prop)
		}
		schema.Required = StoryFieldNames()
		storyValidator = schema
	})
	return storyValidator
}

// stripFence removes a surrounding ```json ... ``` block some models emit
// despite being asked for bare JSON.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// DecodeStoryState parses and validates a provider payload. Every failure
// is a parse error.
func DecodeStoryState(text string) (*models.StoryState, error) {
	text = stripFence(text)
	if text == "" {
		return nil, apperrors.NewParseError("empty response from story provider", nil)
	}

	var raw interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, apperrors.NewParseError("story response is not valid JSON", err)
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, apperrors.NewParseError("story response is not a JSON object", nil)
	}
	if err := validator().VisitJSON(obj); err != nil {
		return nil, apperrors.NewParseError("story response does not match schema", err)
	}

	var state models.StoryState
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  &state,
	})
	if err != nil {
		return nil, apperrors.NewParseError("story decoder setup failed", err)
	}
	if err := decoder.Decode(obj); err != nil {
		return nil, apperrors.NewParseError("story response could not be decoded", err)
	}

	if state.Inventory == nil {
		state.Inventory = []string{}
	}
	if state.SuggestedActions == nil {
		state.SuggestedActions = []string{}
	}
	if state.ActiveCharacters == nil {
		state.ActiveCharacters = []models.NPC{}
	}
	return &state, nil
}
