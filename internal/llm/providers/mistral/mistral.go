// internal/llm/providers/mistral/mistral.go
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/Corphon/Chronicle/internal/errors"
	"github.com/Corphon/Chronicle/internal/llm"
	"github.com/Corphon/Chronicle/internal/models"
)

const (
	ProviderName   = "mistral"
	DefaultBaseURL = "https://api.mistral.ai"
	DefaultModel   = "mistral-large-latest"
	temperature    = 0.7
)

// schemaNotice is appended to the system prompt since the JSON-object mode
// has no schema parameter.
const schemaNotice = "\n\nIMPORTANT: You must output a valid JSON object matching this schema: "

func init() {
	llm.Register(ProviderName, func() llm.StoryProvider {
		return &Provider{
			baseURL:      DefaultBaseURL,
			defaultModel: DefaultModel,
		}
	})
}

// Provider is the OpenAI-style chat completions backend.
type Provider struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	defaultModel string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []message         `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Initialize fails with a precondition error when no key is configured, so
// no request is ever sent without one.
func (p *Provider) Initialize(config map[string]string) error {
	apiKey := strings.TrimSpace(config[llm.ConfigAPIKey])
	if apiKey == "" {
		return apperrors.NewPreconditionError("Mistral API Key is required.", nil)
	}

	p.apiKey = apiKey
	p.client = &http.Client{}

	if model, exists := config[llm.ConfigDefaultModel]; exists && model != "" {
		p.defaultModel = model
	}
	if baseURL, exists := config[llm.ConfigBaseURL]; exists && baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
	return nil
}

func (p *Provider) GetName() string {
	return ProviderName
}

// chatRole maps the session's "model" role onto "assistant".
func chatRole(role models.Role) string {
	if role == models.RoleModel {
		return "assistant"
	}
	return "user"
}

// buildMessages converts one story request into chat messages.
func buildMessages(req llm.StoryRequest) []message {
	messages := make([]message, 0, len(req.History)+2)
	messages = append(messages, message{
		Role:    "system",
		Content: req.SystemInstruction + schemaNotice + llm.SchemaJSON(),
	})
	for _, turn := range req.History {
		messages = append(messages, message{Role: chatRole(turn.Role), Content: turn.Text})
	}
	return append(messages, message{Role: "user", Content: req.Input})
}

func (p *Provider) CompleteStory(ctx context.Context, req llm.StoryRequest) (string, error) {
	body := chatRequest{
		Model:          p.defaultModel,
		Messages:       buildMessages(req),
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    temperature,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(httpResp.Body)
		return "", llm.NewAPIError(ProviderName, httpResp.StatusCode, errBody)
	}

	var response chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode mistral response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return response.Choices[0].Message.Content, nil
}
