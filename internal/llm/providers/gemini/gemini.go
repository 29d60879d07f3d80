// internal/llm/providers/gemini/gemini.go
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Corphon/Chronicle/internal/llm"
)

const (
	ProviderName      = "gemini"
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultStoryModel = "gemini-3-pro-preview"
)

func init() {
	llm.Register(ProviderName, func() llm.StoryProvider {
		return &Provider{
			baseURL:      DefaultBaseURL,
			defaultModel: DefaultStoryModel,
		}
	})
}

// Provider talks to the Gemini generateContent endpoint. It serves story
// turns with a response schema and scene images through inline data.
type Provider struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	defaultModel string
}

// 请求/响应结构
type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *content               `json:"systemInstruction,omitempty"`
	Contents          []content              `json:"contents"`
	GenerationConfig  map[string]interface{} `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config[llm.ConfigAPIKey]
	if !exists || apiKey == "" {
		return errors.New("gemini API key not provided")
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

// CompleteStory sends the history as a chat and asks for JSON matching the
// story schema.
func (p *Provider) CompleteStory(ctx context.Context, req llm.StoryRequest) (string, error) {
	contents := make([]content, 0, len(req.History)+1)
	for _, turn := range req.History {
		contents = append(contents, content{
			Role:  string(turn.Role),
			Parts: []part{{Text: turn.Text}},
		})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: req.Input}}})

	body := generateRequest{
		Contents: contents,
		GenerationConfig: map[string]interface{}{
			"responseMimeType": "application/json",
			"responseSchema":   llm.GeminiSchema(),
		},
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}

	resp, err := p.generate(ctx, p.defaultModel, body)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	// 提取文本内容
	var text strings.Builder
	for _, pt := range resp.Candidates[0].Content.Parts {
		text.WriteString(pt.Text)
	}
	return text.String(), nil
}

// GenerateImage returns the first inline image of the first candidate, or
// nil when the model answered without one.
func (p *Provider) GenerateImage(ctx context.Context, req llm.ImageRequest) (*llm.ImageResult, error) {
	imageConfig := map[string]interface{}{}
	if req.ImageSize != "" {
		imageConfig["imageSize"] = req.ImageSize
	}
	if req.AspectRatio != "" {
		imageConfig["aspectRatio"] = req.AspectRatio
	}

	body := generateRequest{
		Contents:         []content{{Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: map[string]interface{}{"imageConfig": imageConfig},
	}

	resp, err := p.generate(ctx, req.Model, body)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, nil
	}
	for _, pt := range resp.Candidates[0].Content.Parts {
		if pt.InlineData != nil && pt.InlineData.Data != "" {
			return &llm.ImageResult{MIMEType: pt.InlineData.MIMEType, Data: pt.InlineData.Data}, nil
		}
	}
	return nil, nil
}

func (p *Provider) generate(ctx context.Context, model string, body generateRequest) (*generateResponse, error) {
	if model == "" {
		model = p.defaultModel
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	apiURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(httpResp.Body)
		return nil, llm.NewAPIError(ProviderName, httpResp.StatusCode, errBody)
	}

	var response generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	return &response, nil
}
