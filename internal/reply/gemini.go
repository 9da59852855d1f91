package reply

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements Generator using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a Gemini-backed reply generator.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("reply: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-1.5-pro"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("reply: create gemini client: %w", err)
	}
	return &GeminiClient{client: client, modelID: modelID}, nil
}

// Generate sends the bot context plus the user message and returns the
// model's text.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	model := c.client.GenerativeModel(c.modelID)

	contextBlock := BuildContext(req.PromptPairs, req.DatasetRows)
	if contextBlock != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(contextBlock))
	}

	session := model.StartChat()
	res, err := session.SendMessage(ctx, genai.Text(fmt.Sprintf("Q: %s\nA:", req.Message)))
	if err != nil {
		return "", fmt.Errorf("reply: gemini generate: %w", err)
	}

	text := extractText(res)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("reply: gemini returned empty response")
	}
	return strings.TrimSpace(text), nil
}

// Close releases the underlying API client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// BuildContext renders prompt pairs and dataset rows into the plain-text
// context block fed to the model. Row fields are sorted so the block is
// stable between calls.
func BuildContext(pairs []QA, rows []map[string]string) string {
	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", p.Question, p.Answer)
	}
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, row[k]))
		}
		b.WriteString(strings.Join(parts, " | "))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func extractText(res *genai.GenerateContentResponse) string {
	if res == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range res.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}
