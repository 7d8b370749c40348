package llm_client

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client wraps the Gemini API for veterinary report generation.
type Client struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	logger    *zap.Logger
	modelName string
}

// Config for the Gemini client.
type Config struct {
	APIKey    string
	ModelName string // Default: "gemini-2.0-flash"
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)

	logger.Info("Gemini client initialized", zap.String("model", cfg.ModelName))

	return &Client{
		client:    client,
		model:     model,
		logger:    logger,
		modelName: cfg.ModelName,
	}, nil
}

// Close closes the Gemini client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Generate produces the veterinary report. The image is attached when it
// decodes; otherwise the request degrades to text-only. An empty provider
// response is an error, a missing image is not.
func (c *Client) Generate(ctx context.Context, imageData []byte, result, language string, temperature *float64, city *string) (string, error) {
	prompt := buildPrompt(result, language, temperature, city)

	parts := []genai.Part{genai.Text(prompt)}
	if format, ok := decodableImageFormat(imageData); ok {
		parts = []genai.Part{genai.ImageData(format, imageData), genai.Text(prompt)}
	} else {
		c.logger.Warn("No decodable image for report generation, proceeding text-only")
	}

	c.logger.Info("Sending report request to Gemini")
	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}

	c.logger.Info("Report generated successfully")
	return stripCodeFences(text), nil
}

// decodableImageFormat reports whether the bytes decode as a supported
// image, and the format name Gemini expects ("jpeg", "png").
func decodableImageFormat(imageData []byte) (string, bool) {
	if len(imageData) == 0 {
		return "", false
	}
	_, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", false
	}
	return format, true
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

// stripCodeFences removes the markdown fence wrappers Gemini tends to put
// around the whole report.
func stripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```markdown", "")
	text = strings.ReplaceAll(text, "```", "")
	return text
}
