package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/duediligenceflow/internal/prompts"
)

// VertexConfig selects the Gemini models used for transcription and analysis.
type VertexConfig struct {
	ProjectID     string
	Region        string
	OCRModel      string
	AnalysisModel string
	// Temperature and output budget of the analysis model.
	AnalysisTemperature float32
	MaxOutputTokens     int32
}

// VertexClient implements ocr.Model and report.Model on top of Vertex AI Gemini.
type VertexClient struct {
	ocrModel   *genai.GenerativeModel
	ocrPrompt  string
	config     VertexConfig
	baseClient *genai.Client
}

// NewVertexClient creates the client and configures the OCR model from the prompt set.
func NewVertexClient(ctx context.Context, cfg VertexConfig, set *prompts.Set) (*VertexClient, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	ocrModel := baseClient.GenerativeModel(cfg.OCRModel)
	ocrModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(set.OCR.System)},
	}
	ocrModel.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: genai.Ptr(cfg.MaxOutputTokens),
	}
	ocrModel.SafetySettings = permissiveSafety()

	return &VertexClient{
		ocrModel:   ocrModel,
		ocrPrompt:  set.OCR.User,
		config:     cfg,
		baseClient: baseClient,
	}, nil
}

// ExtractText transcribes one PDF chunk to Markdown.
func (c *VertexClient) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	parts := []genai.Part{genai.Blob{MIMEType: "application/pdf", Data: pdf}}
	if c.ocrPrompt != "" {
		parts = append(parts, genai.Text(c.ocrPrompt))
	}
	resp, err := c.ocrModel.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return extractText(resp, "markdown"), nil
}

// GenerateJSON asks the analysis model for a JSON document under the given system instruction.
func (c *VertexClient) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	model := c.baseClient.GenerativeModel(c.config.AnalysisModel)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(c.config.AnalysisTemperature),
		MaxOutputTokens:  genai.Ptr(c.config.MaxOutputTokens),
	}
	model.SafetySettings = permissiveSafety()

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	text := extractText(resp, "json")
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty analysis response")
	}
	return text, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// permissiveSafety turns off blocking for every harm category.
func permissiveSafety() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
}

// extractText concatenates the text parts of the first candidate and strips a code fence
// labelled fence, if present.
func extractText(resp *genai.GenerateContentResponse, fence string) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var content strings.Builder
	var textPartsFound int
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content.WriteString(string(txt))
			textPartsFound++
		}
	}
	if textPartsFound > 1 {
		slog.Warn("Gemini response contained several text parts; they have been concatenated.", "parts", textPartsFound)
	}

	s := strings.TrimSpace(content.String())
	s = strings.TrimPrefix(s, "```"+fence)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
