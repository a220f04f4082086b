package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"barangay/backend/internal/config"
	"barangay/backend/internal/models"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// ContentGenerator is the subset of genai.Models used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient calls a Gemini model with a strict response schema.
type GeminiClient struct {
	Generator ContentGenerator
	Model     string
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// NewGeminiClient builds a client backed by the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration, logger zerolog.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return NewClient(client.Models, model, timeout, logger), nil
}

// NewClient wraps any ContentGenerator.
func NewClient(gen ContentGenerator, model string, timeout time.Duration, logger zerolog.Logger) *GeminiClient {
	if model == "" {
		model = config.DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = config.DefaultAnalysisTimeout
	}
	return &GeminiClient{
		Generator: gen,
		Model:     model,
		Timeout:   timeout,
		Logger:    logger.With().Str("component", "analysis").Logger(),
	}
}

// Analyze never returns an error: network failures, timeouts, malformed JSON
// and schema violations all yield Fallback.
func (c *GeminiClient) Analyze(ctx context.Context, req Request) (*models.AIAnalysis, error) {
	result, err := c.analyze(ctx, req)
	if err != nil {
		c.Logger.Warn().Err(err).Str("title", req.Title).Msg("AI analysis failed, using fallback")
		return Fallback(), nil
	}
	return result, nil
}

func (c *GeminiClient) analyze(ctx context.Context, req Request) (*models.AIAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	resp, err := c.Generator.GenerateContent(ctx, c.Model, genai.Text(buildPrompt(req)), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](config.AnalysisTemperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return nil, errors.New("no response from AI")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, errors.New("no response from AI")
	}
	return ParseAnalysis([]byte(text))
}

// rawAnalysis mirrors the schema with pointers so missing required fields are detectable.
type rawAnalysis struct {
	PriorityScore              *int    `json:"priorityScore"`
	UrgencyLevel               *string `json:"urgencyLevel"`
	ImpactAnalysis             *string `json:"impactAnalysis"`
	SuggestedAction            *string `json:"suggestedAction"`
	EstimatedResourceIntensity *string `json:"estimatedResourceIntensity"`
	CategoryCorrection         *string `json:"categoryCorrection"`
	ConfidenceScore            *int    `json:"confidenceScore"`
	IsTroll                    *bool   `json:"isTroll"`
	TrollAnalysis              *string `json:"trollAnalysis"`
}

// ParseAnalysis decodes a model reply and enforces the output schema.
func ParseAnalysis(data []byte) (*models.AIAnalysis, error) {
	var raw rawAnalysis
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed analysis JSON: %w", err)
	}

	var missing []string
	if raw.PriorityScore == nil {
		missing = append(missing, "priorityScore")
	}
	if raw.UrgencyLevel == nil {
		missing = append(missing, "urgencyLevel")
	}
	if raw.ImpactAnalysis == nil {
		missing = append(missing, "impactAnalysis")
	}
	if raw.SuggestedAction == nil {
		missing = append(missing, "suggestedAction")
	}
	if raw.EstimatedResourceIntensity == nil {
		missing = append(missing, "estimatedResourceIntensity")
	}
	if raw.ConfidenceScore == nil {
		missing = append(missing, "confidenceScore")
	}
	if raw.IsTroll == nil {
		missing = append(missing, "isTroll")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("analysis missing required fields: %s", strings.Join(missing, ", "))
	}

	if !models.UrgencyLevel(*raw.UrgencyLevel).IsValid() {
		return nil, fmt.Errorf("invalid urgencyLevel %q", *raw.UrgencyLevel)
	}
	intensity := models.ResourceIntensity(*raw.EstimatedResourceIntensity)
	if !intensity.IsValid() {
		return nil, fmt.Errorf("invalid estimatedResourceIntensity %q", *raw.EstimatedResourceIntensity)
	}
	if *raw.PriorityScore < 0 || *raw.PriorityScore > 100 {
		return nil, fmt.Errorf("priorityScore %d out of range", *raw.PriorityScore)
	}
	if *raw.ConfidenceScore < 0 || *raw.ConfidenceScore > 100 {
		return nil, fmt.Errorf("confidenceScore %d out of range", *raw.ConfidenceScore)
	}

	// The urgency bucket follows the score even when the model labels it differently.
	out := &models.AIAnalysis{
		PriorityScore:              *raw.PriorityScore,
		UrgencyLevel:               UrgencyForScore(*raw.PriorityScore),
		ImpactAnalysis:             *raw.ImpactAnalysis,
		SuggestedAction:            *raw.SuggestedAction,
		EstimatedResourceIntensity: intensity,
		ConfidenceScore:            *raw.ConfidenceScore,
		IsTroll:                    *raw.IsTroll,
	}
	if raw.CategoryCorrection != nil {
		out.CategoryCorrection = *raw.CategoryCorrection
	}
	if raw.TrollAnalysis != nil {
		out.TrollAnalysis = *raw.TrollAnalysis
	}
	return out, nil
}

func buildPrompt(req Request) string {
	return fmt.Sprintf(`You are an AI assistant for a barangay (village) government office. Your job is to prioritize citizen complaints to help officials manage resources efficiently.

Analyze the following complaint:
Title: %s
Description: %s
Location: %s
User Selected Category: %s

Context:
- Flooding and drainage are common issues.
- Peace and order (noise, fights) are high priority at night.
- Public health (garbage, sanitation) is critical.
- Check for signs of prank/troll submissions (e.g., unrealistic claims, nonsensical text, profanity without substance).

Output strictly in JSON format based on the provided schema.`, req.Title, req.Description, req.Location, req.Category)
}

func analysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"priorityScore": {
				Type:        genai.TypeInteger,
				Description: "A score from 0 to 100 indicating prioritization order. 100 is highest priority.",
			},
			"urgencyLevel": {
				Type:        genai.TypeString,
				Enum:        []string{string(models.UrgencyLow), string(models.UrgencyMedium), string(models.UrgencyHigh), string(models.UrgencyCritical)},
				Description: "The classification of urgency based on threat to life, property, or public order.",
			},
			"impactAnalysis": {
				Type:        genai.TypeString,
				Description: "A concise summary (max 2 sentences) of the potential impact if not addressed.",
			},
			"suggestedAction": {
				Type:        genai.TypeString,
				Description: "Recommended immediate action for the barangay officials.",
			},
			"estimatedResourceIntensity": {
				Type:        genai.TypeString,
				Enum:        []string{string(models.ResourceLow), string(models.ResourceMedium), string(models.ResourceHigh)},
				Description: "Estimate of manpower or resources needed to resolve this.",
			},
			"categoryCorrection": {
				Type:        genai.TypeString,
				Description: "If the user categorized it wrong, suggest the correct standard category.",
			},
			"confidenceScore": {
				Type:        genai.TypeInteger,
				Description: "Confidence level (0-100) of the analysis based on input clarity and detail.",
			},
			"isTroll": {
				Type:        genai.TypeBoolean,
				Description: "True if the complaint appears to be a prank, spam, or nonsensical troll submission.",
			},
			"trollAnalysis": {
				Type:        genai.TypeString,
				Description: "Explanation of why this is flagged as a troll report, or empty if not.",
			},
		},
		Required: []string{"priorityScore", "urgencyLevel", "impactAnalysis", "suggestedAction", "estimatedResourceIntensity", "confidenceScore", "isTroll"},
	}
}
