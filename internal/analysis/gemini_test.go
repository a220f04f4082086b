package analysis_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"barangay/backend/internal/analysis"
	"barangay/backend/internal/config"
	"barangay/backend/internal/logging"
	"barangay/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeGenerator is a scripted ContentGenerator.
type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   bool
	prompts []string
	configs []*genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	for _, c := range contents {
		for _, p := range c.Parts {
			f.prompts = append(f.prompts, p.Text)
		}
	}
	f.configs = append(f.configs, cfg)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.reply, genai.RoleModel)}},
	}, nil
}

const validReply = `{
  "priorityScore": 92,
  "urgencyLevel": "CRITICAL",
  "impactAnalysis": "High risk of property damage due to flooding.",
  "suggestedAction": "Deploy engineering team for declogging.",
  "estimatedResourceIntensity": "MEDIUM",
  "categoryCorrection": "Flooding",
  "confidenceScore": 95,
  "isTroll": false
}`

var sampleRequest = analysis.Request{
	Title:       "Clogged Drainage Causing Flooding",
	Description: "The main drainage canal in Purok 2 is blocked by debris.",
	Location:    "Purok 2, Maysan Rd.",
	Category:    "Infrastructure",
}

func newClient(gen analysis.ContentGenerator, timeout time.Duration) *analysis.GeminiClient {
	return analysis.NewClient(gen, "", timeout, logging.Nop())
}

func TestAnalyze_ParsesStructuredReply(t *testing.T) {
	// Arrange
	gen := &fakeGenerator{reply: validReply}
	client := newClient(gen, time.Second)

	// Act
	result, err := client.Analyze(context.Background(), sampleRequest)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 92, result.PriorityScore)
	assert.Equal(t, models.UrgencyCritical, result.UrgencyLevel)
	assert.Equal(t, models.ResourceMedium, result.EstimatedResourceIntensity)
	assert.Equal(t, "Flooding", result.CategoryCorrection)
	assert.Equal(t, 95, result.ConfidenceScore)
	assert.False(t, result.IsFallback())
}

func TestParseAnalysis_UrgencyFollowsScore(t *testing.T) {
	reply := strings.Replace(validReply, `"urgencyLevel": "CRITICAL"`, `"urgencyLevel": "LOW"`, 1)

	result, err := analysis.ParseAnalysis([]byte(reply))

	require.NoError(t, err)
	assert.Equal(t, 92, result.PriorityScore)
	assert.Equal(t, models.UrgencyCritical, result.UrgencyLevel)
}

func TestAnalyze_SendsSchemaAndFields(t *testing.T) {
	gen := &fakeGenerator{reply: validReply}
	client := newClient(gen, time.Second)

	_, err := client.Analyze(context.Background(), sampleRequest)
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "Title: Clogged Drainage Causing Flooding")
	assert.Contains(t, prompt, "Location: Purok 2, Maysan Rd.")
	assert.Contains(t, prompt, "User Selected Category: Infrastructure")

	cfg := gen.configs[0]
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.ResponseSchema)
	assert.ElementsMatch(t, []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}, cfg.ResponseSchema.Properties["urgencyLevel"].Enum)
	assert.Contains(t, cfg.ResponseSchema.Required, "isTroll")
	assert.Equal(t, config.DefaultGeminiModel, client.Model)
}

func TestAnalyze_FallbackOnFailure(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{name: "network error", gen: &fakeGenerator{err: errors.New("dial tcp: connection refused")}},
		{name: "empty reply", gen: &fakeGenerator{reply: "  "}},
		{name: "malformed JSON", gen: &fakeGenerator{reply: "{priorityScore: high"}},
		{name: "missing required field", gen: &fakeGenerator{reply: `{"priorityScore": 40, "urgencyLevel": "LOW"}`}},
		{name: "enum violation", gen: &fakeGenerator{reply: strings.Replace(validReply, `"CRITICAL"`, `"URGENT"`, 1)}},
		{name: "score out of range", gen: &fakeGenerator{reply: strings.Replace(validReply, `92`, `150`, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(tt.gen, time.Second)

			result, err := client.Analyze(context.Background(), sampleRequest)

			require.NoError(t, err, "failures must be absorbed into the fallback")
			assert.Equal(t, analysis.Fallback(), result)
			assert.True(t, result.IsFallback())
		})
	}
}

func TestAnalyze_TimeoutFallsBackPromptly(t *testing.T) {
	// Arrange
	gen := &fakeGenerator{block: true}
	client := newClient(gen, 20*time.Millisecond)

	// Act
	start := time.Now()
	result, err := client.Analyze(context.Background(), sampleRequest)

	// Assert
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, result.ConfidenceScore)
	assert.Equal(t, 50, result.PriorityScore)
}

func TestFallback_Values(t *testing.T) {
	f := analysis.Fallback()

	assert.Equal(t, 50, f.PriorityScore)
	assert.Equal(t, models.UrgencyMedium, f.UrgencyLevel)
	assert.Equal(t, 0, f.ConfidenceScore)
	assert.False(t, f.IsTroll)
	assert.Contains(t, f.ImpactAnalysis, "Manual review required")
}

func TestUrgencyForScore(t *testing.T) {
	tests := []struct {
		score int
		want  models.UrgencyLevel
	}{
		{100, models.UrgencyCritical},
		{80, models.UrgencyCritical},
		{79, models.UrgencyHigh},
		{60, models.UrgencyHigh},
		{50, models.UrgencyMedium},
		{35, models.UrgencyMedium},
		{10, models.UrgencyLow},
		{-5, models.UrgencyLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, analysis.UrgencyForScore(tt.score), "score %d", tt.score)
	}
}

func TestUnavailable_AlwaysFails(t *testing.T) {
	result, err := analysis.Unavailable{}.Analyze(context.Background(), sampleRequest)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, analysis.ErrUnavailable)
}

func TestAssistant_Reply(t *testing.T) {
	gen := &fakeGenerator{reply: "You can track your complaint on the Track page."}
	assistant := &analysis.Assistant{Client: newClient(gen, time.Second)}

	reply := assistant.Reply(context.Background(), "How do I track my complaint?", "")

	assert.Equal(t, "You can track your complaint on the Track page.", reply)
	assert.Contains(t, gen.prompts[0], "User Question: How do I track my complaint?")
}

func TestAssistant_ReplyFallback(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	assistant := &analysis.Assistant{Client: newClient(gen, time.Second)}

	assert.Equal(t, config.AssistantFallbackMessage, assistant.Reply(context.Background(), "hello", ""))

	var nilAssistant *analysis.Assistant
	assert.Equal(t, config.AssistantFallbackMessage, nilAssistant.Reply(context.Background(), "hello", ""))
}
