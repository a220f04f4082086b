package analysis

import (
	"context"
	"fmt"
	"strings"

	"barangay/backend/internal/config"

	"google.golang.org/genai"
)

const defaultAssistantContext = "You are the help desk assistant of a barangay citizen-services portal. " +
	"Residents ask about filing complaints, tracking their status, hotlines and barangay services."

// Assistant answers free-form help questions from residents.
type Assistant struct {
	Client *GeminiClient
}

// Reply returns the model answer, or a fixed apology when the call fails.
func (a *Assistant) Reply(ctx context.Context, message, background string) string {
	if a == nil || a.Client == nil {
		return config.AssistantFallbackMessage
	}
	if background == "" {
		background = defaultAssistantContext
	}

	ctx, cancel := context.WithTimeout(ctx, a.Client.Timeout)
	defer cancel()

	prompt := fmt.Sprintf("%s\n\nUser Question: %s\n\nProvide a helpful, concise, and friendly response.", background, message)
	resp, err := a.Client.Generator.GenerateContent(ctx, a.Client.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](config.AssistantTemperature),
	})
	if err != nil || resp == nil {
		a.Client.Logger.Warn().Err(err).Msg("AI chat failed")
		return config.AssistantFallbackMessage
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "I apologize, but I couldn't generate a response at this time."
	}
	return text
}
