package classifier

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiGenerator runs prompts against the Gemini API.
type GeminiGenerator struct {
	Client *genai.Client
	Model  string
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.Client.Models.GenerateContent(
		ctx,
		g.Model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return "", fmt.Errorf("generate content with Gemini: %w", err)
	}
	return result.Text(), nil
}
