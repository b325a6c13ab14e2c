package research

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Generator answers one research task.
type Generator interface {
	Generate(ctx context.Context, task Task, query string) (string, error)
}

// contentGenerator is the subset of *genai.Models used by GeminiGenerator.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator answers tasks with a Gemini model and the Google Search tool.
type GeminiGenerator struct {
	models         contentGenerator
	model          string
	includeSources bool
}

// GeminiOption configures a GeminiGenerator.
type GeminiOption func(*geminiSettings)

type geminiSettings struct {
	httpClient     *http.Client
	includeSources bool
}

// WithGeminiHTTPClient sets the HTTP client used to reach the Gemini API.
func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(s *geminiSettings) {
		s.httpClient = client
	}
}

// WithSources appends the grounding sources of each answer as a
// "Sources:" list.
func WithSources(include bool) GeminiOption {
	return func(s *geminiSettings) {
		s.includeSources = include
	}
}

// NewGeminiGenerator creates a generator for model using the Gemini API key.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*GeminiGenerator, error) {
	var settings geminiSettings
	for _, opt := range opts {
		opt(&settings)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: settings.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		models:         client.Models,
		model:          model,
		includeSources: settings.includeSources,
	}, nil
}

// Generate sends query with the task instruction as system instruction.
func (g *GeminiGenerator) Generate(ctx context.Context, task Task, query string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(task.Instruction, genai.RoleUser),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(query), config)
	if err != nil {
		return "", fmt.Errorf("%s: generate content: %w", task.Name, err)
	}

	text := resp.Text()
	if g.includeSources {
		text += formatSources(resp)
	}
	return text, nil
}

// formatSources lists the web grounding chunks of resp, or returns "".
func formatSources(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	seen := make(map[string]struct{})

	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			if _, ok := seen[chunk.Web.URI]; ok {
				continue
			}
			seen[chunk.Web.URI] = struct{}{}

			if sb.Len() == 0 {
				sb.WriteString("\n\nSources:\n")
			}
			if chunk.Web.Title != "" {
				fmt.Fprintf(&sb, "- %s: %s\n", chunk.Web.Title, chunk.Web.URI)
			} else {
				fmt.Fprintf(&sb, "- %s\n", chunk.Web.URI)
			}
		}
	}

	return sb.String()
}
