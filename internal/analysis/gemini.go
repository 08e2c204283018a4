package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiAnalyzer asks a Gemini model for the analysis and maps its JSON
// reply onto Result. Credentials come from the environment, as genai reads
// them (GOOGLE_API_KEY or Vertex settings).
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
	now    func() time.Time
}

func NewGeminiAnalyzer(ctx context.Context, model string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiAnalyzer{client: client, model: model, now: time.Now}, nil
}

func (g *GeminiAnalyzer) Mode() string { return ModeReal }

func (g *GeminiAnalyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: buildPrompt(req)}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	res, err := decodeModelReply(raw)
	if err != nil {
		return nil, err
	}
	res.Metadata = metadataFor(req, g.now())
	return res, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("당신은 대화 코치입니다. 아래 대화를 분석하고 한국어로 답하세요.\n")
	fmt.Fprintf(&b, "관계: %s\n목표: %s\n톤 기준: %s\n\n", req.RelationshipType, req.UserGoal, req.ToneBaseline)
	b.WriteString("대화:\n")
	b.WriteString(strings.TrimSpace(req.ConversationText))
	b.WriteString("\n\nReturn ONLY raw JSON with these keys:\n")
	b.WriteString(`{"summary": string, "keyPoints": [string], "suggestedApproach": string, "emotionalContext": string, "potentialIssues": [string]}`)
	b.WriteString("\nDo NOT wrap the response in code fences.\n")
	return b.String()
}

// decodeModelReply parses the model JSON. A type mismatch is reported as
// ErrMalformedReply; missing fields are left for ValidateResult.
func decodeModelReply(raw string) (*Result, error) {
	var res Result
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return &res, nil
}

// cleanModelJSON strips Markdown fences and any text around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = strings.TrimSpace(s[idx+1:])
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
