package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements Provider using Google's Gemini models. Two model
// handles share one client: classification runs at temperature 0 with a JSON
// response type, sentence generation at a mildly creative temperature.
type GeminiProvider struct {
	client     *genai.Client
	classifier *genai.GenerativeModel
	writer     *genai.GenerativeModel
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Gemini 2.0 Flash for low latency and cost efficiency.
	classifier := client.GenerativeModel("gemini-2.0-flash")
	classifier.ResponseMIMEType = "application/json"
	classifier.SetTemperature(0)

	writer := client.GenerativeModel("gemini-2.0-flash")
	writer.SetTemperature(0.4)

	return &GeminiProvider{
		client:     client,
		classifier: classifier,
		writer:     writer,
	}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

func (p *GeminiProvider) ClassifyRentIntent(ctx context.Context, message, hubContext string) (*RentIntent, error) {
	prompt := fmt.Sprintf(`Role: You are the intent classifier for "Poring", a campus bike-sharing service.

Known hubs (map nicknames and partial names to the canonical hub_name):
%s

Decide whether the user message is a request to RENT a bike.
- Asking how many bikes are available is NOT a rent request.
- If a hub is mentioned, return its canonical name exactly as listed above.
- If no hub is mentioned, hub_name is null.

Output JSON Schema:
{
  "is_rent": boolean,
  "hub_name": "string or null"
}

User Message: %s`, hubContext, message)

	var result RentIntent
	if err := p.classify(ctx, prompt, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (p *GeminiProvider) ClassifyReturnIntent(ctx context.Context, message string) (*ReturnIntent, error) {
	prompt := fmt.Sprintf(`Role: You are the intent classifier for "Poring", a campus bike-sharing service.

Decide whether the user message is a request to RETURN a bike, and where:
- "STATION" when the rider wants a dock / station return.
- "ZONE" when the rider wants to leave the bike in an open parking zone.
- "UNKNOWN" when the message is a return request but the spot is unclear.

Output JSON Schema:
{
  "is_return": boolean,
  "return_type": "STATION" | "ZONE" | "UNKNOWN",
  "hub_name": "string or null"
}

User Message: %s`, message)

	var result ReturnIntent
	if err := p.classify(ctx, prompt, &result); err != nil {
		return nil, err
	}
	if result.ReturnType == "" {
		result.ReturnType = ReturnUnknown
	}
	return &result, nil
}

func (p *GeminiProvider) ClassifyYesNo(ctx context.Context, message string) (YesNo, error) {
	prompt := fmt.Sprintf(`Reduce the user reply to a confirmation answer.

Output JSON Schema:
{
  "answer": "YES" | "NO" | "UNKNOWN"
}

User Reply: %s`, message)

	var result struct {
		Answer YesNo `json:"answer"`
	}
	if err := p.classify(ctx, prompt, &result); err != nil {
		return Unknown, err
	}
	switch result.Answer {
	case Yes, No:
		return result.Answer, nil
	default:
		return Unknown, nil
	}
}

func (p *GeminiProvider) GenerateSentence(ctx context.Context, instruction string, payload any, history []string) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	prompt := fmt.Sprintf(`Role: You are "Poring", the friendly assistant of a campus bike-sharing service.
Write ONE short, natural reply to the user. No markdown, no lists, no system tokens.

Task: %s
Data: %s
Recent conversation:
%s`, instruction, string(data), strings.Join(history, "\n"))

	resp, err := p.writer.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// classify runs the JSON-mode model and unmarshals the response into out.
func (p *GeminiProvider) classify(ctx context.Context, prompt string, out any) error {
	resp, err := p.classifier.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return fmt.Errorf("gemini generation error: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return err
	}

	cleanJSON := cleanJSONString(text)
	if err := json.Unmarshal([]byte(cleanJSON), out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w. Raw: %s", err, cleanJSON)
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates from Gemini")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

// cleanJSONString removes markdown code blocks if present (e.g. ```json ... ```)
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
