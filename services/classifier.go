package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gastosapp/gastos-api/models"
)

// Classifier assigns a category and a finer-grained classification to an
// expense description. Implementations are best-effort: callers fall back to
// the manual labels when the call fails.
type Classifier interface {
	Classify(ctx context.Context, description string) (models.Classification, error)
}

// AIClassifier calls the Anthropic messages endpoint with a strict system
// prompt and parses the JSON object the model is instructed to return.
type AIClassifier struct {
	apiKey      string
	baseURL     string
	model       string
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
}

func NewAIClassifier() *AIClassifier {
	baseURL := os.Getenv("AI_API_URL")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1/messages"
	}

	return &AIClassifier{
		apiKey:      os.Getenv("AI_API_KEY"),
		baseURL:     baseURL,
		model:       "claude-3-haiku-20240307", // fast and cheap, labels are short
		client:      &http.Client{Timeout: 10 * time.Second},
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
	}
}

const classifierSystemPrompt = `Eres un clasificador de gastos personales.
Analiza la descripción del gasto y responde ÚNICAMENTE con un objeto JSON:
{"category": "...", "classification": "..."}

"category" debe ser EXACTAMENTE una de:
Comida, Transporte, Hogar, Salud, Entretenimiento, Servicios, Ropa, Educación, Otros.

"classification" es una etiqueta corta y más específica en español
(por ejemplo: "Supermercado", "Gasolina", "Streaming").

Sin texto adicional. Sin markdown. Solo el objeto JSON.`

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Classify runs the classification call with a bounded retry loop. Transport
// errors and non-2xx statuses are retried with exponentially increasing
// delays; a malformed payload fails immediately since retrying the same
// prompt rarely fixes it.
func (c *AIClassifier) Classify(ctx context.Context, description string) (models.Classification, error) {
	if c.apiKey == "" {
		return models.Classification{}, fmt.Errorf("AI_API_KEY not set")
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return models.Classification{}, ctx.Err()
			}
		}

		raw, err := c.callOnce(ctx, description)
		if err != nil {
			lastErr = err
			continue
		}

		return parseClassification(raw)
	}

	return models.Classification{}, fmt.Errorf("classification failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *AIClassifier) callOnce(ctx context.Context, description string) (string, error) {
	reqBody := messagesRequest{
		Model:     c.model,
		MaxTokens: 100,
		System:    classifierSystemPrompt,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf("Gasto: %s", description)},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr messagesResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	return parsed.Content[0].Text, nil
}

// parseClassification extracts the {category, classification} object from the
// model's reply, tolerating code fences some models wrap JSON in.
func parseClassification(raw string) (models.Classification, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var result models.Classification
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return models.Classification{}, fmt.Errorf("malformed classification payload: %w", err)
	}

	result.Category = strings.TrimSpace(result.Category)
	result.Classification = strings.TrimSpace(result.Classification)
	if result.Category == "" {
		return models.Classification{}, fmt.Errorf("classification payload missing category")
	}
	if result.Classification == "" {
		result.Classification = result.Category
	}

	return result, nil
}
