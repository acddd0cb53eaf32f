package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rss-digest/config"
)

// Client spricht eine OpenAI-kompatible API für Chat-Completions und
// Embeddings an. Er wird einmal beim Start gebaut und explizit in die
// Anreicherung injiziert, kein globaler Singleton.
type Client struct {
	baseURL        string
	model          string
	embeddingModel string
	apiKey         string
	httpClient     *http.Client
}

// NewClient baut einen Client aus der Konfiguration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		model:          cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		apiKey:         cfg.OpenAIAPIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.LLMTimeoutSecs) * time.Second,
		},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete schickt ein System/User-Prompt-Paar an die Chat-Completions-API
// und gibt den Antworttext zurück.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	var resp chatResponse
	if err := c.post(ctx, "/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat response contains no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed vektorisiert alle Eingabetexte in einem einzigen Batch-Aufruf.
// Das Ergebnis hat dieselbe Länge und Reihenfolge wie die Eingabe.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingRequest{Model: c.embeddingModel, Input: inputs})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding payload: %w", err)
	}

	var resp embeddingResponse
	if err := c.post(ctx, "/embeddings", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(inputs))
	}

	vectors := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llm request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("llm error %s on %s: %s", resp.Status, path, strings.TrimSpace(string(payload)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode llm response: %w", err)
	}
	return nil
}
