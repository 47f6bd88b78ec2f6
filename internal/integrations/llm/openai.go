package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"triagebot/internal/httpx"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultEmbeddingModel = "text-embedding-3-small"
	openAIChatURL         = "https://api.openai.com/v1/chat/completions"
	openAIEmbeddingsURL   = "https://api.openai.com/v1/embeddings"
)

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// OpenAICompleter implements llmclass.Completer over the chat completions
// endpoint with plain HTTP.
type OpenAICompleter struct {
	apiKey  string
	model   string
	timeout time.Duration
}

func NewOpenAICompleter(apiKey, model string, timeout time.Duration) *OpenAICompleter {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAICompleter{apiKey: apiKey, model: model, timeout: timeout}
}

func (o *OpenAICompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	reqBody := openAIRequest{
		Model: o.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	respBody, err := postJSON(ctx, openAIChatURL, o.apiKey, reqBody)
	if err != nil {
		return "", err
	}

	var resp openAIResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("parsing OpenAI response: %w", err)
	}
	if resp.Error != nil {
		log.Printf("llm openai api error: %s", resp.Error.Message)
		return "", fmt.Errorf("OpenAI API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}
	log.Printf("llm openai response size=%d", len(resp.Choices[0].Message.Content))
	return resp.Choices[0].Message.Content, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// OpenAIEmbedder implements similar.Embedder over the embeddings endpoint.
type OpenAIEmbedder struct {
	apiKey  string
	model   string
	timeout time.Duration
}

func NewOpenAIEmbedder(apiKey, model string, timeout time.Duration) *OpenAIEmbedder {
	if model == "" {
		model = defaultEmbeddingModel
	}
	return &OpenAIEmbedder{apiKey: apiKey, model: model, timeout: timeout}
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	respBody, err := postJSON(ctx, openAIEmbeddingsURL, o.apiKey, embeddingRequest{
		Model: o.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, err
	}

	var resp embeddingResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parsing embedding response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("OpenAI embeddings error: %s", resp.Error.Message)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding in OpenAI response")
	}
	return resp.Data[0].Embedding, nil
}

func postJSON(ctx context.Context, url, apiKey string, body any) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpx.ExternalHTTPClient().Do(req)
	if err != nil {
		log.Printf("llm openai error: %v", err)
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return respBody, nil
}
