package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lectern-ai/lectern/internal/pkg/errs"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// ollamaClient wraps the Ollama HTTP API.
type ollamaClient struct {
	baseURL    string
	httpClient *http.Client
}

func newOllamaClient(cfg Config) *ollamaClient {
	baseURL := strings.TrimRight(cfg.OllamaBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &ollamaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.timeout()},
	}
}

func (c *ollamaClient) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errs.NewProviderError(classifyStatus(resp.StatusCode),
			fmt.Errorf("ollama %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body))))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type ollamaChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaChatMessage    `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   string                 `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

type ollamaLLM struct {
	client *ollamaClient
	model  string
}

func (p *ollamaLLM) Name() string {
	return "ollama"
}

func (p *ollamaLLM) Complete(ctx context.Context, req CompleteRequest) (string, error) {
	messages := make([]ollamaChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ollamaChatMessage{Role: m.Role, Content: m.Content})
	}
	chatReq := ollamaChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]interface{}{"temperature": req.Temperature},
	}
	if req.JSONMode {
		chatReq.Format = "json"
	}
	var content string
	err := withRetry(ctx, func() error {
		var resp ollamaChatResponse
		if err := p.client.postJSON(ctx, "/api/chat", chatReq, &resp); err != nil {
			return err
		}
		content = strings.TrimSpace(resp.Message.Content)
		return nil
	})
	return content, err
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type ollamaEmbedder struct {
	client *ollamaClient
	model  string
	dim    int
}

func (p *ollamaEmbedder) Name() string {
	return "ollama"
}

func (p *ollamaEmbedder) ModelName() string {
	return p.model
}

func (p *ollamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := withRetry(ctx, func() error {
		var resp ollamaEmbedResponse
		if err := p.client.postJSON(ctx, "/api/embed", ollamaEmbedRequest{Model: p.model, Input: texts}, &resp); err != nil {
			return err
		}
		if len(resp.Embeddings) != len(texts) {
			return errs.NewProviderError(errs.ProviderErrServer,
				fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts)))
		}
		vectors = resp.Embeddings
		return nil
	})
	return vectors, err
}

func (p *ollamaEmbedder) Dim(ctx context.Context) (int, error) {
	if p.dim > 0 {
		return p.dim, nil
	}
	if d, ok := lookupDim(p.model); ok {
		p.dim = d
		return d, nil
	}
	vecs, err := p.Embed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	p.dim = len(vecs[0])
	return p.dim, nil
}

type ollamaGenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaVision struct {
	client *ollamaClient
	model  string
}

func (p *ollamaVision) Name() string {
	return "ollama"
}

func (p *ollamaVision) Caption(ctx context.Context, image []byte, mime string) (string, error) {
	_ = mime // ollama infers the format from the bytes
	req := ollamaGenerateRequest{
		Model:  p.model,
		Prompt: visionPrompt,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
		Stream: false,
	}
	var caption string
	err := withRetry(ctx, func() error {
		var resp ollamaGenerateResponse
		if err := p.client.postJSON(ctx, "/api/generate", req, &resp); err != nil {
			return err
		}
		caption = strings.TrimSpace(resp.Response)
		return nil
	})
	return caption, err
}

// PullEvent is one progress line from Ollama's model pull stream.
type PullEvent struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// PullModel streams a model download via /api/pull, calling onEvent for each
// progress line. It honours ctx cancellation.
func PullModel(ctx context.Context, baseURL, model string, onEvent func(PullEvent)) error {
	client := newOllamaClient(Config{OllamaBaseURL: baseURL, Timeout: 30 * time.Minute})
	payload, err := json.Marshal(map[string]interface{}{"name": model, "stream": true})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+"/api/pull", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errs.NewProviderError(classifyStatus(resp.StatusCode),
			fmt.Errorf("ollama pull: %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}
	decoder := json.NewDecoder(resp.Body)
	for {
		var event PullEvent
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				return nil
			}
			return classifyTransport(err)
		}
		onEvent(event)
		if event.Status == "success" {
			return nil
		}
	}
}

func init() {
	RegisterLLM("ollama", func(model string, cfg Config) (LLM, error) {
		return &ollamaLLM{client: newOllamaClient(cfg), model: model}, nil
	})
	RegisterEmbedder("ollama", func(model string, cfg Config) (Embedder, error) {
		return &ollamaEmbedder{client: newOllamaClient(cfg), model: model}, nil
	})
	RegisterVision("ollama", func(model string, cfg Config) (Vision, error) {
		if model == "" {
			model = "llava"
		}
		return &ollamaVision{client: newOllamaClient(cfg), model: model}, nil
	})
}
