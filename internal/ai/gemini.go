package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/lectern-ai/lectern/internal/pkg/errs"
)

type geminiLLM struct {
	apiKey string
	model  string
}

func (p *geminiLLM) Name() string {
	return "gemini"
}

func (p *geminiLLM) Complete(ctx context.Context, req CompleteRequest) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", classifyTransport(err)
	}
	contents := make([]*genai.Content, 0, len(req.Messages))
	var config *genai.GenerateContentConfig
	for _, m := range req.Messages {
		if m.Role == "system" {
			if config == nil {
				config = &genai.GenerateContentConfig{}
			}
			config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
			continue
		}
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}
	if req.JSONMode {
		if config == nil {
			config = &genai.GenerateContentConfig{}
		}
		config.ResponseMIMEType = "application/json"
	}
	var text string
	err = withRetry(ctx, func() error {
		resp, err := client.Models.GenerateContent(ctx, p.model, contents, config)
		if err != nil {
			return classifyTransport(err)
		}
		text = strings.TrimSpace(resp.Text())
		return nil
	})
	return text, err
}

type geminiEmbedder struct {
	apiKey string
	model  string
	dim    int
}

func (p *geminiEmbedder) Name() string {
	return "gemini"
}

func (p *geminiEmbedder) ModelName() string {
	return p.model
}

func (p *geminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, classifyTransport(err)
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}
	var vectors [][]float32
	err = withRetry(ctx, func() error {
		resp, err := client.Models.EmbedContent(ctx, p.model, contents, nil)
		if err != nil {
			return classifyTransport(err)
		}
		if len(resp.Embeddings) != len(texts) {
			return errs.NewProviderError(errs.ProviderErrServer,
				fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts)))
		}
		vectors = make([][]float32, len(resp.Embeddings))
		for i, emb := range resp.Embeddings {
			vectors[i] = emb.Values
		}
		return nil
	})
	return vectors, err
}

func (p *geminiEmbedder) Dim(ctx context.Context) (int, error) {
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

func geminiAPIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if key == "" {
		return "", &errs.ConfigurationError{Field: "GEMINI_API_KEY"}
	}
	return key, nil
}

func init() {
	RegisterLLM("gemini", func(model string, cfg Config) (LLM, error) {
		key, err := geminiAPIKey()
		if err != nil {
			return nil, err
		}
		return &geminiLLM{apiKey: key, model: model}, nil
	})
	RegisterEmbedder("gemini", func(model string, cfg Config) (Embedder, error) {
		key, err := geminiAPIKey()
		if err != nil {
			return nil, err
		}
		return &geminiEmbedder{apiKey: key, model: model}, nil
	})
}
