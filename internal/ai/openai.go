package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lectern-ai/lectern/internal/pkg/errs"
)

func newOpenAIClient(cfg Config) (*openai.Client, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, &errs.ConfigurationError{Field: "openai_api_key"}
	}
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.timeout()}
	return openai.NewClientWithConfig(clientCfg), nil
}

func classifyOpenAIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return errs.NewProviderError(classifyStatus(apiErr.HTTPStatusCode), err)
	}
	return classifyTransport(err)
}

type openAILLM struct {
	client *openai.Client
	model  string
}

func (p *openAILLM) Name() string {
	return "openai"
}

func (p *openAILLM) Complete(ctx context.Context, req CompleteRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	var content string
	err := withRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return classifyOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return errs.NewProviderError(errs.ProviderErrServer, fmt.Errorf("openai response has no choices"))
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	return content, err
}

type openAIEmbedder struct {
	client *openai.Client
	model  string
	dim    int
}

func (p *openAIEmbedder) Name() string {
	return "openai"
}

func (p *openAIEmbedder) ModelName() string {
	return p.model
}

func (p *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := withRetry(ctx, func() error {
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: openai.EmbeddingModel(p.model),
		})
		if err != nil {
			return classifyOpenAIError(err)
		}
		if len(resp.Data) != len(texts) {
			return errs.NewProviderError(errs.ProviderErrServer,
				fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts)))
		}
		vectors = make([][]float32, len(resp.Data))
		for i, item := range resp.Data {
			vectors[i] = item.Embedding
		}
		return nil
	})
	return vectors, err
}

func (p *openAIEmbedder) Dim(ctx context.Context) (int, error) {
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

const visionPrompt = "Describe this image in extreme detail for an educational study assistant. " +
	"Extract all text, explain diagrams, and summarize key concepts shown."

type openAIVision struct {
	client *openai.Client
	model  string
}

func (p *openAIVision) Name() string {
	return "openai"
}

func (p *openAIVision) Caption(ctx context.Context, image []byte, mime string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image))
	req := openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: 1500,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: visionPrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}},
	}
	var caption string
	err := withRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return classifyOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return errs.NewProviderError(errs.ProviderErrServer, fmt.Errorf("openai vision response has no choices"))
		}
		caption = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	return caption, err
}

type openAITTS struct {
	client *openai.Client
}

func (p *openAITTS) Name() string {
	return "openai"
}

func (p *openAITTS) Synthesize(ctx context.Context, text string, voice string) ([]byte, error) {
	var audio []byte
	err := withRetry(ctx, func() error {
		resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.TTSModel1,
			Input:          text,
			Voice:          openai.SpeechVoice(voice),
			ResponseFormat: openai.SpeechResponseFormatWav,
		})
		if err != nil {
			return classifyOpenAIError(err)
		}
		defer resp.Close()
		audio, err = io.ReadAll(resp)
		if err != nil {
			return classifyTransport(err)
		}
		return nil
	})
	return audio, err
}

func (p *openAITTS) ListVoices() []Voice {
	return []Voice{
		{ID: "alloy", Name: "Alloy", Gender: "other"},
		{ID: "echo", Name: "Echo", Gender: "male"},
		{ID: "fable", Name: "Fable", Gender: "other"},
		{ID: "onyx", Name: "Onyx", Gender: "male"},
		{ID: "nova", Name: "Nova", Gender: "female"},
		{ID: "shimmer", Name: "Shimmer", Gender: "female"},
	}
}

func init() {
	RegisterLLM("openai", func(model string, cfg Config) (LLM, error) {
		client, err := newOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return &openAILLM{client: client, model: model}, nil
	})
	RegisterEmbedder("openai", func(model string, cfg Config) (Embedder, error) {
		client, err := newOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return &openAIEmbedder{client: client, model: model}, nil
	})
	RegisterVision("openai", func(model string, cfg Config) (Vision, error) {
		client, err := newOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		if model == "" {
			model = "gpt-4o"
		}
		return &openAIVision{client: client, model: model}, nil
	})
	RegisterTTS("openai", func(cfg Config) (TTS, error) {
		client, err := newOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return &openAITTS{client: client}, nil
	})
}
