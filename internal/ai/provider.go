package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config carries the effective provider settings resolved for one call.
type Config struct {
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OllamaBaseURL  string
	HFEndpoint     string
	KokoroEndpoint string
	Timeout        time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 120 * time.Second
	}
	return c.Timeout
}

type Message struct {
	Role    string
	Content string
}

type CompleteRequest struct {
	Messages    []Message
	Temperature float32
	// JSONMode asks the provider to emit a single JSON object.
	JSONMode bool
}

type LLM interface {
	Name() string
	Complete(ctx context.Context, req CompleteRequest) (string, error)
}

type Embedder interface {
	Name() string
	ModelName() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dim reports the vector dimension for this (provider, model); probed
	// lazily when the model is not in the known table.
	Dim(ctx context.Context) (int, error)
}

type Vision interface {
	Name() string
	Caption(ctx context.Context, image []byte, mime string) (string, error)
}

type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

type TTS interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice string) ([]byte, error)
	ListVoices() []Voice
}

type (
	LLMFactory      func(model string, cfg Config) (LLM, error)
	EmbedderFactory func(model string, cfg Config) (Embedder, error)
	VisionFactory   func(model string, cfg Config) (Vision, error)
	TTSFactory      func(cfg Config) (TTS, error)
)

var (
	llmRegistry      = map[string]LLMFactory{}
	embedderRegistry = map[string]EmbedderFactory{}
	visionRegistry   = map[string]VisionFactory{}
	ttsRegistry      = map[string]TTSFactory{}
)

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func RegisterLLM(name string, factory LLMFactory)           { llmRegistry[normalize(name)] = factory }
func RegisterEmbedder(name string, factory EmbedderFactory) { embedderRegistry[normalize(name)] = factory }
func RegisterVision(name string, factory VisionFactory)     { visionRegistry[normalize(name)] = factory }
func RegisterTTS(name string, factory TTSFactory)           { ttsRegistry[normalize(name)] = factory }

func NewLLM(provider, model string, cfg Config) (LLM, error) {
	factory := llmRegistry[normalize(provider)]
	if factory == nil {
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
	return factory(model, cfg)
}

func NewEmbedder(provider, model string, cfg Config) (Embedder, error) {
	factory := embedderRegistry[normalize(provider)]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
	return factory(model, cfg)
}

func NewVision(provider, model string, cfg Config) (Vision, error) {
	factory := visionRegistry[normalize(provider)]
	if factory == nil {
		return nil, fmt.Errorf("unsupported vision provider: %s", provider)
	}
	return factory(model, cfg)
}

func NewTTS(provider string, cfg Config) (TTS, error) {
	factory := ttsRegistry[normalize(provider)]
	if factory == nil {
		return nil, fmt.Errorf("unsupported tts provider: %s", provider)
	}
	return factory(cfg)
}

// knownDims maps embedding models with a fixed, documented dimension.
var knownDims = map[string]int{
	"text-embedding-3-small":                  1536,
	"text-embedding-ada-002":                  1536,
	"sentence-transformers/all-MiniLM-L6-v2":  384,
	"all-MiniLM-L6-v2":                        384,
	"sentence-transformers/all-mpnet-base-v2": 768,
	"all-mpnet-base-v2":                       768,
	"BAAI/bge-large-en-v1.5":                  1024,
	"nomic-embed-text":                        768,
	"mxbai-embed-large":                       1024,
	"gemini-embedding-001":                    768,
}

func lookupDim(model string) (int, bool) {
	d, ok := knownDims[model]
	return d, ok
}
