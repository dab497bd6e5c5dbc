package service

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lectern-ai/lectern/internal/ai"
	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/embedcache"
	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/errs"
	"github.com/lectern-ai/lectern/internal/repo"
	"github.com/lectern-ai/lectern/internal/task"
)

// Effective is the per-operation resolved configuration: workspace overrides
// merged over the global settings row.
type Effective struct {
	LLMProvider       string `json:"llm_provider"`
	LLMModel          string `json:"llm_model"`
	EmbeddingProvider string `json:"embedding_provider"`
	EmbeddingModel    string `json:"embedding_model"`
	VisionEnabled     bool   `json:"vision_enabled"`
	VisionProvider    string `json:"vision_provider"`
	TTSProvider       string `json:"tts_provider"`
}

// SettingsService owns the process-wide settings singleton. Reads take the
// shared lock; the rare writes take the exclusive lock and write through to
// the database.
type SettingsService struct {
	repo        *repo.SettingsRepo
	workspaces  *repo.WorkspaceRepo
	providerCfg config.ProviderConfig
	bus         *task.Bus

	mu      sync.RWMutex
	current model.Settings

	runtimeOnce sync.Once
	runtime     model.RuntimeInfo

	downloadMu     sync.Mutex
	downloadCancel context.CancelFunc
}

func NewSettingsService(settingsRepo *repo.SettingsRepo, workspaces *repo.WorkspaceRepo, providerCfg config.ProviderConfig, bus *task.Bus) *SettingsService {
	return &SettingsService{
		repo:        settingsRepo,
		workspaces:  workspaces,
		providerCfg: providerCfg,
		bus:         bus,
	}
}

// Load initializes the in-memory state from the database at startup.
func (s *SettingsService) Load(ctx context.Context) error {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = *current
	s.mu.Unlock()
	return nil
}

func (s *SettingsService) Get() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *SettingsService) Update(ctx context.Context, updated *model.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Update(ctx, updated); err != nil {
		return err
	}
	s.current = *updated
	logutil.GetLogger(ctx).Info("settings updated",
		zap.String("llm_provider", updated.LLMProvider),
		zap.String("embedding_provider", updated.EmbeddingProvider),
		zap.String("embedding_model", updated.EmbeddingModel),
	)
	return nil
}

// Effective resolves the configuration for a workspace-scoped operation.
// Workspace ID 0 resolves pure globals.
func (s *SettingsService) Effective(ctx context.Context, workspaceID int64) (*Effective, error) {
	global := s.Get()
	eff := &Effective{
		LLMProvider:       global.LLMProvider,
		EmbeddingProvider: global.EmbeddingProvider,
		EmbeddingModel:    global.EmbeddingModel,
		VisionEnabled:     global.EnableVisionProcessing,
		VisionProvider:    global.VisionProvider,
		TTSProvider:       global.TTSProvider,
	}
	if workspaceID > 0 {
		ws, err := s.workspaces.GetByID(ctx, workspaceID)
		if err != nil {
			return nil, err
		}
		if ws.LLMProvider != "" {
			eff.LLMProvider = ws.LLMProvider
		}
		if ws.LLMModel != "" {
			eff.LLMModel = ws.LLMModel
		}
		if ws.EmbeddingProvider != "" {
			eff.EmbeddingProvider = ws.EmbeddingProvider
		}
		if ws.EmbeddingModel != "" {
			eff.EmbeddingModel = ws.EmbeddingModel
		}
	}
	if eff.LLMModel == "" {
		switch eff.LLMProvider {
		case "ollama":
			eff.LLMModel = global.OllamaModel
		default:
			eff.LLMModel = global.OpenAIModel
		}
	}
	return eff, nil
}

func (s *SettingsService) aiConfig() ai.Config {
	global := s.Get()
	return ai.Config{
		OpenAIAPIKey:   global.OpenAIAPIKey,
		OllamaBaseURL:  global.OllamaBaseURL,
		HFEndpoint:     s.providerCfg.HFEndpoint,
		KokoroEndpoint: s.providerCfg.KokoroEndpoint,
		Timeout:        time.Duration(s.providerCfg.TimeoutSeconds) * time.Second,
	}
}

// LLMFor builds the chat/generation model bound to the workspace's
// effective configuration.
func (s *SettingsService) LLMFor(ctx context.Context, workspaceID int64) (ai.LLM, error) {
	eff, err := s.Effective(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if eff.LLMProvider == "" {
		return nil, &errs.ConfigurationError{Field: "llm_provider"}
	}
	if eff.LLMModel == "" {
		return nil, &errs.ConfigurationError{Field: "llm_model"}
	}
	cfg := s.aiConfig()
	switch eff.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, &errs.ConfigurationError{Field: "openai_api_key"}
		}
	case "ollama":
		if cfg.OllamaBaseURL == "" {
			return nil, &errs.ConfigurationError{Field: "ollama_base_url"}
		}
	}
	return ai.NewLLM(eff.LLMProvider, eff.LLMModel, cfg)
}

// EmbedderFor builds the embedding model for the workspace, fronted by a
// short-lived LRU. Each call builds a new embedder with an empty cache, so
// only repeated texts embedded through the returned value skip the provider.
func (s *SettingsService) EmbedderFor(ctx context.Context, workspaceID int64) (ai.Embedder, error) {
	eff, err := s.Effective(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if eff.EmbeddingProvider == "" {
		return nil, &errs.ConfigurationError{Field: "embedding_provider"}
	}
	if eff.EmbeddingModel == "" {
		return nil, &errs.ConfigurationError{Field: "embedding_model"}
	}
	cfg := s.aiConfig()
	switch eff.EmbeddingProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, &errs.ConfigurationError{Field: "openai_api_key"}
		}
	case "huggingface":
		if s.providerCfg.HFModelDir != "" && !ai.HFModelPresent(s.providerCfg.HFModelDir, eff.EmbeddingModel) {
			return nil, &errs.ConfigurationError{Field: "embedding_model"}
		}
	}
	embedder, err := ai.NewEmbedder(eff.EmbeddingProvider, eff.EmbeddingModel, cfg)
	if err != nil {
		return nil, err
	}
	return embedcache.WrapLRU(embedder, 4096, 2*time.Hour), nil
}

// VisionFor returns the caption model and whether vision is enabled at all.
func (s *SettingsService) VisionFor(ctx context.Context, workspaceID int64) (ai.Vision, bool, error) {
	eff, err := s.Effective(ctx, workspaceID)
	if err != nil {
		return nil, false, err
	}
	if !eff.VisionEnabled {
		return nil, false, nil
	}
	global := s.Get()
	cfg := s.aiConfig()
	provider := eff.VisionProvider
	if provider == "" {
		provider = "openai"
	}
	var visionModel string
	switch provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, false, &errs.ConfigurationError{Field: "openai_api_key"}
		}
		visionModel = global.OpenAIModel
	case "ollama":
		visionModel = global.OllamaVisionModel
	}
	vision, err := ai.NewVision(provider, visionModel, cfg)
	if err != nil {
		return nil, false, err
	}
	return vision, true, nil
}

func (s *SettingsService) TTSFor(ctx context.Context) (ai.TTS, error) {
	_ = ctx
	global := s.Get()
	provider := global.TTSProvider
	if provider == "" {
		provider = "kokoro"
	}
	cfg := s.aiConfig()
	if provider == "openai" && cfg.OpenAIAPIKey == "" {
		return nil, &errs.ConfigurationError{Field: "openai_api_key"}
	}
	return ai.NewTTS(provider, cfg)
}

// RuntimeInfo probes the local execution environment once per process.
// LECTERN_HF_DEVICE pins the device for local embedding models.
func (s *SettingsService) RuntimeInfo() model.RuntimeInfo {
	s.runtimeOnce.Do(func() {
		s.runtime = probeRuntime()
	})
	return s.runtime
}

func probeRuntime() model.RuntimeInfo {
	if device := strings.TrimSpace(os.Getenv("LECTERN_HF_DEVICE")); device != "" {
		return model.RuntimeInfo{Device: device}
	}
	out, err := exec.Command("nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		return model.RuntimeInfo{Device: "cpu"}
	}
	name := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if name == "" {
		return model.RuntimeInfo{Device: "cpu"}
	}
	return model.RuntimeInfo{Device: "cuda", CUDADeviceName: name}
}

// DownloadModel pulls a local model, streaming progress onto the shared
// event bus under the download key. One download runs at a time.
func (s *SettingsService) DownloadModel(provider, modelName, ollamaBaseURL string) error {
	s.downloadMu.Lock()
	if s.downloadCancel != nil {
		s.downloadMu.Unlock()
		return errs.Validationf("a model download is already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.downloadCancel = cancel
	s.downloadMu.Unlock()

	key := task.DownloadKey()
	publish := func(status string, progress float64, message string) {
		s.bus.Publish(key, task.Event{Status: status, Progress: progress, Message: message})
	}

	go func() {
		defer func() {
			cancel()
			s.downloadMu.Lock()
			s.downloadCancel = nil
			s.downloadMu.Unlock()
		}()
		var err error
		switch provider {
		case "ollama":
			baseURL := ollamaBaseURL
			if baseURL == "" {
				baseURL = s.Get().OllamaBaseURL
			}
			err = ai.PullModel(ctx, baseURL, modelName, func(ev ai.PullEvent) {
				progress := 0.0
				if ev.Total > 0 {
					progress = float64(ev.Completed) / float64(ev.Total) * 100
				}
				publish("pulling", progress, ev.Status)
			})
		case "huggingface":
			err = ai.DownloadHFModel(ctx, modelName, s.providerCfg.HFModelDir, func(ev ai.DownloadEvent) {
				publish(ev.Status, ev.Progress, ev.Message)
			})
		default:
			err = fmt.Errorf("unsupported download provider: %s", provider)
		}
		if err != nil {
			publish("error", 0, err.Error())
			return
		}
		publish("completed", 100, "Model ready")
	}()
	return nil
}

func (s *SettingsService) CancelDownload() {
	s.downloadMu.Lock()
	if s.downloadCancel != nil {
		s.downloadCancel()
	}
	s.downloadMu.Unlock()
}
