package repo

import (
	"context"
	"database/sql"

	"github.com/lectern-ai/lectern/internal/model"
)

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

const settingsColumns = `llm_provider, openai_api_key, openai_model, ollama_base_url, ollama_model,
	embedding_provider, embedding_model, enable_vision_processing, vision_provider, ollama_vision_model, tts_provider`

// Get loads the singleton row, creating the default one if absent.
func (r *SettingsRepo) Get(ctx context.Context) (*model.Settings, error) {
	const query = `SELECT ` + settingsColumns + ` FROM app_settings WHERE id = 1`
	s, err := r.scan(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		if _, err := r.db.ExecContext(ctx, `INSERT INTO app_settings (id) VALUES (1) ON CONFLICT DO NOTHING`); err != nil {
			return nil, err
		}
		return r.scan(r.db.QueryRowContext(ctx, query))
	}
	return s, err
}

func (r *SettingsRepo) Update(ctx context.Context, s *model.Settings) error {
	const query = `
		UPDATE app_settings SET
			llm_provider = $1, openai_api_key = $2, openai_model = $3,
			ollama_base_url = $4, ollama_model = $5,
			embedding_provider = $6, embedding_model = $7,
			enable_vision_processing = $8, vision_provider = $9,
			ollama_vision_model = $10, tts_provider = $11
		WHERE id = 1`
	_, err := r.db.ExecContext(ctx, query,
		s.LLMProvider, s.OpenAIAPIKey, s.OpenAIModel,
		s.OllamaBaseURL, s.OllamaModel,
		s.EmbeddingProvider, s.EmbeddingModel,
		s.EnableVisionProcessing, s.VisionProvider,
		s.OllamaVisionModel, s.TTSProvider,
	)
	return err
}

func (r *SettingsRepo) scan(row rowScanner) (*model.Settings, error) {
	var s model.Settings
	if err := row.Scan(&s.LLMProvider, &s.OpenAIAPIKey, &s.OpenAIModel,
		&s.OllamaBaseURL, &s.OllamaModel,
		&s.EmbeddingProvider, &s.EmbeddingModel,
		&s.EnableVisionProcessing, &s.VisionProvider,
		&s.OllamaVisionModel, &s.TTSProvider); err != nil {
		return nil, err
	}
	return &s, nil
}
