package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	Database  DatabaseConfig   `json:"database"`
	LogConfig logger.LogConfig `json:"log_config"`
	Storage   StorageConfig    `json:"storage"`
	Ingest    IngestConfig     `json:"ingest"`
	Podcast   PodcastConfig    `json:"podcast"`
	Provider  ProviderConfig   `json:"provider"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type StorageConfig struct {
	Type      string      `json:"type"`
	UploadDir string      `json:"upload_dir"`
	AudioDir  string      `json:"audio_dir"`
	Data      interface{} `json:"data"`
}

type IngestConfig struct {
	ChunkSize      int `json:"chunk_size"`
	ChunkOverlap   int `json:"chunk_overlap"`
	EmbedBatchSize int `json:"embed_batch_size"`
}

type PodcastConfig struct {
	MaxVersions int `json:"max_versions"`
}

type ProviderConfig struct {
	TimeoutSeconds int    `json:"timeout_seconds"`
	HFEndpoint     string `json:"hf_endpoint"`
	HFModelDir     string `json:"hf_model_dir"`
	KokoroEndpoint string `json:"kokoro_endpoint"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "storage/uploads"
	}
	if cfg.Storage.AudioDir == "" {
		cfg.Storage.AudioDir = "storage/audio"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap <= 0 || cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize {
		cfg.Ingest.ChunkOverlap = cfg.Ingest.ChunkSize / 5
	}
	if cfg.Ingest.EmbedBatchSize <= 0 {
		cfg.Ingest.EmbedBatchSize = 64
	}
	if cfg.Podcast.MaxVersions <= 0 {
		cfg.Podcast.MaxVersions = 3
	}
	if cfg.Provider.TimeoutSeconds <= 0 {
		cfg.Provider.TimeoutSeconds = 120
	}
	return &cfg, nil
}
