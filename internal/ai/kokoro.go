package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lectern-ai/lectern/internal/pkg/errs"
)

const defaultKokoroEndpoint = "http://localhost:8880"

// kokoroTTS talks to a local Kokoro speech server exposing the
// OpenAI-compatible /v1/audio/speech route.
type kokoroTTS struct {
	endpoint   string
	httpClient *http.Client
}

type kokoroSpeechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

func (p *kokoroTTS) Name() string {
	return "kokoro"
}

func (p *kokoroTTS) Synthesize(ctx context.Context, text string, voice string) ([]byte, error) {
	if _, ok := kokoroVoiceTable[voice]; !ok && !strings.Contains(voice, "_") {
		return nil, errs.Validationf("unknown voice: %s", voice)
	}
	payload, err := json.Marshal(kokoroSpeechRequest{
		Model:          "kokoro",
		Input:          text,
		Voice:          voice,
		ResponseFormat: "wav",
		Speed:          1.1,
	})
	if err != nil {
		return nil, err
	}
	var audio []byte
	err = withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/audio/speech", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return classifyTransport(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return errs.NewProviderError(classifyStatus(resp.StatusCode),
				fmt.Errorf("kokoro: %s: %s", resp.Status, strings.TrimSpace(string(body))))
		}
		audio, err = io.ReadAll(resp.Body)
		if err != nil {
			return classifyTransport(err)
		}
		return nil
	})
	return audio, err
}

func (p *kokoroTTS) ListVoices() []Voice {
	return KokoroVoices()
}

func init() {
	RegisterTTS("kokoro", func(cfg Config) (TTS, error) {
		endpoint := strings.TrimRight(cfg.KokoroEndpoint, "/")
		if endpoint == "" {
			endpoint = defaultKokoroEndpoint
		}
		return &kokoroTTS{
			endpoint:   endpoint,
			httpClient: &http.Client{Timeout: cfg.timeout()},
		}, nil
	})
}
