package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/lectern-ai/lectern/internal/pkg/errs"
)

const defaultHFEndpoint = "http://localhost:8085"

// hfEmbedder talks to a local text-embeddings-inference style sidecar that
// serves sentence-transformers models.
type hfEmbedder struct {
	endpoint   string
	model      string
	httpClient *http.Client
	dim        int
}

func (p *hfEmbedder) Name() string {
	return "huggingface"
}

func (p *hfEmbedder) ModelName() string {
	return p.model
}

type hfEmbedRequest struct {
	Inputs []string `json:"inputs"`
	Model  string   `json:"model,omitempty"`
}

func (p *hfEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(hfEmbedRequest{Inputs: texts, Model: p.model})
	if err != nil {
		return nil, err
	}
	var vectors [][]float32
	err = withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/embed", bytes.NewReader(payload))
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
				fmt.Errorf("embedding server: %s: %s", resp.Status, strings.TrimSpace(string(body))))
		}
		var out [][]float32
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return classifyTransport(err)
		}
		if len(out) != len(texts) {
			return errs.NewProviderError(errs.ProviderErrServer,
				fmt.Errorf("embedding server returned %d vectors for %d inputs", len(out), len(texts)))
		}
		vectors = out
		return nil
	})
	return vectors, err
}

func (p *hfEmbedder) Dim(ctx context.Context) (int, error) {
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

// DownloadEvent is one step of a HuggingFace Hub model download.
type DownloadEvent struct {
	Status   string
	Progress float64
	Message  string
}

type hfSibling struct {
	Rfilename string `json:"rfilename"`
}

type hfModelInfo struct {
	Siblings []hfSibling `json:"siblings"`
}

// DownloadHFModel snapshots a model repo from the HuggingFace Hub into
// destDir, reporting per-file progress through onEvent.
func DownloadHFModel(ctx context.Context, modelID, destDir string, onEvent func(DownloadEvent)) error {
	client := &http.Client{}
	infoURL := "https://huggingface.co/api/models/" + modelID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errs.NewProviderError(classifyStatus(resp.StatusCode),
			fmt.Errorf("huggingface model lookup failed: %s", resp.Status))
	}
	var info hfModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return classifyTransport(err)
	}
	if len(info.Siblings) == 0 {
		return errs.NewProviderError(errs.ProviderErrNotFound, fmt.Errorf("model %s has no files", modelID))
	}

	targetDir := filepath.Join(destDir, filepath.FromSlash(modelID))
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return err
	}
	total := len(info.Siblings)
	for i, sibling := range info.Siblings {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		onEvent(DownloadEvent{
			Status:   "downloading",
			Progress: float64(i) / float64(total) * 100,
			Message:  fmt.Sprintf("Downloading %s (%d/%d)", sibling.Rfilename, i+1, total),
		})
		if err := downloadHFFile(ctx, client, modelID, sibling.Rfilename, targetDir); err != nil {
			return err
		}
	}
	onEvent(DownloadEvent{Status: "completed", Progress: 100, Message: "Download complete"})
	return nil
}

func downloadHFFile(ctx context.Context, client *http.Client, modelID, filename, targetDir string) error {
	url := fmt.Sprintf("https://huggingface.co/%s/resolve/main/%s", modelID, filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errs.NewProviderError(classifyStatus(resp.StatusCode),
			fmt.Errorf("download %s: %s", filename, resp.Status))
	}
	target := filepath.Join(targetDir, filepath.FromSlash(filename))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}

// HFModelPresent reports whether a model snapshot already exists on disk.
func HFModelPresent(modelDir, modelID string) bool {
	info, err := os.Stat(filepath.Join(modelDir, filepath.FromSlash(modelID)))
	return err == nil && info.IsDir()
}

func init() {
	RegisterEmbedder("huggingface", func(model string, cfg Config) (Embedder, error) {
		endpoint := strings.TrimRight(cfg.HFEndpoint, "/")
		if endpoint == "" {
			endpoint = defaultHFEndpoint
		}
		return &hfEmbedder{
			endpoint:   endpoint,
			model:      model,
			httpClient: &http.Client{Timeout: cfg.timeout()},
		}, nil
	})
}
