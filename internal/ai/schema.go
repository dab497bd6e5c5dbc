package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lectern-ai/lectern/internal/pkg/errs"
)

var validate = validator.New()

const schemaRetries = 2

// CompleteJSON runs a completion constrained to a JSON document matching the
// out struct's shape, retrying up to 2 times when the model's output fails
// to decode or validate, then failing with ErrGeneration.
func CompleteJSON(ctx context.Context, llm LLM, req CompleteRequest, out interface{}) error {
	req.JSONMode = true
	var lastErr error
	for attempt := 0; attempt <= schemaRetries; attempt++ {
		raw, err := llm.Complete(ctx, req)
		if err != nil {
			return err
		}
		if err := decodeAndValidate(raw, out); err != nil {
			lastErr = err
			logutil.GetLogger(ctx).Warn("structured output failed validation",
				zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v", errs.ErrGeneration, lastErr)
}

func decodeAndValidate(raw string, out interface{}) error {
	payload := extractJSON(raw)
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("validate model output: %w", err)
	}
	return nil
}

// extractJSON trims markdown fences and surrounding prose some models wrap
// around their JSON.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexAny(s, "{[")
	if start > 0 {
		s = s[start:]
	}
	if end := strings.LastIndexAny(s, "}]"); end >= 0 {
		s = s[:end+1]
	}
	return s
}
