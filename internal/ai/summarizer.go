// Package ai wraps the text-summarization collaborator. The realtime hub
// never calls it; REST handlers dispatch it asynchronously and store the
// result.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Summarizer turns homework text into a short summary. Implementations
// may fail; callers pair them with WithFallback.
type Summarizer func(ctx context.Context, input string) (string, error)

var ErrUnavailable = errors.New("summarizer unavailable")

// HTTPClient posts {"input": ...} to an external completion endpoint and
// expects {"output": ...}. An empty endpoint is always unavailable, which
// makes the fallback the effective implementation in offline deployments.
func HTTPClient(endpoint, apiKey string, timeout time.Duration) Summarizer {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context, input string) (string, error) {
		if endpoint == "" {
			return "", ErrUnavailable
		}
		body, err := json.Marshal(map[string]string{"input": input})
		if err != nil {
			return "", err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		var out struct {
			Output string `json:"output"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return out.Output, nil
	}
}

// WithFallback runs the primary and falls back to a deterministic
// extractive summary when it fails, so the feature degrades instead of
// erroring.
func WithFallback(primary Summarizer) Summarizer {
	return func(ctx context.Context, input string) (string, error) {
		out, err := primary(ctx, input)
		if err == nil {
			return out, nil
		}
		log.Debug().Err(err).Str("module", "ai").Msg("summarizer fell back")
		return Extractive(input, 3), nil
	}
}

// Extractive is the deterministic fallback: the first n sentences,
// whitespace-normalized. Same input, same output, no external calls.
func Extractive(input string, n int) string {
	fields := strings.Fields(input)
	text := strings.Join(fields, " ")
	if text == "" {
		return ""
	}
	var (
		count int
		end   = len(text)
	)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
			if count == n {
				end = i + 1
				break
			}
		}
	}
	return strings.TrimSpace(text[:end])
}
