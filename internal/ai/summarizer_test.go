package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractiveTakesFirstSentences(t *testing.T) {
	input := "First point.  Second   point! Third point? Fourth point."
	got := Extractive(input, 3)
	want := "First point. Second point! Third point?"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExtractiveIsDeterministic(t *testing.T) {
	input := "Alpha. Beta. Gamma."
	a := Extractive(input, 2)
	b := Extractive(input, 2)
	if a != b {
		t.Fatalf("same input diverged: %q vs %q", a, b)
	}
}

func TestExtractiveShortInput(t *testing.T) {
	if got := Extractive("no terminator here", 3); got != "no terminator here" {
		t.Errorf("unterminated text must pass through, got %q", got)
	}
	if got := Extractive("   ", 3); got != "" {
		t.Errorf("blank input must yield empty, got %q", got)
	}
}

func TestWithFallbackUsesPrimaryWhenHealthy(t *testing.T) {
	primary := func(ctx context.Context, input string) (string, error) {
		return "from primary", nil
	}
	got, err := WithFallback(primary)(context.Background(), "One. Two. Three. Four.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from primary" {
		t.Fatalf("expected primary output, got %q", got)
	}
}

func TestWithFallbackDegradesToExtractive(t *testing.T) {
	got, err := WithFallback(HTTPClient("", "", time.Second))(context.Background(), "One. Two. Three. Four.")
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if got != "One. Two. Three." {
		t.Fatalf("expected extractive fallback, got %q", got)
	}
}

func TestHTTPClientRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if r.Header.Get("Authorization") != "Bearer key-1" {
			t.Errorf("missing bearer header, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]string{"output": "summary of " + in.Input})
	}))
	defer srv.Close()

	out, err := HTTPClient(srv.URL, "key-1", time.Second)(context.Background(), "homework")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if out != "summary of homework" {
		t.Fatalf("unexpected output %q", out)
	}
}
