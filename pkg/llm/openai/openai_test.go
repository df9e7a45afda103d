package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v2/option"

	"github.com/calque-ai/go-chronorag/pkg/helpers"
	"github.com/calque-ai/go-chronorag/pkg/llm"
)

type parsed struct {
	CleanQuery string `json:"clean_query"`
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := New("gpt-4o-mini", "text-embedding-3-small", WithAPIKey("sk-test")); err != nil {
		t.Errorf("New() error = %v", err)
	}
	if _, err := New("", "text-embedding-3-small", WithAPIKey("sk-test")); err == nil {
		t.Error("expected error for missing chat model")
	}
	if _, err := New("gpt-4o-mini", "text-embedding-3-small", WithAPIKey("")); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestCompleteAndEmbed(t *testing.T) {
	t.Parallel()

	var chatBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat/completions":
			_ = json.NewDecoder(r.Body).Decode(&chatBody)
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"answer text"}}]}`))
		case "/embeddings":
			_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
				"data":[{"object":"embedding","index":0,"embedding":[0.5,-0.25]}],
				"usage":{"prompt_tokens":1,"total_tokens":1}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New("gpt-4o-mini", "text-embedding-3-small",
		WithAPIKey("sk-test"),
		WithBaseURL(srv.URL),
		WithRequestOptions(option.WithHTTPClient(srv.Client()), option.WithMaxRetries(0)),
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	text, err := c.Complete(ctx, llm.Request{
		Prompt:      "question",
		Temperature: helpers.PtrOf(0.0),
		Format:      llm.SchemaFor[parsed]("analysis"),
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "answer text" {
		t.Errorf("Complete() = %q", text)
	}
	if chatBody["temperature"] != 0.0 {
		t.Errorf("temperature = %v, want 0", chatBody["temperature"])
	}
	format, _ := chatBody["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Errorf("response_format = %v", chatBody["response_format"])
	}

	vec, err := c.Embed(ctx, "question")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 || vec[1] != -0.25 {
		t.Errorf("Embed() = %v", vec)
	}
}
