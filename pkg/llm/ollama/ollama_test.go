package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calque-ai/go-chronorag/pkg/helpers"
	"github.com/calque-ai/go-chronorag/pkg/llm"
)

type parsed struct {
	CleanQuery string `json:"clean_query"`
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		chat    string
		embed   string
		opts    []Option
		wantErr bool
	}{
		{"host", "phi3:mini", "all-minilm", []Option{WithHost("http://localhost:11434")}, false},
		{"environment", "phi3:mini", "all-minilm", nil, false},
		{"missing chat model", "", "all-minilm", nil, true},
		{"missing embed model", "phi3:mini", "", nil, true},
		{"bad host", "phi3:mini", "all-minilm", []Option{WithHost("://bad")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.chat, tt.embed, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildChatRequest(t *testing.T) {
	t.Parallel()

	c, err := New("phi3:mini", "all-minilm",
		WithHost("http://localhost:11434"),
		WithConfig(&Config{Host: "http://localhost:11434", MaxTokens: helpers.PtrOf(64), Options: map[string]any{"seed": 7}}),
	)
	if err != nil {
		t.Fatal(err)
	}

	req, err := c.buildChatRequest(llm.Request{
		Prompt:      "parse this",
		Temperature: helpers.PtrOf(0.0),
		Format:      llm.SchemaFor[parsed]("analysis"),
	})
	if err != nil {
		t.Fatalf("buildChatRequest() error = %v", err)
	}

	if req.Model != "phi3:mini" || len(req.Messages) != 1 || req.Messages[0].Content != "parse this" {
		t.Errorf("unexpected request %+v", req)
	}
	if req.Stream == nil || *req.Stream {
		t.Error("requests must not stream")
	}
	if req.Options["temperature"] != 0.0 || req.Options["num_predict"] != 64 || req.Options["seed"] != 7 {
		t.Errorf("options = %v", req.Options)
	}
	var schema map[string]any
	if err := json.Unmarshal(req.Format, &schema); err != nil || schema["type"] != "object" {
		t.Errorf("format = %s (%v)", req.Format, err)
	}
}

func TestBuildChatRequestTemperatureOverridesOptions(t *testing.T) {
	t.Parallel()

	c, err := New("phi3:mini", "all-minilm",
		WithConfig(&Config{Host: "http://localhost:11434", Options: map[string]any{"temperature": 0.9, "top_p": 0.5}}),
	)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		temp *float64
		want any
	}{
		{name: "request temperature wins", temp: helpers.PtrOf(0.0), want: 0.0},
		{name: "configured temperature without request value", temp: nil, want: 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, err := c.buildChatRequest(llm.Request{Prompt: "p", Temperature: tt.temp})
			if err != nil {
				t.Fatal(err)
			}
			if got := req.Options["temperature"]; got != tt.want {
				t.Errorf("temperature = %v, want %v", got, tt.want)
			}
			if req.Options["top_p"] != 0.5 {
				t.Errorf("options = %v", req.Options)
			}
		})
	}
}

func TestCompleteAndEmbed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/chat":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["stream"] != false {
				http.Error(w, "expected stream=false", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"model":"phi3:mini","message":{"role":"assistant","content":"{\"clean_query\":\"news\"}"},"done":true}`))
		case "/api/embed":
			_, _ = w.Write([]byte(`{"model":"all-minilm","embeddings":[[0.1,0.2,0.3]]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New("phi3:mini", "all-minilm", WithHost(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	text, err := c.Complete(ctx, llm.Request{Prompt: "q"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != `{"clean_query":"news"}` {
		t.Errorf("Complete() = %q", text)
	}

	vec, err := c.Embed(ctx, "news")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 || vec[1] != 0.2 {
		t.Errorf("Embed() = %v", vec)
	}
}
