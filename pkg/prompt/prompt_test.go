package prompt

import (
	"strings"
	"testing"
	"text/template"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		tmpl     string
		input    string
		data     map[string]any
		expected string
		wantErr  bool
	}{
		{
			name:     "input only",
			tmpl:     "Q: {{.Input}}",
			input:    "who won",
			expected: "Q: who won",
		},
		{
			name:     "extra data",
			tmpl:     "{{.Context}}|{{.Input}}",
			input:    "q",
			data:     map[string]any{"Context": "ctx"},
			expected: "ctx|q",
		},
		{
			name:     "data overrides input",
			tmpl:     "{{.Input}}",
			input:    "raw",
			data:     map[string]any{"Input": "clean"},
			expected: "clean",
		},
		{
			name:    "missing key",
			tmpl:    "{{.Context}}",
			input:   "q",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := New(tt.name, tt.tmpl)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			var got string
			if tt.data != nil {
				got, err = p.Render(tt.input, tt.data)
			} else {
				got, err = p.Render(tt.input)
			}
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected execution error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("Render() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewParseError(t *testing.T) {
	t.Parallel()

	if _, err := New("bad", "{{.Input"); err == nil {
		t.Error("expected parse error")
	}
}

func TestMustPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("Must should panic on error")
		}
	}()
	Must(New("bad", "{{"))
}

func TestFromTemplate(t *testing.T) {
	t.Parallel()

	p := FromTemplate(template.Must(template.New("t").Parse("[{{.Input}}]")))
	got, err := p.Render("x")
	if err != nil || got != "[x]" || p.Name() != "t" {
		t.Errorf("Render() = %q, %v (name %q)", got, err, p.Name())
	}
}

func TestBuiltinTemplates(t *testing.T) {
	t.Parallel()

	parser, err := QueryParser.Render("What happened in Paris on 2024-03-01?")
	if err != nil {
		t.Fatalf("QueryParser.Render() error = %v", err)
	}
	for _, want := range []string{"User query: What happened in Paris on 2024-03-01?", `"clean_query"`, "YYYY-MM-DD"} {
		if !strings.Contains(parser, want) {
			t.Errorf("parser prompt missing %q", want)
		}
	}

	for _, p := range []*Prompt{AnswerSpecificFact, AnswerBroadTemporal} {
		out, err := p.Render("what happened", map[string]any{"Context": "doc one"})
		if err != nil {
			t.Fatalf("%s.Render() error = %v", p.Name(), err)
		}
		if !strings.Contains(out, "<context>\ndoc one\n</context>") || !strings.Contains(out, "Question: what happened") {
			t.Errorf("%s rendered unexpected prompt:\n%s", p.Name(), out)
		}
	}
}
