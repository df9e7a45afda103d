// Package prompt renders the text/template prompts sent to the language model.
package prompt

import (
	"bytes"
	"fmt"
	"maps"
	"text/template"
)

// Prompt is a parsed template. The template receives the user text as
// {{.Input}} plus any extra data passed to Render.
type Prompt struct {
	tmpl *template.Template
}

// New parses text as a named template.
//
// Example:
//
//	p, err := prompt.New("greet", "Role: {{.Role}}\nQuestion: {{.Input}}")
func New(name, text string) (*Prompt, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("template parse error: %w", err)
	}
	return &Prompt{tmpl: tmpl}, nil
}

// Must panics if err is non-nil. Intended for package-level templates.
func Must(p *Prompt, err error) *Prompt {
	if err != nil {
		panic(err)
	}
	return p
}

// FromTemplate wraps an already parsed template, for example one loaded with
// template.ParseFS from an embedded directory.
func FromTemplate(tmpl *template.Template) *Prompt {
	return &Prompt{tmpl: tmpl}
}

// Name returns the template name.
func (p *Prompt) Name() string {
	return p.tmpl.Name()
}

// Render executes the template with input bound to .Input.
//
// Input: user text and optional template variables
// Output: rendered prompt
// Behavior: data[0] is merged over the defaults, so it may also override .Input
//
// Example:
//
//	text, err := prompt.AnswerSpecificFact.Render(question, map[string]any{"Context": ctxText})
func (p *Prompt) Render(input string, data ...map[string]any) (string, error) {
	templateData := map[string]any{
		"Input": input,
	}
	if len(data) > 0 {
		maps.Copy(templateData, data[0])
	}

	var out bytes.Buffer
	if err := p.tmpl.Execute(&out, templateData); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return out.String(), nil
}
