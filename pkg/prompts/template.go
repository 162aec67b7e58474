// Package prompts renders prompt templates and chat transcripts.
package prompts

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

// PromptTemplate is a text/template with sprig functions,
// a missing value fails the rendering.
type PromptTemplate struct {
	tmpl *template.Template
}

// NewPromptTemplate parses the template
func NewPromptTemplate(name, text string) (*PromptTemplate, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse template %s", name)
	}
	return &PromptTemplate{tmpl: tmpl}, nil
}

// Format renders the template with the values
func (p *PromptTemplate) Format(values map[string]any) (string, error) {
	var buf strings.Builder
	if err := p.tmpl.Execute(&buf, values); err != nil {
		return "", errors.Wrapf(err, "failed to render template %s", p.tmpl.Name())
	}
	return buf.String(), nil
}
