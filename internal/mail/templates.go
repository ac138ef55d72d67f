// Package mail renders notification emails and delivers them through a
// configurable provider.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"regexp"
	texttemplate "text/template"

	"secretburner/internal/domain"
)

//go:embed templates
var templatesFS embed.FS

// Template names are partly caller-influenced, so anything outside this set
// is rejected before resolution to guard against path traversal.
var templateNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Renderer resolves a template name plus a context mapping into rendered
// text and HTML bodies.
type Renderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

func NewRenderer() (*Renderer, error) {
	text, err := texttemplate.ParseFS(templatesFS, "templates/text/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templatesFS, "templates/html/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return &Renderer{text: text, html: html}, nil
}

// Render returns the text and HTML bodies for the named template.
func (r *Renderer) Render(name string, context map[string]string) (text, html string, err error) {
	if !templateNamePattern.MatchString(name) {
		return "", "", domain.NewValidationError("template", "invalid template name")
	}

	var textBuf bytes.Buffer
	if err := r.text.ExecuteTemplate(&textBuf, name+".txt", context); err != nil {
		return "", "", fmt.Errorf("render text template %q: %w", name, err)
	}
	var htmlBuf bytes.Buffer
	if err := r.html.ExecuteTemplate(&htmlBuf, name+".html", context); err != nil {
		return "", "", fmt.Errorf("render html template %q: %w", name, err)
	}
	return textBuf.String(), htmlBuf.String(), nil
}
