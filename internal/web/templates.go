package web

import (
	"embed"
	"html/template"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/memberhub/pkg"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates holds the parsed page templates, loaded once at startup.
type Templates struct {
	t *template.Template
}

func ParseTemplates() (*Templates, error) {
	t, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Templates{t: t}, nil
}

func (t *Templates) Render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", pkg.ContentType.HTML)
	if err := t.t.ExecuteTemplate(w, name, data); err != nil {
		log.Errorf("render template %s: %s", name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
