package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"floodwatch/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// alertTimeZone is used for the timestamp printed in the email footer.
var alertTimeZone = mustLoadZone("Asia/Ho_Chi_Minh")

func mustLoadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("ICT", 7*3600)
	}
	return loc
}

type wrapperData struct {
	Subject string
	Body    template.HTML
	SentAt  string
	AppURL  string
}

// Renderer wraps generated alert content in the branded email layout.
type Renderer struct {
	tmpl   *template.Template
	appURL string
}

// RendererConfig holds the parameters needed to construct a Renderer.
type RendererConfig struct {
	// AppURL, when set, adds a footer link back to the web app.
	AppURL string
}

// NewRenderer parses the embedded layout.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/alert.html")
	if err != nil {
		return nil, fmt.Errorf("email renderer: parse layout: %w", err)
	}
	return &Renderer{tmpl: tmpl, appURL: cfg.AppURL}, nil
}

// Wrap renders content inside the layout. The body is generated HTML and is
// inserted unescaped; the subject is escaped.
func (r *Renderer) Wrap(content types.AlertContent, sentAt time.Time) (string, error) {
	var buf bytes.Buffer
	err := r.tmpl.ExecuteTemplate(&buf, "alert.html", wrapperData{
		Subject: content.Subject,
		Body:    template.HTML(content.HTMLBody),
		SentAt:  sentAt.In(alertTimeZone).Format("15:04:05 02/01/2006"),
		AppURL:  r.appURL,
	})
	if err != nil {
		return "", fmt.Errorf("email renderer: execute layout: %w", err)
	}
	return buf.String(), nil
}
