package email

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type magicLinkEmailData struct {
	Title    string
	Heading  string
	Body     string
	CTALabel string
	CTAURL   string
}

func renderMagicLinkEmail(loginURL string) (string, error) {
	data := magicLinkEmailData{
		Title:    "Sign in",
		Heading:  "Sign in to Leadflow",
		Body:     "Click the button below to sign in. The link expires shortly and can be used once. If you did not request it, you can ignore this email.",
		CTALabel: "Sign in",
		CTAURL:   loginURL,
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "magic_link.html", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
