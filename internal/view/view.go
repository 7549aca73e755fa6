// Package view renders the HTML pages and plain-text replies of the web layer.
package view

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var files embed.FS

// User-visible failure messages.
const (
	MsgInvalidAccessKey   = "Invalid Access Key ❌"
	MsgAccessKeyUsed      = "Access Key Already Used ❌"
	MsgInvalidCredentials = "Invalid Email or Password ❌"
	MsgInsufficient       = "Insufficient AVreX balance to post an ad ❌"
	MsgNoImage            = "No image provided ❌"
	MsgImageTooLarge      = "Image too large, the limit is 10 MB ❌"
	MsgUnsupportedImage   = "Unsupported image type, use PNG, JPEG, GIF or WebP ❌"
	MsgAccessDenied       = "❌ Access Denied. Admins Only."
	MsgInternal           = "Something went wrong ❌"
	MsgTooManyRequests    = "Too many attempts, slow down ❌"
)

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page against the shared layout.
func New() (*Renderer, error) {
	names := []string{"signup", "login", "dashboard", "admin", "post_ad", "view_ads", "task"}
	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, n := range names {
		t, err := template.ParseFS(files, "templates/layout.html", "templates/"+n+".html")
		if err != nil {
			return nil, err
		}
		r.pages[n] = t
	}
	return r, nil
}

// Page renders page with data. Rendering happens into a buffer so a template
// failure never leaves a half-written body.
func (r *Renderer) Page(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		Text(w, http.StatusInternalServerError, MsgInternal)
		return errUnknownPage(page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		Text(w, http.StatusInternalServerError, MsgInternal)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Text writes msg as a plain-text response.
func Text(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

type errUnknownPage string

func (e errUnknownPage) Error() string { return "unknown page " + string(e) }
