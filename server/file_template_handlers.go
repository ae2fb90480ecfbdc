package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/jrsteele09/warranty-portal/users"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const layoutTemplate = "layout.html"

var pageTemplates = []string{"login.html", "change_password.html", "profile.html", "dashboard.html"}

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Parse(string(content))
}

func parsePageTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pageTemplates)+1)
	for _, name := range append([]string{layoutTemplate}, pageTemplates...) {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return templates, nil
}

// pageData is shared by every page rendered inside the layout.
type pageData struct {
	AppName    string
	TenantName string
	PageTitle  string
	Error      string
	Message    string
	UserName   string
	Role       users.Role
	SignedIn   bool
}

func (s *Server) newPageData(r *http.Request, title string) pageData {
	data := pageData{
		AppName:    s.config.GetAppName(),
		TenantName: strings.ToUpper(tenantFromHost(r.Host)),
		PageTitle:  title,
		Role:       roleFromContext(r.Context()),
	}
	if u := userFromContext(r.Context()); u != nil {
		data.UserName = u.DisplayName()
		data.SignedIn = true
	}
	return data
}

// render executes a page template and wraps it in the layout.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	contentTmpl, ok := s.templates[name]
	if !ok {
		log.Ctx(r.Context()).Error().Str("template", name).Msg("unknown template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	var contentBuf strings.Builder
	if err := contentTmpl.Execute(&contentBuf, data); err != nil {
		log.Ctx(r.Context()).Err(err).Str("template", name).Msg("failed to render content")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	layout := struct {
		Page    any
		Content template.HTML
	}{
		Page:    data,
		Content: template.HTML(contentBuf.String()),
	}

	var pageBuf strings.Builder
	if err := s.templates[layoutTemplate].Execute(&pageBuf, layout); err != nil {
		log.Ctx(r.Context()).Err(err).Msg("failed to render layout")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(pageBuf.String()))
}
