package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/valhalla/console/internal/rbac"
	"github.com/valhalla/console/internal/shared"
	"github.com/valhalla/console/web"
)

// Viewer describes who is looking at the page.
type Viewer struct {
	Authenticated bool
	UserID        string
	Username      string
	RoleName      string
	RoleKey       string
	Role          rbac.Role
}

// Layout carries the chrome shared by authenticated pages.
type Layout struct {
	Viewer      Viewer
	Sidebar     []rbac.SidebarItem
	DefaultPath string
}

// LayoutFunc derives the layout of one request.
type LayoutFunc func(r *http.Request) Layout

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
	layout    LayoutFunc
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Layout      Layout
	Data        any
}

var printer = message.NewPrinter(language.Spanish)

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate":   formatDate,
		"formatMoney":  formatMoney,
		"formatNumber": formatNumber,
		"isActive": func(current, path string) bool {
			return current == path || strings.HasPrefix(current, path+"/")
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// SetLayout installs the function filling TemplateData.Layout in RenderRequest.
func (e *Engine) SetLayout(fn LayoutFunc) {
	e.layout = fn
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// RenderRequest renders name with the request layout and the given status.
// The page is buffered so template failures never emit a partial body.
func (e *Engine) RenderRequest(w http.ResponseWriter, r *http.Request, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	if data.CurrentPath == "" {
		data.CurrentPath = r.URL.Path
	}
	if e.layout != nil {
		data.Layout = e.layout(r)
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006 15:04")
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.Format("02 Jan 2006 15:04")
		}
		return t
	}
	return ""
}

func formatMoney(v any) string {
	amount, ok := toFloat(v)
	if !ok {
		return ""
	}
	return "$ " + printer.Sprint(number.Decimal(amount, number.MaxFractionDigits(0)))
}

func formatNumber(v any) string {
	n, ok := toFloat(v)
	if !ok {
		return "—"
	}
	return printer.Sprint(number.Decimal(n, number.MaxFractionDigits(2)))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case *int:
		if n == nil {
			return 0, false
		}
		return float64(*n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
