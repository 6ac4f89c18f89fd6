package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pyae198022/ShopHub/internal/models"
)

//go:embed templates/*.html
var embedded embed.FS

// Templates returns the built-in email templates.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplateCache holds parsed email templates keyed by file name.
type TemplateCache struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
	funcs template.FuncMap
}

func NewTemplateCache() *TemplateCache {
	return &TemplateCache{
		cache: make(map[string]*template.Template),
		funcs: template.FuncMap{
			"formatDate": func(t time.Time) string { return t.Format("January 2, 2006") },
		},
	}
}

func (tc *TemplateCache) AddFunc(name string, fn any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.funcs[name] = fn
}

// Load parses every *.html file at the root of fsys.
func (tc *TemplateCache) Load(fsys fs.FS) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return err
	}
	for _, file := range files {
		name := path.Base(file)
		tmpl, err := template.New(name).Funcs(tc.funcs).ParseFS(fsys, file)
		if err != nil {
			slog.Error("Failed to parse template", "file", file, "error", err)
			return err
		}
		tc.cache[name] = tmpl
		slog.Debug("Cached template", "name", name)
	}
	return nil
}

func (tc *TemplateCache) Get(name string) *template.Template {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cache[name]
}

// StatusEmail is the data passed to a status template.
type StatusEmail struct {
	ShortID           string
	Status            models.OrderStatus
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery *time.Time
	StoreName         string
}

var subjects = map[models.OrderStatus]string{
	models.StatusConfirmed:  "Order Confirmed",
	models.StatusProcessing: "Order Processing",
	models.StatusShipped:    "Order Shipped",
	models.StatusDelivered:  "Order Delivered",
}

// Render builds the subject and HTML body for a status change. Statuses
// without a dedicated template get the generic update email.
func (tc *TemplateCache) Render(data StatusEmail) (subject, html string, err error) {
	name := string(data.Status) + ".html"
	title, ok := subjects[data.Status]
	if !ok {
		name, title = "update.html", "Order Update"
	}
	tmpl := tc.Get(name)
	if tmpl == nil {
		return "", "", fmt.Errorf("email template %s not loaded", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return fmt.Sprintf("%s - #%s", title, data.ShortID), strings.TrimSpace(buf.String()), nil
}
