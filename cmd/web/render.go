package main

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rstol/hydrogen/internal/format"
	"github.com/rstol/hydrogen/internal/handlers"
	"github.com/rstol/hydrogen/internal/i18n"
	mw "github.com/rstol/hydrogen/internal/middleware"
)

// renderer parses the shared layout and partials together with one page
// template per outlet. In dev mode templates are reparsed on each request.
type renderer struct {
	dir   string
	dev   bool
	funcs template.FuncMap

	mu    sync.RWMutex
	cache map[string]*template.Template
}

func newRenderer(dir string, dev bool, bundle *i18n.Bundle) (*renderer, error) {
	r := &renderer{
		dir: dir,
		dev: dev,
		funcs: template.FuncMap{
			"now":       time.Now,
			"t":         bundle.T,
			"fmtDate":   format.FmtDate,
			"csrfField": func() string { return mw.CSRFFormField },
		},
		cache: map[string]*template.Template{},
	}
	if dev {
		return r, nil
	}
	pages, err := r.pages()
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		t, err := r.parse(page)
		if err != nil {
			return nil, err
		}
		r.cache[page] = t
	}
	return r, nil
}

// Render executes the base layout with the page's content template.
func (r *renderer) Render(w io.Writer, page string, view *handlers.View) error {
	t, err := r.lookup(page)
	if err != nil {
		return err
	}
	return t.ExecuteTemplate(w, "base", view)
}

func (r *renderer) lookup(page string) (*template.Template, error) {
	if r.dev {
		return r.parse(page)
	}
	r.mu.RLock()
	t, ok := r.cache[page]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("template %q not found", page)
	}
	return t, nil
}

func (r *renderer) parse(page string) (*template.Template, error) {
	shared, err := r.walk("layout", "partials")
	if err != nil {
		return nil, err
	}
	if len(shared) == 0 {
		return nil, fmt.Errorf("no layout templates found under %s", r.dir)
	}
	files := append(shared, filepath.Join(r.dir, "pages", page+".tmpl"))
	return template.New("_root").Funcs(r.funcs).ParseFiles(files...)
}

func (r *renderer) pages() ([]string, error) {
	files, err := r.walk("pages")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, strings.TrimSuffix(filepath.Base(f), ".tmpl"))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no page templates found under %s", r.dir)
	}
	return out, nil
}

// walk collects .tmpl files under the given subdirectories. ParseGlob
// doesn't support **.
func (r *renderer) walk(subdirs ...string) ([]string, error) {
	var files []string
	for _, sub := range subdirs {
		root := filepath.Join(r.dir, sub)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
