package server

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/sheet-extractor/internal/auth"
	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/export"
	"github.com/joseph-ayodele/sheet-extractor/internal/ingest"
	"github.com/joseph-ayodele/sheet-extractor/internal/llm"
	mw "github.com/joseph-ayodele/sheet-extractor/internal/middleware"
	"github.com/joseph-ayodele/sheet-extractor/internal/pipeline"
	"github.com/joseph-ayodele/sheet-extractor/internal/repository"
	"github.com/joseph-ayodele/sheet-extractor/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const loginPath = "/login"

// Deps is everything the web layer needs.
type Deps struct {
	Config    *common.Config
	Gate      *auth.Gate
	Sessions  *session.Manager
	Images    *ingest.Ingestor
	Exporter  *export.Service
	Ledger    repository.LedgerStore
	Materials *repository.MaterialRegistry // nil unless the materials variant is on
	Processor *pipeline.Processor
	Logger    *slog.Logger
}

// Server renders the submit, history and materials views.
type Server struct {
	Deps
	pages map[string]*template.Template
}

func New(d Deps) (*Server, error) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Config == nil {
		d.Config = common.Defaults()
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{Deps: d, pages: pages}, nil
}

// Router wires every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID(s.Logger))
	r.Use(mw.Recovery(s.Logger))
	r.Use(mw.Logger(s.Logger))
	r.Use(s.Sessions.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get(loginPath, s.loginForm)
	r.Post(loginPath, s.login)

	r.Group(func(r chi.Router) {
		r.Use(session.RequireAuth(loginPath))

		r.Post("/logout", s.logout)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/submit", http.StatusSeeOther)
		})

		r.Get("/submit", s.submitForm)
		r.Post("/submit", s.submit)
		if s.Config.Features.PersistImage {
			r.Post("/submit/preview", s.preview)
		}

		r.Get("/history", s.history)

		if s.Config.Features.Materials && s.Materials != nil {
			r.Get("/materials", s.materialsForm)
			r.Post("/materials", s.saveMaterials)
		}

		r.Get("/files/images/{name}", s.serveImage)
		r.Get("/files/sheets/{name}", s.serveSheet)
	})

	return r
}

// nav is shared by every page layout.
type nav struct {
	Authenticated bool
	Materials     bool
	Active        string
}

func (s *Server) nav(r *http.Request, active string) nav {
	return nav{
		Authenticated: session.FromContext(r.Context()).Authenticated,
		Materials:     s.Config.Features.Materials && s.Materials != nil,
		Active:        active,
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := s.pages[page]
	if !ok {
		http.Error(w, "unknown page "+page, http.StatusInternalServerError)
		return
	}
	var b strings.Builder
	if err := t.ExecuteTemplate(&b, "layout", data); err != nil {
		common.LoggerFromContext(r.Context(), s.Logger).Error("http.render.failed", "page", page, "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(b.String()))
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	"cell": func(t *llm.Table, i int, col string) string {
		v := t.Cell(i, col)
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	},
	"contains": func(list []string, s string) bool {
		for _, x := range list {
			if x == s {
				return true
			}
		}
		return false
	},
}

func parsePages() (map[string]*template.Template, error) {
	pages := map[string]*template.Template{}
	for _, name := range []string{"login", "submit", "history", "materials"} {
		t, err := template.New(name).Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}
