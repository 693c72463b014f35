package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-parks/internal/api"
	"github.com/joeblew999/plat-parks/internal/api/ui"
	"github.com/joeblew999/plat-parks/internal/db"
	"github.com/joeblew999/plat-parks/internal/humastar"
	"github.com/joeblew999/plat-parks/internal/kv"
	"github.com/joeblew999/plat-parks/internal/logging"
	"github.com/joeblew999/plat-parks/internal/nps"
	"github.com/joeblew999/plat-parks/internal/service"
	"github.com/joeblew999/plat-parks/internal/session"
	"github.com/joeblew999/plat-parks/internal/templates"
	"github.com/joeblew999/plat-parks/web"
)

// Favorites storage backends.
const (
	StoreDuckDB = "duckdb"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// CookieName holds the browser ID that scopes favorites.
const CookieName = "parks_session"

// Config holds the server configuration.
type Config struct {
	Host      string
	Port      string
	DataDir   string
	WebDir    string // Path to web/ directory; the embedded copy is used when empty
	NPSAPIKey string
	NPSURL    string
	StateCode string
	Store     string // duckdb, redis or memory
	RedisAddr string
	// Parks replaces the NPS client, mainly for tests.
	Parks nps.Fetcher
	Log   *zerolog.Logger
}

// Server is the parks HTTP server.
type Server struct {
	config   Config
	log      *zerolog.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	redis    *kv.Redis
	store    string
	services *api.Services
	renderer *templates.Renderer
	bus      *service.EventBus
	sessions *session.Manager
	cancel   context.CancelFunc
}

// New creates a new parks server.
func New(cfg Config) (*Server, error) {
	if cfg.Log == nil {
		cfg.Log = logging.Default()
	}
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-parks API", "1.0.0")
	humaConfig.Info.Description = "National Park Service sites near Oregon, with a live map and per-browser favorites."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, humastar.LinkTransformer())

	s := &Server{
		config:  cfg,
		log:     cfg.Log,
		mux:     mux,
		humaAPI: humago.New(mux, humaConfig),
		bus:     service.NewEventBus(),
	}

	renderer, err := s.loadRenderer()
	if err != nil {
		return nil, err
	}
	s.renderer = renderer

	// DuckDB backs the park archive and, by default, favorites.
	conn, err := db.Open(db.Config{DataDir: cfg.DataDir, DBName: "parks"})
	if err != nil {
		s.log.Warn().Err(err).Msg("DuckDB unavailable, archive disabled")
	} else {
		s.db = conn
	}

	fetcher := cfg.Parks
	if fetcher == nil {
		client := nps.NewClient(cfg.NPSAPIKey)
		if cfg.NPSURL != "" {
			client.BaseURL = cfg.NPSURL
		}
		if cfg.StateCode != "" {
			client.StateCode = cfg.StateCode
		}
		fetcher = client
	}
	var archive nps.Archive
	if s.db != nil {
		archive = db.NewArchive(s.db)
	}
	repo := nps.NewRepository(fetcher, archive, s.log)
	s.services = &api.Services{Parks: repo}

	region := service.Oregon
	if cfg.StateCode != "" {
		region.StateCode = cfg.StateCode
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.sessions = session.NewManager(ctx, session.Config{
		Parks:   repo,
		Storage: s.openStore(),
		Bus:     s.bus,
		Region:  region,
		InfoContent: func(p service.ParkData) string {
			out, err := s.renderer.Render("park-info", p)
			if err != nil {
				s.log.Error().Err(err).Str("park", p.ID).Msg("Rendering park info")
			}
			return out
		},
		Log: s.log,
	})
	go s.sessions.Run(ctx, time.Minute, session.DefaultIdleTTL)

	s.routes()
	return s, nil
}

func (s *Server) loadRenderer() (*templates.Renderer, error) {
	if s.config.WebDir != "" {
		fragmentsDir := filepath.Join(s.config.WebDir, "templates", "fragments")
		if r, err := templates.New(fragmentsDir); err == nil {
			s.log.Info().Str("dir", fragmentsDir).Msg("Loaded fragment templates")
			return r, nil
		}
	}
	return templates.NewFromFS(web.Fragments())
}

// openStore picks the favorites backend. A backend that cannot be opened
// falls back to memory so favorites still work for the process lifetime.
func (s *Server) openStore() kv.Store {
	s.store = s.config.Store
	switch s.store {
	case StoreRedis:
		if client := kv.OpenRedis(s.config.RedisAddr, "", 0); client != nil {
			r := kv.NewRedis(client, "parks:")
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := r.Ping(ctx); err != nil {
				s.log.Warn().Err(err).Str("addr", s.config.RedisAddr).Msg("Redis unreachable, favorites may not persist")
			}
			s.redis = r
			return r
		}
		s.log.Warn().Msg("No Redis address, using in-memory favorites")
	case StoreMemory:
		return kv.NewMemory()
	default:
		if s.db != nil {
			s.store = StoreDuckDB
			return db.NewKV(s.db)
		}
		s.log.Warn().Msg("DuckDB unavailable, using in-memory favorites")
	}
	s.store = StoreMemory
	return kv.NewMemory()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Sessions returns the live session manager.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Close closes server resources.
func (s *Server) Close() error {
	s.cancel()
	s.sessions.Close()
	if s.redis != nil {
		s.redis.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	huma.AutoRegister(s.humaAPI, api.NewInfoHandler(s.config.DataDir, s.store, s.db != nil))
	huma.AutoRegister(s.humaAPI, api.NewArchiveHandler(s.db))
	huma.AutoRegister(s.humaAPI, ui.NewHandler(s.sessions, s.bus, s.renderer))
	humastar.AutoLinks(s.humaAPI)

	var static fs.FS = web.Static()
	if s.config.WebDir != "" {
		dir := filepath.Join(s.config.WebDir, "static")
		if _, err := os.Stat(dir); err == nil {
			static = os.DirFS(dir)
		}
	}
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	s.mux.HandleFunc("/{$}", s.handlePage)
}

// pageSignals are the initial Datastar signals of a page view.
type pageSignals struct {
	SID               string         `json:"sid"`
	MapWidget         bool           `json:"mapwidget"`
	ParkTypeFilter    string         `json:"parkTypeFilter"`
	OnlyShowFavorites bool           `json:"onlyShowFavorites"`
	Error             string         `json:"error"`
	Loading           bool           `json:"loading"`
	Map               map[string]any `json:"map"`
}

// handlePage starts a session for the page view and renders the shell. The
// cookie keeps favorites across page views of the same browser.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	for _, link := range humastar.RootLinks() {
		w.Header().Add("Link", link)
	}

	browserID := ""
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		browserID = c.Value
	} else {
		browserID = session.NewID()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    browserID,
			Path:     "/",
			MaxAge:   365 * 24 * 60 * 60,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	sess := s.sessions.Create(browserID)
	signals, err := json.Marshal(pageSignals{SID: sess.ID, Loading: true, Map: map[string]any{}})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out, err := s.renderer.Render("page", map[string]any{
		"Title":     "Parks near Oregon",
		"SessionID": sess.ID,
		"Signals":   string(signals),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Rendering page")
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(out))
}
