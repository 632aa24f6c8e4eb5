package commands

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	goAuthen "github.com/MrEthical07/goAuthen"
	promexport "github.com/MrEthical07/goAuthen/metrics/export/prometheus"
	"github.com/MrEthical07/goAuthen/runmode"
	"github.com/MrEthical07/goAuthen/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a demo site for every configured app",
	Long: `serve mounts each app under /<app>/ with a public "start" page and a
protected "private" page, plus one page for every run-mode listed in the
app's protect setting. /metrics exposes the engine counters and /health
reports liveness.

When redis is set, logins are kept in server-side sessions.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newLogger()
	engine, err := cfg.buildEngine(logger, os.Stderr)
	if err != nil {
		return err
	}
	defer engine.Close()

	var sessions *session.Manager
	var sessionStore *session.Store
	if cfg.Redis != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis})
		defer rdb.Close()
		sessionStore = session.NewStore(rdb, "", 24*time.Hour, true, true, time.Minute)
		sessions = session.NewManager(sessionStore, session.CookieConfig{})
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newRouter(cfg, engine, sessions, sessionStore, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen, "apps", cfg.appNames())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg *fileConfig, engine *goAuthen.Engine, sessions *session.Manager, sessionStore *session.Store, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if sessionStore != nil {
			if _, err := sessionStore.Ping(req.Context()); err != nil {
				logger.Warn("health check failed", "error", err)
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promexport.NewCollector(engine).Handler())

	for _, name := range cfg.appNames() {
		var opts []runmode.Option
		if sessions != nil {
			opts = append(opts, runmode.WithSessions(sessions))
		}
		mux := runmode.NewMux(engine, name, opts...)
		mux.Handle("start", demoPage(name, "start"))
		mux.HandleProtected("private", demoPage(name, "private"))
		for _, rm := range cfg.Apps[name].Protect {
			mux.HandleProtected(rm, demoPage(name, rm))
		}
		r.Handle("/"+name+"/", mux)
	}
	return r
}

var demoTemplate = template.Must(template.New("demo").Parse(`<!doctype html>
<title>{{.App}}: {{.Runmode}}</title>
<h1>{{.App}}: {{.Runmode}}</h1>
{{- if .User}}
<p>Signed in as {{.User}}. <a href="?authen_logout=1">Sign out</a></p>
{{- else}}
<p>Not signed in. <a href="?rm=private">Private page</a></p>
{{- end}}
`))

func demoPage(app, rm string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := struct{ App, Runmode, User string }{App: app, Runmode: rm}
		if c, ok := goAuthen.ControllerFromContext(r.Context()); ok {
			data.User = c.Username()
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := demoTemplate.Execute(w, data); err != nil {
			http.Error(w, fmt.Sprintf("render: %v", err), http.StatusInternalServerError)
		}
	}
}
