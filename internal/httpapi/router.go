package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"cityfix/internal/auth"
	"cityfix/internal/config"
	"cityfix/internal/service"
)

// Deps is what the HTTP handlers need from the rest of the process.
type Deps struct {
	Users      *service.Users
	Reports    *service.Reports
	Gate       *auth.Gate
	UploadsDir string
	MaxUpload  int64
	Logger     *slog.Logger
}

// NewRouter wires the JSON API, static uploads and CORS.
func NewRouter(d Deps, allowedOrigins []string) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLog(d.Logger))

	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = allowedOrigins
	}
	r.Use(cors.New(cc))

	h := &handlers{users: d.Users, reports: d.Reports, maxUpload: d.MaxUpload, log: d.Logger}

	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "CityFix API running") })
	if d.UploadsDir != "" {
		r.Static("/uploads", d.UploadsDir)
	}

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.POST("/reports", RequireAuth(d.Gate, d.Logger), h.submitReport)
	}
	return r
}

// StartHTTP serves handler on the configured address and returns a shutdown function.
func StartHTTP(cfg *config.Config, handler http.Handler, logger *slog.Logger) (func(context.Context) error, error) {
	addr := cfg.HTTP.Address
	if addr == "" {
		addr = ":5000"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// Surface immediate bind failures instead of returning a dead server.
	select {
	case err := <-errc:
		if err != nil {
			return nil, err
		}
	case <-time.After(100 * time.Millisecond):
	}
	logger.Info("http server listening", slog.String("addr", addr))
	return srv.Shutdown, nil
}

func requestLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.DebugContext(c.Request.Context(), "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)))
	}
}
