// Package server exposes the HTTP surface: the purchase webhook that
// triggers selection, the read paths the portal and print pages consume,
// and the admin import endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meal-menu-service/internal/auth"
	"meal-menu-service/internal/config"
	"meal-menu-service/internal/importer"
	"meal-menu-service/internal/ledger"
	"meal-menu-service/internal/match"
	"meal-menu-service/internal/metrics"
	"meal-menu-service/internal/ratelimit"
	"meal-menu-service/internal/recipe"
	"meal-menu-service/internal/selection"
)

// Server wires the engine and its collaborators into HTTP routes.
type Server struct {
	engine   *selection.Engine
	ledger   *ledger.Ledger
	store    *recipe.Repository
	resolver *match.Resolver
	importer *importer.Importer
	metrics  *metrics.Store
	issuer   *auth.TokenIssuer
	limiter  ratelimit.Limiter
	idem     *IdempotencyStore
	cfg      *config.Config
	logger   *zap.Logger

	mealTypes []recipe.MealType
	http      *http.Server
}

// New creates a Server.
func New(
	engine *selection.Engine,
	led *ledger.Ledger,
	store *recipe.Repository,
	resolver *match.Resolver,
	imp *importer.Importer,
	metricsStore *metrics.Store,
	issuer *auth.TokenIssuer,
	limiter ratelimit.Limiter,
	idem *IdempotencyStore,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		engine:   engine,
		ledger:   led,
		store:    store,
		resolver: resolver,
		importer: imp,
		metrics:  metricsStore,
		issuer:   issuer,
		limiter:  limiter,
		idem:     idem,
		cfg:      cfg,
		logger:   logger,
	}

	for _, mt := range cfg.Selection.MealTypes {
		s.mealTypes = append(s.mealTypes, recipe.MealType(mt))
	}
	if len(s.mealTypes) == 0 {
		s.mealTypes = []recipe.MealType{recipe.MealDinner}
	}
	return s
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.New())
	r.Use(requestLogger(s.logger))
	if s.cfg.RateLimit.Enabled && s.limiter != nil {
		r.Use(rateLimit(s.limiter, s.logger))
	}

	r.GET("/healthz", s.handleHealth)

	r.POST("/webhooks/purchase", s.handlePurchaseWebhook)

	r.GET("/calendar/:customer/:period", s.handleGetCalendar)
	r.GET("/recipes/resolve", s.handleResolveRecipe)
	r.GET("/recipes/:id", s.handleGetRecipe)

	// Admin routes require a configured token issuer.
	if s.issuer != nil {
		r.POST("/admin/login", s.handleAdminLogin)
		admin := r.Group("/admin", adminAuth(s.issuer))
		admin.POST("/import", s.handleAdminImport)
		admin.GET("/metrics/summary", s.handleMetricsSummary)
	}

	return r
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return s.http.Shutdown(shutdownCtx)
	}
}
