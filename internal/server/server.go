// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Olisehgenesis/lait/internal/admins"
	"github.com/Olisehgenesis/lait/internal/assets"
	"github.com/Olisehgenesis/lait/internal/audit"
	"github.com/Olisehgenesis/lait/internal/bank"
	"github.com/Olisehgenesis/lait/internal/config"
	"github.com/Olisehgenesis/lait/internal/fees"
	"github.com/Olisehgenesis/lait/internal/limits"
	"github.com/Olisehgenesis/lait/internal/logging"
	"github.com/Olisehgenesis/lait/internal/metrics"
	"github.com/Olisehgenesis/lait/internal/orders"
	"github.com/Olisehgenesis/lait/internal/policy"
	"github.com/Olisehgenesis/lait/internal/ratelimit"
	"github.com/Olisehgenesis/lait/internal/rates"
	"github.com/Olisehgenesis/lait/internal/realtime"
	"github.com/Olisehgenesis/lait/internal/security"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	admins       *admins.Registry
	assets       *assets.Registry
	fees         *fees.Engine
	rates        *rates.Service
	policy       *policy.Service
	limits       *limits.Tracker
	bank         *bank.MemoryBank
	transfer     bank.Transfer
	recorder     *audit.Recorder
	orders       *orders.Service
	ordersTimer  *orders.Timer
	realtimeHub  *realtime.Hub
	rateLimiter  *ratelimit.Limiter
	promRegistry *prometheus.Registry
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTransfer sets a custom value-transfer backend (for testing or a
// real custodian integration).
func WithTransfer(t bank.Transfer) Option {
	return func(s *Server) {
		s.transfer = t
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set transfer/logger)
	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	// Store backends (Postgres if DATABASE_URL set, otherwise in-memory)
	var (
		auditStore  audit.Store
		adminStore  admins.Store
		assetStore  assets.Store
		feeStore    fees.Store
		rateStore   rates.Store
		policyStore policy.Store
		limitStore  limits.Store
		orderStore  orders.Store
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		auditStore = audit.NewPostgresStore(db)
		adminStore = admins.NewPostgresStore(db)
		assetStore = assets.NewPostgresStore(db)
		feeStore = fees.NewPostgresStore(db)
		rateStore = rates.NewPostgresStore(db)
		policyStore = policy.NewPostgresStore(db)
		limitStore = limits.NewPostgresStore(db)
		orderStore = orders.NewPostgresStore(db)
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))
	} else {
		auditStore = audit.NewMemoryStore()
		adminStore = admins.NewMemoryStore()
		assetStore = assets.NewMemoryStore()
		feeStore = fees.NewMemoryStore()
		rateStore = rates.NewMemoryStore()
		policyStore = policy.NewMemoryStore()
		limitStore = limits.NewMemoryStore()
		orderStore = orders.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Audit trail first: every other component records onto it
	s.recorder = audit.NewRecorder(auditStore, s.logger)

	// Realtime hub streams the audit trail to WebSocket clients
	s.realtimeHub = realtime.NewHub(s.logger)
	s.recorder.AddSink(s.realtimeHub)

	// Governance: owner-rooted admin registry
	registry, err := admins.NewRegistry(ctx, cfg.OwnerAddress, adminStore, s.recorder)
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap admin registry: %w", err)
	}
	s.admins = registry
	s.logger.Info("admin registry ready", "owner", cfg.OwnerAddress)

	// Asset whitelist (native asset supported out of the box)
	assetRegistry, err := assets.NewRegistry(ctx, assetStore, s.admins, s.recorder)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize asset registry: %w", err)
	}
	s.assets = assetRegistry

	s.fees = fees.NewEngine(feeStore, s.admins, s.recorder)
	s.rates = rates.NewService(rateStore, s.admins, s.recorder)

	s.policy = policy.NewService(policyStore, &configureGate{s.admins}, s.recorder, policy.Defaults{
		DailyFiatLimit: cfg.DailyFiatLimit,
		RefundWindow:   cfg.RefundWindow,
		ExpiryGrace:    cfg.ExpiryGrace,
		Treasury:       cfg.TreasuryAddress,
	})

	s.limits = limits.NewTracker(limitStore, s.policy)

	// Value transfer backend. The in-process bank is the default; a real
	// custodian integration is injected via WithTransfer.
	s.bank = bank.NewMemoryBank()
	if s.transfer == nil {
		s.transfer = s.bank
	}

	s.orders = orders.NewService(
		orderStore,
		&settleGate{s.admins},
		s.admins,
		s.assets,
		&feeAdapter{s.fees},
		s.limits,
		s.transfer,
		s.policy,
		s.recorder,
		cfg.MaxMetadata,
	)
	s.ordersTimer = orders.NewTimer(s.orders, orderStore, s.logger)
	s.logger.Info("order ledger ready",
		"refundWindow", cfg.RefundWindow.String(),
		"expiryGrace", cfg.ExpiryGrace.String(),
	)

	// Prometheus registry
	s.promRegistry = prometheus.NewRegistry()
	metrics.Register(s.promRegistry)

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.FromContext(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Rate limiting
	limiterCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPS > 0 {
		limiterCfg.RequestsPerSecond = s.cfg.RateLimitRPS
	}
	s.rateLimiter = ratelimit.New(limiterCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithLogger(c.Request.Context(), s.logger.With("request_id", requestID))
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.FromContext(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// identityMiddleware resolves the caller identity from the X-Account
// header. Deployments front this service with an authenticating proxy
// that verifies the caller and injects the header; the ledger itself
// enforces privilege, not authentication.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if account := strings.TrimSpace(c.GetHeader("X-Account")); account != "" {
			c.Set("authAccount", strings.ToLower(account))
		}
		c.Next()
	}
}

// requireIdentity rejects requests with no resolved caller identity.
func requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("authAccount") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_identity",
				"message": "X-Account header is required for this operation",
			})
			return
		}
		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler(s.promRegistry))

	// WebSocket for real-time streaming of the audit trail
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// API info
	s.router.GET("/api", s.infoHandler)

	// V1 API group
	v1 := s.router.Group("/v1")
	v1.Use(identityMiddleware())

	v1.GET("/platform", s.platformHandler)

	orderHandler := orders.NewHandler(s.orders)
	adminHandler := admins.NewHandler(s.admins)
	assetHandler := assets.NewHandler(s.assets)
	feeHandler := fees.NewHandler(s.fees)
	rateHandler := rates.NewHandler(s.rates)
	policyHandler := policy.NewHandler(s.policy)
	auditHandler := audit.NewHandler(s.recorder)

	// PUBLIC ROUTES (no identity required)
	// Discovery and read endpoints, plus permissionless expiry
	orderHandler.RegisterRoutes(v1)
	assetHandler.RegisterRoutes(v1)
	feeHandler.RegisterRoutes(v1)
	rateHandler.RegisterRoutes(v1)
	auditHandler.RegisterRoutes(v1)

	// PROTECTED ROUTES (require a caller identity)
	// Privilege checks (owner, admin, capability, record ownership)
	// happen inside each service.
	protected := v1.Group("")
	protected.Use(requireIdentity())
	{
		orderHandler.RegisterProtectedRoutes(protected)
		adminHandler.RegisterRoutes(protected)
		assetHandler.RegisterProtectedRoutes(protected)
		feeHandler.RegisterProtectedRoutes(protected)
		rateHandler.RegisterProtectedRoutes(protected)
		policyHandler.RegisterProtectedRoutes(protected)
	}

	// Demo bank routes (faucet and pre-authorization) outside production
	if !s.cfg.IsProduction() {
		bankHandler := bank.NewHandler(s.bank)
		bankHandler.RegisterRoutes(v1)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	checks := make(map[string]string)

	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	for _, v := range checks {
		if v != "healthy" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "lait",
		"description": "Custodial escrow ledger for fiat/crypto exchange",
		"version":     "0.1.0",
	})
}

// platformHandler returns platform info including the treasury account
func (s *Server) platformHandler(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"platform": gin.H{
			"name":     "lait",
			"version":  "0.1.0",
			"treasury": s.policy.Treasury(ctx),
			"paused":   s.policy.Paused(ctx),
		},
		"instructions": gin.H{
			"buy":    "POST /v1/orders with direction BUY. The asset amount is pulled into escrow immediately.",
			"sell":   "POST /v1/orders with direction SELL after pre-authorizing the amount. The asset moves at fill time.",
			"unwind": "POST /v1/orders/{id}/refund once the refund window passes, or anyone may expire after the grace period.",
		},
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"owner", s.cfg.OwnerAddress,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Start order expiry timer
	go s.ordersTimer.Start(runCtx)

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, timer)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop order expiry timer
	if s.ordersTimer != nil {
		s.ordersTimer.Stop()
		s.logger.Info("order expiry timer stopped")
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Bank returns the in-process bank for test funding
func (s *Server) Bank() *bank.MemoryBank {
	return s.bank
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

// -----------------------------------------------------------------------------
// Adapters
// -----------------------------------------------------------------------------

// configureGate adapts the admin registry to policy.Gate
type configureGate struct {
	reg *admins.Registry
}

func (g *configureGate) CanConfigure(ctx context.Context, caller string) bool {
	return g.reg.Authorized(ctx, caller, admins.CapConfigure)
}

// settleGate adapts the admin registry to orders.Gate
type settleGate struct {
	reg *admins.Registry
}

func (g *settleGate) CanSettle(ctx context.Context, caller string) bool {
	return g.reg.Authorized(ctx, caller, admins.CapSettle)
}

// feeAdapter adapts fees.Engine to orders.FeeSource
type feeAdapter struct {
	engine *fees.Engine
}

func (a *feeAdapter) Fee(ctx context.Context, asset string, amount int64, direction orders.Direction) (int64, error) {
	return a.engine.Compute(ctx, asset, amount, fees.Direction(direction))
}
