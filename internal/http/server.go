package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/cache"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/log"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/middleware/ratelimit"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/middleware/security"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/middleware/trace"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/services"
	appweb "github.com/FirjiAchmad24/dashmonitoring-pln/web"
)

// Pinger reports whether the record store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the use cases the handlers call.
type Services struct {
	Dashboard   *services.DashboardService
	Bfko        *services.BfkoService
	Cards       *services.CardService
	ServiceFees *services.ServiceFeeService
}

// Options tune the server. Zero values pick defaults.
type Options struct {
	ImportMaxBytes    int64
	RequestsPerMinute int
	CacheCleanup      time.Duration
	Logger            *log.Logger
}

const (
	defaultImportMaxBytes = 10 << 20
	jsonBodyLimit         = 1 << 20
)

type Server struct {
	http.Server
	templates *template.Template

	dashboard   *services.DashboardService
	bfko        *services.BfkoService
	cards       *services.CardService
	serviceFees *services.ServiceFeeService
	store       Pinger

	importMaxBytes int64
	logger         *log.Logger
	events         *log.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager
	startedAt        time.Time

	shutdownOnce sync.Once
}

// templateFuncs are available to every page template.
var templateFuncs = template.FuncMap{
	"rupiah":  core.FormatRupiah,
	"compact": core.FormatRupiahCompact,
	"percent": formatPercent,
	"inc":     func(i int) int { return i + 1 },
}

func parseTemplates() (*template.Template, error) {
	return template.New("pages").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, store Pinger, opts Options) *Server {
	if opts.ImportMaxBytes <= 0 {
		opts.ImportMaxBytes = defaultImportMaxBytes
	}
	if opts.CacheCleanup <= 0 {
		opts.CacheCleanup = time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	detector := security.NewDetector()
	s := &Server{
		dashboard:        svc.Dashboard,
		bfko:             svc.Bfko,
		cards:            svc.Cards,
		serviceFees:      svc.ServiceFees,
		store:            store,
		importMaxBytes:   opts.ImportMaxBytes,
		logger:           logger,
		events:           log.NewStructuredLogger(logger),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		cacheManager:     cache.NewManager(),
		startedAt:        time.Now(),
	}

	t, err := parseTemplates()
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if s.dashboard != nil {
		s.cacheManager.Register(s.dashboard.Cache())
	}
	s.cacheManager.StartCleanup(opts.CacheCleanup)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimit)(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.Middleware(logger, trace.GetRequestID)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboardAPI)

	mux.HandleFunc("GET /bfko", s.handleBfkoPage)
	mux.HandleFunc("DELETE /bfko", s.handleBfkoDeleteAll)
	mux.HandleFunc("GET /bfko/employees/{nip}", s.handleBfkoEmployee)
	mux.HandleFunc("DELETE /bfko/employees/{nip}", s.handleBfkoDeleteEmployee)
	mux.HandleFunc("POST /bfko/payments", s.handleBfkoCreatePayment)
	mux.HandleFunc("PUT /bfko/payments/{id}", s.handleBfkoUpdatePayment)
	mux.HandleFunc("DELETE /bfko/payments/{id}", s.handleBfkoDeletePayment)
	mux.HandleFunc("POST /bfko/import", s.handleBfkoImport)
	mux.HandleFunc("GET /bfko/export/excel", s.handleBfkoExportExcel)
	mux.HandleFunc("GET /bfko/export/pdf", s.handleBfkoExportPDF)

	mux.HandleFunc("GET /cc-card", s.handleCardPage)
	mux.HandleFunc("GET /cc-card/autocomplete", s.handleCardAutocomplete)
	mux.HandleFunc("GET /cc-card/transactions", s.handleCardList)
	mux.HandleFunc("POST /cc-card/transactions", s.handleCardCreate)
	mux.HandleFunc("GET /cc-card/transactions/{id}", s.handleCardGet)
	mux.HandleFunc("PUT /cc-card/transactions/{id}", s.handleCardUpdate)
	mux.HandleFunc("DELETE /cc-card/transactions/{id}", s.handleCardDelete)
	mux.HandleFunc("POST /cc-card/import", s.handleCardImport)
	mux.HandleFunc("GET /cc-card/fees", s.handleCardFees)
	mux.HandleFunc("PUT /cc-card/fees", s.handleCardSaveFees)
	mux.HandleFunc("DELETE /cc-card/fees", s.handleCardDeleteFee)
	mux.HandleFunc("DELETE /cc-card/sheets", s.handleCardDeleteSheet)

	mux.HandleFunc("GET /service-fees", s.handleServiceFeeList)
	mux.HandleFunc("POST /service-fees", s.handleServiceFeeCreate)
	mux.HandleFunc("DELETE /service-fees/{id}", s.handleServiceFeeDelete)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Terlalu banyak permintaan, coba lagi nanti").Write(w)
}

// Shutdown stops background loops and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
