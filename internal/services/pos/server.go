package pos

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/metrics"
	"cafe-pos/internal/models"
	"cafe-pos/internal/services/checkout"
	"cafe-pos/internal/services/queue"
	"cafe-pos/internal/services/tracking"
)

// Orders is the status side of the order service.
type Orders interface {
	MarkReady(ctx context.Context, orderID int64, changedBy string) error
	MarkServed(ctx context.Context, orderID int64, changedBy string) error
	Cancel(ctx context.Context, orderID int64, changedBy, reason string) error
	SettleReceipt(ctx context.Context, paymentRef, paymentStatus string) error
}

type Queue interface {
	Page(ctx context.Context, n int) (queue.Page, error)
}

type Tracking interface {
	GetOrderStatus(ctx context.Context, orderID int64) (*models.OrderStatusResponse, error)
	GetOrderHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error)
	ListReceipts(ctx context.Context, limit int) ([]models.Receipt, error)
	GetBaristaStatus(ctx context.Context) ([]tracking.BaristaStatus, error)
	HealthCheck(ctx context.Context) bool
}

type Catalog interface {
	Items() []models.CatalogItem
}

type Attendants interface {
	List() []models.Attendant
}

// Deps wires the HTTP surface to the services behind it. Push serves the
// ready channel and may be nil.
type Deps struct {
	Checkout   *checkout.Registry
	Orders     Orders
	Queue      Queue
	Tracking   Tracking
	Catalog    Catalog
	Attendants Attendants
	Push       http.Handler
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

// Server is the terminal-facing HTTP API.
type Server struct {
	checkout   *checkout.Registry
	orders     Orders
	queue      Queue
	tracking   Tracking
	catalog    Catalog
	attendants Attendants
	push       http.Handler
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Server{
		checkout:   deps.Checkout,
		orders:     deps.Orders,
		queue:      deps.Queue,
		tracking:   deps.Tracking,
		catalog:    deps.Catalog,
		attendants: deps.Attendants,
		push:       deps.Push,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/catalog", s.listCatalog)
	r.Get("/attendants", s.listAttendants)

	r.Route("/terminals/{terminal}", func(r chi.Router) {
		r.Use(validTerminal)
		r.Get("/session", s.getSession)
		r.Delete("/cart", s.cancelOrder)
		r.Post("/cart/select", s.selectItem)
		r.Post("/cart/confirm", s.confirmAdd)
		r.Delete("/cart/draft", s.cancelDraft)
		r.Delete("/cart/lines/{index}", s.removeLine)
		r.Post("/cart/lines/{index}/quantity", s.changeQuantity)
		r.Put("/attendant", s.selectAttendant)
		r.Delete("/attendant", s.clearAttendant)
		r.Post("/payments/cash", s.beginCash)
		r.Post("/payments/cash/keys", s.pressKey)
		r.Post("/payments/cash/commit", s.commitCash)
		r.Post("/payments/qr", s.beginQR)
		r.Delete("/payments", s.cancelPayment)
	})
	r.Post("/payments/callback", s.paymentCallback)

	r.Get("/queue", s.getQueue)
	r.Route("/orders/{id}", func(r chi.Router) {
		r.Post("/ready", s.markReady)
		r.Post("/served", s.markServed)
		r.Post("/cancel", s.cancelOrderStatus)
		r.Get("/status", s.orderStatus)
		r.Get("/history", s.orderHistory)
	})
	r.Get("/receipts", s.listReceipts)
	r.Get("/baristas/status", s.baristaStatus)

	if s.push != nil {
		r.Method(http.MethodGet, "/ws/ready", s.push)
	}
	return r
}

// requestLogger stores the request id for the logger and records the request
// in the http metrics once the handler returns.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logger.WithRequestID(r.Context(), requestID)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.metrics.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Milliseconds()))

		s.logger.Debug("request_completed", r.Method+" "+route, requestID, map[string]interface{}{
			"status":      status,
			"duration_ms": elapsed.Milliseconds(),
			"remote_addr": r.RemoteAddr,
		})
	})
}

var terminalPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

func validTerminal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !terminalPattern.MatchString(chi.URLParam(r, "terminal")) {
			writeError(w, r, models.NewValidationError("terminal", "terminal id must be 1-32 letters, digits, '-' or '_'"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) session(r *http.Request) *checkout.Session {
	return s.checkout.Session(chi.URLParam(r, "terminal"))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := s.tracking.HealthCheck(ctx)
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "cafe-pos",
		"healthy":   healthy,
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		response["status"] = "unhealthy"
	}
	writeJSON(w, status, response)
}
