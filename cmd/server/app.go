package main

import (
	"net/http"
	"time"

	"github.com/diewo77/gst-ledger/internal/auth"
	"github.com/diewo77/gst-ledger/internal/gate"
	"github.com/diewo77/gst-ledger/internal/handlers"
	"github.com/diewo77/gst-ledger/internal/logger"
	"github.com/diewo77/gst-ledger/internal/policy"
	"github.com/diewo77/gst-ledger/internal/services"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP app is built from.
type Deps struct {
	DB       *gorm.DB
	Tokens   *auth.Tokens
	Verifier services.GatewayVerifier
	Location *time.Location
	Options  []services.Option
}

// App is the main application handler that sets up all routes.
type App struct {
	mux      *http.ServeMux
	tokens   *auth.Tokens
	authGate *policy.AuthGate

	invoices *handlers.InvoiceHandler
	payments *handlers.PaymentHandler
	taxes    *handlers.TaxHandler
	health   *handlers.HealthHandler
}

// NewApp creates a new application with all routes configured.
func NewApp(d Deps) *App {
	opts := append([]services.Option{services.WithLocation(d.Location)}, d.Options...)
	dir := services.NewDirectory(d.DB, 0)
	authGate := policy.NewAuthGate()

	app := &App{
		mux:      http.NewServeMux(),
		tokens:   d.Tokens,
		authGate: authGate,
		invoices: handlers.NewInvoiceHandler(
			services.NewInvoiceService(d.DB, dir, opts...),
			services.NewOutbox(d.DB),
			authGate,
			d.Location,
		),
		payments: handlers.NewPaymentHandler(services.NewPaymentRecorder(d.DB, dir, d.Verifier, opts...), d.Location),
		taxes:    handlers.NewTaxHandler(dir),
		health:   handlers.NewHealthHandler(d.DB),
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.tokens.Middleware(a.mux).ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	a.mux.HandleFunc("GET /healthz", a.health.Healthz)

	ih := a.invoices
	a.mux.Handle("POST /api/invoices", a.protect(policy.ResourceInvoice, gate.ActionCreate, ih.Create))
	a.mux.Handle("GET /api/invoices", a.protect(policy.ResourceInvoice, gate.ActionList, ih.List))
	a.mux.Handle("GET /api/invoices/{id}", a.protect(policy.ResourceInvoice, gate.ActionView, ih.View))
	a.mux.Handle("PUT /api/invoices/{id}/items", a.protect(policy.ResourceInvoice, gate.ActionUpdate, ih.UpdateItems))
	a.mux.Handle("POST /api/invoices/{id}/finalize", a.protect(policy.ResourceInvoice, gate.ActionFinalize, ih.Finalize))
	a.mux.Handle("POST /api/invoices/{id}/cancel", a.protect(policy.ResourceInvoice, gate.ActionCancel, ih.Cancel))
	a.mux.Handle("GET /api/invoices/{id}/events", a.protect(policy.ResourceInvoice, gate.ActionView, ih.Events))

	ph := a.payments
	a.mux.Handle("GET /api/invoices/{id}/payments", a.protect(policy.ResourcePayment, gate.ActionList, ph.List))
	a.mux.Handle("POST /api/invoices/{id}/payments", a.protect(policy.ResourcePayment, gate.ActionRecord, ph.Record))
	a.mux.Handle("POST /api/invoices/{id}/gateway-payments", a.protect(policy.ResourcePayment, gate.ActionRecord, ph.RecordGateway))
	a.mux.Handle("PUT /api/payments/{id}", a.protect(policy.ResourcePayment, gate.ActionUpdate, ph.Edit))
	a.mux.Handle("DELETE /api/payments/{id}", a.protect(policy.ResourcePayment, gate.ActionReverse, ph.Reverse))

	a.mux.Handle("POST /api/tax/split", a.protect(policy.ResourceTax, gate.ActionQuote, a.taxes.Split))
}

// protect requires a principal and the resource:action capability.
func (a *App) protect(resourceType string, action gate.Action, h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(a.authGate.RequirePermission(resourceType, action)(h))
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging middleware.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log := logger.WithComponent("http")
		ev := log.Info()
		if rec.status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
