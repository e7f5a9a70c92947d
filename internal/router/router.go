package router

import (
	"net/http"
	"time"

	"settlement-service/internal/handler"
	authmw "settlement-service/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func SetupRoutes(
	walletHandler *handler.WalletHandler,
	productHandler *handler.ProductHandler,
	eventHandler *handler.EventHandler,
	webhookHandler *handler.WebhookHandler,
	auth *authmw.Auth,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Paystack-Signature"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/v1/payments/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Provider webhook authenticates itself by signature, never by JWT.
		r.Post("/wallet/webhook", webhookHandler.HandleProviderWebhook)

		r.Group(func(r chi.Router) {
			r.Use(auth.Require)

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", walletHandler.GetWallet)
				r.Get("/transactions", walletHandler.GetTransactions)
				r.Post("/fund", walletHandler.InitiateFunding)
				r.Get("/fund/verify/{reference}", walletHandler.VerifyFunding)
			})

			r.Post("/products/{id}/buy", productHandler.Buy)
			r.Get("/purchases/{id}/download", productHandler.Download)

			r.Post("/events/{id}/support", eventHandler.Support)
			r.Post("/tickets/{code}/check-in", eventHandler.CheckIn)
			r.Post("/tickets/{code}/cancel", eventHandler.CancelTicket)
			r.Get("/events/{id}/analytics", eventHandler.Analytics)
		})

		// Verification by reference carries no privileged data and the
		// checkout redirect may land here unauthenticated.
		r.Get("/products/verify/{reference}", productHandler.Verify)

		// Guest checkout allowed.
		r.Group(func(r chi.Router) {
			r.Use(auth.Optional)
			r.Post("/events/{id}/tickets/purchase", eventHandler.PurchaseTickets)
		})
	})

	return r
}

// LoggerMiddleware logs HTTP requests.
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr))
		})
	}
}
