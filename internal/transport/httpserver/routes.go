package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"household-ledger/internal/config"
	"household-ledger/internal/transport/httpserver/handler"
	authmw "household-ledger/internal/transport/httpserver/middleware"
	"household-ledger/pkg/logger"
)

func NewRouter(cfg config.Config, handlers *handler.Handlers, metrics *authmw.Metrics, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(metrics.Middleware)
	r.Use(authmw.NewCORS(cfg.CORSOrigins))

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/register", handlers.Register)
	r.Post("/token", handlers.Token)
	r.Post("/login", handlers.Login)
	r.Post("/logout", handlers.Logout)
	r.Post("/refresh", handlers.Refresh)

	auth := authmw.NewTokenAuth(handlers.Tokens, handlers.Users, log)
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Post("/add-contribution", handlers.AddContribution)
		r.Post("/delete-contribution/{id}", handlers.DeleteContribution)
		r.Post("/transfer", handlers.Transfer)

		r.Post("/create-home", handlers.CreateHome)
		r.Post("/add-member", handlers.AddMember)
		r.Post("/remove-member", handlers.RemoveMember)
		r.Post("/promote-leader", handlers.PromoteLeader)
		r.Post("/leave-home", handlers.LeaveHome)
		r.Post("/request-join-home", handlers.RequestJoinHome)
		r.Post("/approve-join-request", handlers.DecideJoinRequest)

		r.Post("/update-profile", handlers.UpdateProfile)
		r.Post("/change-password", handlers.ChangePassword)

		r.Route("/api", func(r chi.Router) {
			r.Get("/me", handlers.Me)
			r.Get("/dashboard", handlers.Dashboard)
			r.Get("/users", handlers.ListUsers)

			r.Get("/contributions", handlers.ListContributions)
			r.Get("/transfers", handlers.ListTransfers)
			r.Get("/transfer-recipients", handlers.TransferRecipients)

			r.Get("/home", handlers.GetHome)
			r.Get("/home/join-requests", handlers.ListJoinRequests)
			r.Get("/join-request", handlers.GetJoinRequest)

			r.Get("/analytics", handlers.HomeAnalytics)
			r.Get("/analytics/monthly", handlers.MonthlyAnalytics)
			r.Get("/analytics/monthly-summary", handlers.MonthlySummary)
		})
	})

	return r
}
