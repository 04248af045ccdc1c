package subscriptiontracker

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/admin/search"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/admin/stats"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/auth/admin"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/auth/register"
	familyaccept "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/family/accept"
	familycreate "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/family/create"
	familyinvite "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/family/invite"
	familyleave "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/family/leave"
	familylist "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/family/list"
	familyread "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/family/read"
	familyremove "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/family/remove"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/family/removemember"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/health"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/listuser"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/remove"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/update"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/upcoming"
	userlist "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/user/list"
	userread "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/user/read"
	userremove "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/user/remove"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/workflow/reminder"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	accessservice "github.com/magabrotheeeer/subscription-tracker/internal/services/access"
	authservice "github.com/magabrotheeeer/subscription-tracker/internal/services/auth"
	familyservice "github.com/magabrotheeeer/subscription-tracker/internal/services/family"
	searchservice "github.com/magabrotheeeer/subscription-tracker/internal/services/search"
	subservice "github.com/magabrotheeeer/subscription-tracker/internal/services/subscription"
	userservice "github.com/magabrotheeeer/subscription-tracker/internal/services/user"
)

// Services сервисы, которые обслуживают HTTP-маршруты.
type Services struct {
	Auth           *authservice.AuthService
	Users          *userservice.UserService
	Access         *accessservice.Evaluator
	Subscriptions  *subservice.SubscriptionService
	Family         *familyservice.FamilyService
	Search         *searchservice.SearchService
	Health         map[string]health.Pinger
	Limiter        *rate.Limiter
	WorkflowSecret string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", reminder.SecretHeader},
		}).Handler,
	)

	requireAccess := middlewarectx.RequireAccess(s.Access, logger)
	requireOwner := middlewarectx.RequireOwner(s.Access, logger)
	requireMember := middlewarectx.RequireMember(s.Access, logger)
	requireAdmin := middlewarectx.RequireAdmin(logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Route("/auth", func(r chi.Router) {
			r.Post("/sign-up", register.New(logger, s.Auth).ServeHTTP)
			r.Post("/sign-in", login.New(logger, s.Auth).ServeHTTP)
			r.Post("/sign-out", logout.ServeHTTP)
			r.Post("/admin", admin.New(logger, s.Auth).ServeHTTP)
		})

		// Callback workflow защищен общим секретом, а не JWT
		r.Post("/workflow/subscriptions/reminder", reminder.New(logger, s.Subscriptions, s.WorkflowSecret).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, s.Limiter))

			r.With(requireAdmin).Get("/users", userlist.New(logger, s.Users).ServeHTTP)
			r.Get("/users/{id}", userread.New(logger, s.Users).ServeHTTP)
			r.Delete("/users/{id}", userremove.New(logger, s.Users).ServeHTTP)

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/", create.New(logger, s.Subscriptions).ServeHTTP)
				r.Get("/", list.New(logger, s.Subscriptions).ServeHTTP)
				r.Get("/upcoming-renewals", upcoming.New(logger, s.Subscriptions).ServeHTTP)
				r.Get("/user/{id}", listuser.New(logger, s.Subscriptions).ServeHTTP)

				r.Route("/{subscriptionId}", func(r chi.Router) {
					r.With(requireAccess).Get("/", read.New(logger, s.Subscriptions).ServeHTTP)
					r.Group(func(r chi.Router) {
						r.Use(requireOwner)
						r.Put("/", update.New(logger, s.Subscriptions).ServeHTTP)
						r.Put("/cancel", cancel.New(logger, s.Subscriptions).ServeHTTP)
						r.Delete("/", remove.New(logger, s.Subscriptions).ServeHTTP)
					})
				})
			})

			r.Route("/family-subscriptions", func(r chi.Router) {
				r.Get("/", familylist.New(logger, s.Family).ServeHTTP)
				r.Post("/accept/{token}", familyaccept.New(logger, s.Family).ServeHTTP)

				r.Route("/{subscriptionId}", func(r chi.Router) {
					r.Post("/", familycreate.New(logger, s.Family).ServeHTTP)
					r.With(requireAccess).Get("/", familyread.New(logger, s.Family).ServeHTTP)
					r.With(requireMember).Post("/leave", familyleave.New(logger, s.Family).ServeHTTP)
					r.Group(func(r chi.Router) {
						r.Use(requireOwner)
						r.Post("/invite", familyinvite.New(logger, s.Family).ServeHTTP)
						r.Delete("/members/{memberId}", removemember.New(logger, s.Family).ServeHTTP)
						r.Delete("/", familyremove.New(logger, s.Family).ServeHTTP)
					})
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/subscriptions/search", search.New(logger, s.Search).ServeHTTP)
				r.Get("/subscriptions/stats", stats.New(logger, s.Search).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, s.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
