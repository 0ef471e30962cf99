package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pumplink/pumplink-backend/api/controllers"
	"github.com/pumplink/pumplink-backend/api/middleware"
	"github.com/pumplink/pumplink-backend/internal/deliveries"
	"github.com/pumplink/pumplink-backend/internal/ledger"
	"github.com/pumplink/pumplink-backend/internal/notifications"
	"github.com/pumplink/pumplink-backend/internal/pumps"
	"github.com/pumplink/pumplink-backend/internal/returns"
	"github.com/pumplink/pumplink-backend/internal/users"
	"github.com/pumplink/pumplink-backend/pkg/config"
	"github.com/pumplink/pumplink-backend/pkg/db"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	"github.com/pumplink/pumplink-backend/pkg/logger"
	"github.com/pumplink/pumplink-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	usersService users.Service,
	pumpsService pumps.Service,
	deliveriesService deliveries.Service,
	returnsService returns.Service,
	ledgerService ledger.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginPhoneLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessDeps(dbP, redisClient)))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.Login(usersService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRolePharmacyStaff), logg))
			r.Post("/clients", controllers.RegisterClient(usersService, logg))
			r.Post("/drivers", controllers.RegisterDriver(usersService, logg))
			r.Post("/staff", controllers.RegisterStaff(usersService, logg))
			r.Get("/{userID}", controllers.GetUser(usersService, logg))
		})

		r.Route("/pumps", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRolePharmacyStaff), logg))
			r.Post("/", controllers.CreatePump(pumpsService, logg))
			r.Get("/", controllers.ListPumps(pumpsService, logg))
			r.Get("/{pumpID}", controllers.GetPump(pumpsService, logg))
			r.Post("/{pumpID}/maintenance", controllers.PumpMaintenance(pumpsService, logg))
			r.Post("/{pumpID}/expire", controllers.PumpExpire(pumpsService, logg))
			r.Post("/{pumpID}/review", controllers.PumpReview(pumpsService, logg))
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/", controllers.ListDeliveries(deliveriesService, logg))
			r.Get("/{orderID}", controllers.DeliveryDetail(deliveriesService, logg))
			r.With(middleware.RequireRole(string(enums.ActorRolePharmacyStaff), logg)).
				Post("/", controllers.CreateDelivery(deliveriesService, logg))
			r.With(middleware.RequireRole(string(enums.ActorRoleDriver), logg)).
				Post("/{orderID}/pickup", controllers.DeliveryPickup(deliveriesService, logg))
			r.With(middleware.RequireRole(string(enums.ActorRoleDriver), logg)).
				Post("/{orderID}/deliver", controllers.DeliveryDeliver(deliveriesService, logg))
			r.With(middleware.RequireRole(string(enums.ActorRoleClient), logg)).
				Post("/{orderID}/confirm", controllers.DeliveryConfirm(deliveriesService, logg))
			r.With(middleware.RequireRole(string(enums.ActorRolePharmacyStaff), logg)).
				Post("/{orderID}/cancel", controllers.DeliveryCancel(deliveriesService, logg))
		})

		r.Route("/returns", func(r chi.Router) {
			r.With(middleware.RequireAnyRole(logg, string(enums.ActorRoleClient), string(enums.ActorRolePharmacyStaff))).
				Post("/", controllers.RequestReturn(returnsService, logg))
			r.With(middleware.RequireRole(string(enums.ActorRoleDriver), logg)).
				Post("/{orderID}/pickup", controllers.ReturnPickup(returnsService, logg))
			r.With(middleware.RequireRole(string(enums.ActorRolePharmacyStaff), logg)).
				Post("/{orderID}/confirm", controllers.ReturnConfirm(returnsService, logg))
		})

		r.Route("/clients", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRolePharmacyStaff), logg))
			r.Get("/{clientID}/debts", controllers.ClientDebts(ledgerService, logg))
		})

		r.Route("/drivers", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, string(enums.ActorRolePharmacyStaff), string(enums.ActorRoleDriver)))
			r.Get("/{driverID}/holdings", controllers.DriverHoldings(ledgerService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}

func readinessDeps(dbP db.Pinger, redisClient *redis.Client) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["database"] = dbP
	}
	if redisClient != nil {
		deps["redis"] = redisClient
	}
	return deps
}
