package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"gig-booking/config"
	"gig-booking/internal/handlers"
	"gig-booking/internal/services"
	"gig-booking/internal/store/pbstore"
	_ "gig-booking/migrations"
	"gig-booking/monitoring"
	"gig-booking/security"
	"gig-booking/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis is optional: without it the slot lock and rate limits are skipped
	redisClient, err := utils.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Push notifications
	var publisher services.Publisher
	if cfg.PushEnabled() {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pnConfig.UUID = cfg.PubNubUserID

		publisher = services.NewPubNubPublisher(pubnub.NewPubNub(pnConfig))
	}

	var monitor *monitoring.Monitor
	if cfg.EnableMetrics {
		monitor = monitoring.NewMonitor()
	}

	dispatcher := services.NewDispatcher(cfg.NotificationTimeout)
	notifier := services.NewNotifier(services.NewPocketBaseMailer(app), publisher, dispatcher, monitor, cfg.AppBaseURL)

	deps := services.Deps{
		Store:    pbstore.New(app),
		Notifier: notifier,
		Monitor:  monitor,
	}

	var locker services.SlotLocker
	if redisClient != nil {
		locker = services.NewRedisSlotLock(redisClient, cfg.SlotLockTimeout, cfg.SlotLockTimeout)
	}

	// Initialize services
	resolver := services.NewRoleResolver(deps.Store)
	gigService := services.NewGigService(deps)
	applicationService := services.NewApplicationService(deps, locker)
	gigInvitationService := services.NewGigInvitationService(deps)
	networkService := services.NewNetworkService(deps)
	invitationService := services.NewInvitationService(deps, networkService, services.InvitationConfig{
		TTLDays:        cfg.InvitationTTLDays,
		ManagerTTLDays: cfg.ManagerInvitationTTLDays,
		CodeAttempts:   cfg.InviteCodeMaxAttempts,
	})

	// Initialize handlers
	gigHandler := handlers.NewGigHandler(resolver, gigService)
	applicationHandler := handlers.NewApplicationHandler(resolver, applicationService)
	gigInvitationHandler := handlers.NewGigInvitationHandler(resolver, gigInvitationService)
	invitationHandler := handlers.NewInvitationHandler(resolver, invitationService)
	networkHandler := handlers.NewNetworkHandler(resolver, networkService)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		api := se.Router.Group("/api/v1")

		// Gig endpoints
		api.POST("/gigs", gigHandler.CreateGig)
		api.GET("/gigs/{gigId}", gigHandler.GetGig)
		api.POST("/gigs/{gigId}/cancel", gigHandler.CancelGig)
		api.DELETE("/gigs/{gigId}", gigHandler.DeleteGig)
		api.PATCH("/gigs/{gigId}/slots/{slotId}", gigHandler.UpdateSlot)

		// Application endpoints
		api.POST("/gigs/{gigId}/applications", applicationHandler.SubmitApplication)
		api.GET("/gigs/{gigId}/applications", applicationHandler.ListApplications)
		api.POST("/gigs/{gigId}/applications/{applicationId}/accept", applicationHandler.AcceptApplication)
		api.POST("/gigs/{gigId}/applications/{applicationId}/reject", applicationHandler.RejectApplication)
		api.GET("/me/applications", applicationHandler.ListMyApplications)

		// Gig invitation endpoints
		api.POST("/gigs/{gigId}/invitations", gigInvitationHandler.InviteToGig)
		api.GET("/gigs/{gigId}/invitations", gigInvitationHandler.ListGigInvitations)
		api.DELETE("/gigs/{gigId}/invitations/{invitationId}", gigInvitationHandler.RevokeGigInvitation)
		api.GET("/me/gig-invitations", gigInvitationHandler.ListMyGigInvitations)

		// Venue invitation endpoints
		api.POST("/venues/{venueId}/invitations", invitationHandler.CreateInvitation)
		api.GET("/venues/{venueId}/invitations", invitationHandler.ListInvitations)
		api.POST("/venues/{venueId}/manager-invitations", invitationHandler.CreateManagerInvitation)

		redeem := api.Group("")
		redeem.BindFunc(security.AntiBotMiddleware())
		if redisClient != nil {
			limiter := security.NewRateLimiter(redisClient, "redeem", cfg.RedeemAttemptLimit, cfg.RedeemAttemptWindow)
			redeem.BindFunc(limiter.Middleware())
		}
		redeem.GET("/invitations/{code}", invitationHandler.PreviewInvitation)
		redeem.POST("/invitations/{code}/accept", invitationHandler.AcceptInvitation)
		redeem.POST("/manager-invitations/{code}/accept", invitationHandler.AcceptManagerInvitation)

		// Network endpoints
		api.GET("/venues/{venueId}/network", networkHandler.ListMembers)
		api.POST("/venues/{venueId}/network", networkHandler.AddMember)
		api.DELETE("/venues/{venueId}/network/{musicianId}", networkHandler.RemoveMember)
		api.GET("/me/venues", networkHandler.ListMyVenues)

		// Health check
		se.Router.GET("/health", healthHandler(redisClient))

		if cfg.EnableMetrics {
			se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		log.Println("Server routes registered")

		return se.Next()
	})

	// Let in-flight notifications finish before the process exits
	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		slog.Info("Shutdown signal received, waiting for pending notifications")
		dispatcher.Wait()
		cancel()
		return e.Next()
	})

	app.RootCmd.SetArgs(withDefaultHTTPAddr(os.Args[1:], cfg.Port))

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

func healthHandler(redisClient *redis.Client) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if redisClient == nil {
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy", "redis": "disabled"})
		}
		if err := utils.RedisHealthCheck(e.Request.Context(), redisClient); err != nil {
			return e.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// withDefaultHTTPAddr binds "serve" to PORT unless --http was given.
func withDefaultHTTPAddr(args []string, port string) []string {
	if len(args) == 0 || args[0] != "serve" || port == "" {
		return args
	}
	for _, arg := range args[1:] {
		if arg == "--http" || strings.HasPrefix(arg, "--http=") {
			return args
		}
	}
	return append(append([]string(nil), args...), "--http=0.0.0.0:"+port)
}
