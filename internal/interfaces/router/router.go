package router

import (
	"context"
	"errors"

	"trubid-backend/internal/application/auction"
	authsvc "trubid-backend/internal/application/auth"
	bidsvc "trubid-backend/internal/application/bids"
	"trubid-backend/internal/application/emails"
	"trubid-backend/internal/application/events"
	lesvc "trubid-backend/internal/application/listingevents"
	listsvc "trubid-backend/internal/application/listings"
	"trubid-backend/internal/application/notifications"
	paysvc "trubid-backend/internal/application/payments"
	settingssvc "trubid-backend/internal/application/paymentsettings"
	"trubid-backend/internal/application/templates"
	uploadsvc "trubid-backend/internal/application/uploads"
	usersvc "trubid-backend/internal/application/user"
	"trubid-backend/internal/config"
	"trubid-backend/internal/infrastructure/database"
	auctionhandler "trubid-backend/internal/interfaces/handlers/auctions"
	authhandler "trubid-backend/internal/interfaces/handlers/auth"
	bidhandler "trubid-backend/internal/interfaces/handlers/bids"
	tplhandler "trubid-backend/internal/interfaces/handlers/emailtemplates"
	healthhandler "trubid-backend/internal/interfaces/handlers/health"
	lehandler "trubid-backend/internal/interfaces/handlers/listingevents"
	listhandler "trubid-backend/internal/interfaces/handlers/listings"
	payhandler "trubid-backend/internal/interfaces/handlers/payments"
	settingshandler "trubid-backend/internal/interfaces/handlers/paymentsettings"
	uploadhandler "trubid-backend/internal/interfaces/handlers/uploads"
	userhandler "trubid-backend/internal/interfaces/handlers/user"
	"trubid-backend/internal/middleware"
	"trubid-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// App is the wired HTTP app plus the long-lived resources behind it. Clock is nil when no
// database is configured.
type App struct {
	Fiber *fiber.App
	DB    *gorm.DB
	Rdb   *redis.Client
	Nats  *nats.Conn
	Clock *auction.Clock
}

// Close releases NATS and Redis connections.
func (a *App) Close() {
	if a.Nats != nil {
		a.Nats.Close()
	}
	if a.Rdb != nil {
		_ = a.Rdb.Close()
	}
}

func CreateApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required for sessions")
	}
	rdb, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	out := &App{Rdb: rdb}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})
	out.Fiber = app

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Session(rdb))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var publisher events.Publisher
	if cfg.NatsURL != "" {
		nc, err := events.Connect(cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("nats unavailable, auction events disabled")
		} else {
			out.Nats = nc
			jsp, err := events.NewJetStreamPublisher(ctx, nc)
			if err != nil {
				log.Warn().Err(err).Msg("jetstream unavailable, auction events disabled")
			} else {
				publisher = jsp
			}
		}
	}

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		Nats:           out.Nats,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			out.Close()
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := database.AutoMigrate(db); err != nil {
				out.Close()
				return nil, err
			}
		}
		hh.DB = &gormDBPinger{db: db}
		out.DB = db
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
		CookieDomain:      cfg.CookieDomain,
	}

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	if db == nil {
		log.Warn().Msg("no database configured, only health and auth routes are served")
		return out, nil
	}

	guard := database.Guard{Timeout: cfg.StorageTimeout}

	// Notifications
	var mailer emails.Mailer
	if cfg.SendinblueAPIKey != "" {
		mailer = &emails.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
	}
	tplSvc := &templates.Service{DB: db, Guard: guard}
	if n, err := tplSvc.SeedDefaults(ctx, cfg.MailFrom); err != nil {
		log.Warn().Err(err).Msg("default email templates not seeded")
	} else if n > 0 {
		log.Info().Int("created", n).Msg("default email templates seeded")
	}
	us := &usersvc.Service{DB: db, Guard: guard, Rdb: rdb}
	settings := &settingssvc.Service{DB: db, Guard: guard}
	notifier := &notifications.AuctionNotifier{
		Dispatcher:    &notifications.Dispatcher{Templates: tplSvc, Mailer: mailer, DefaultFrom: cfg.MailFrom},
		Users:         us,
		Settings:      settings,
		PublicBaseURL: cfg.PublicBaseURL,
	}

	// Auction core
	acceptor := &auction.Acceptor{DB: db, Guard: guard, Notifier: notifier, Publisher: publisher}
	controller := &auction.Controller{DB: db, Guard: guard, Notifier: notifier, Publisher: publisher}
	out.Clock = &auction.Clock{
		DB:         db,
		Guard:      guard,
		Controller: controller,
		Locker:     &auction.RedisLocker{Rdb: rdb, Owner: uuid.NewString()},
		Interval:   cfg.CloserInterval,
	}

	// Users (create-user is public registration)
	uh := &userhandler.Handlers{Service: us, Config: sessionCfg}
	app.Post("/api/v1/users/create-user", uh.CreateUser)
	ug := app.Group("/api/v1/users", middleware.RequireAuth())
	ug.Put("/update-user", uh.UpdateUser)
	ug.Get("/view-user", uh.ViewUser)
	ug.Get("/list-users", middleware.AuthorizePermission(constants.ListUsers), uh.ListUsers)
	ug.Patch("/update-role", middleware.AuthorizePermission(constants.AssignRole), uh.UpdateRole)
	ug.Delete("/remove-user", middleware.AuthorizePermission(constants.RemoveUser), uh.RemoveUser)

	// Listings (browsing is public)
	lh := &listhandler.Handlers{Service: &listsvc.Service{DB: db, Guard: guard, Notifier: notifier, Users: us}}
	app.Get("/api/v1/listings/get-active-listings", lh.GetActiveListings)
	app.Get("/api/v1/listings/get-listing/:listing_id", lh.GetListing)
	lg := app.Group("/api/v1/listings", middleware.RequireAuth())
	lg.Post("/create-listing", middleware.AuthorizePermission(constants.CreateListing), lh.CreateListing)
	lg.Get("/get-all-listings", middleware.AuthorizePermission(constants.ManageListings), lh.GetAllListings)
	lg.Get("/get-my-listings", lh.GetMyListings)
	lg.Put("/edit-listing/:listing_id", lh.EditListing)
	lg.Post("/publish-listing/:listing_id", lh.PublishListing)
	lg.Delete("/delete-listing/:listing_id", lh.DeleteListing)
	lg.Post("/duplicate-listing/:listing_id", middleware.AuthorizePermission(constants.ManageListings), lh.DuplicateListing)

	// Bids
	bh := &bidhandler.Handlers{Acceptor: acceptor, Service: &bidsvc.Service{DB: db, Guard: guard}}
	bg := app.Group("/api/v1/bids", middleware.RequireAuth())
	bg.Post("/place-bid", middleware.AuthorizePermission(constants.PlaceBid), bh.PlaceBid)
	bg.Get("/my-bids", bh.MyBids)
	bg.Post("/reconcile-orphans", middleware.AuthorizePermission(constants.ReconcileBids), bh.ReconcileOrphans)

	// Auctions
	auh := &auctionhandler.Handlers{Acceptor: acceptor, Controller: controller}
	aug := app.Group("/api/v1/auctions", middleware.RequireAuth())
	aug.Post("/buy-now", middleware.AuthorizePermission(constants.PlaceBid), auh.BuyNow)
	aug.Post("/close/:listing_id", middleware.AuthorizePermission(constants.CloseAuction), auh.CloseAuction)

	// Payments
	ph := &payhandler.Handlers{Service: &paysvc.Service{DB: db, Guard: guard, Settings: settings}}
	pg := app.Group("/api/v1/payments", middleware.RequireAuth())
	pg.Get("/instructions/:listing_id", ph.Instructions)
	pg.Post("/submit-payment", ph.SubmitPayment)
	pg.Get("/list-payments", middleware.AuthorizePermission(constants.ViewPayments), ph.ListPayments)

	// Payment settings
	sh := &settingshandler.Handlers{Service: settings}
	sg := app.Group("/api/v1/payment-settings", middleware.RequireAuth())
	sg.Get("/view-settings", sh.ViewSettings)
	sg.Put("/update-settings", sh.UpdateSettings)

	// Email templates
	th := &tplhandler.Handlers{Service: tplSvc, DefaultFrom: cfg.MailFrom}
	tg := app.Group("/api/v1/email-templates", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ManageTemplates))
	tg.Get("/list-templates", th.ListTemplates)
	tg.Post("/create-template", th.CreateTemplate)
	tg.Put("/update-template/:id", th.UpdateTemplate)
	tg.Post("/seed-defaults", th.SeedDefaults)

	// Uploads
	sc := &uploadsvc.HTTPClient{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey}
	uph := &uploadhandler.Handlers{Service: &uploadsvc.Service{Client: sc, SupabaseURL: cfg.SupabaseURL}}
	upg := app.Group("/api/v1/uploads", middleware.RequireAuth())
	upg.Post("/listing-image", uph.ListingImage)
	upg.Post("/payment-qr", uph.PaymentQR)

	// Listing events
	leh := &lehandler.Handlers{Service: &lesvc.Service{DB: db, Guard: guard}}
	leg := app.Group("/api/v1/listing-events", middleware.RequireAuth())
	leg.Get("/:listing_id", middleware.AuthorizePermission(constants.ViewData), leh.GetListingEvents)

	return out, nil
}
