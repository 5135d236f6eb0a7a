package container

import (
	"context"
	"database/sql"
	"fmt"

	"helpdesk/internal/assets"
	"helpdesk/internal/atk/items"
	"helpdesk/internal/atk/purchase"
	"helpdesk/internal/atk/requests"
	"helpdesk/internal/auditlog"
	"helpdesk/internal/borrowing"
	"helpdesk/internal/cache"
	"helpdesk/internal/core/config"
	"helpdesk/internal/dashboard"
	"helpdesk/internal/distribution"
	"helpdesk/internal/locations"
	"helpdesk/internal/master/users"
	"helpdesk/internal/middleware"
	"helpdesk/internal/notification"
	"helpdesk/internal/reports"
	"helpdesk/internal/repository"
	"helpdesk/internal/storage"
	"helpdesk/internal/storage/local"
	"helpdesk/internal/tickets"
	"helpdesk/pkg/security"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Container struct {
	Config      *config.Config
	Log         *zap.Logger
	Repository  *repository.Repository
	AuditLog    *auditlog.Auditlog
	Dispatcher  *notification.Dispatcher
	TokenIssuer *security.TokenIssuer
	Health      *middleware.HealthCheck

	LoginHandler        *security.LoginHandler
	UserHandler         *users.UsersHandler
	LocationHandler     *locations.LocationHandler
	AssetHandler        *assets.AssetHandler
	BorrowingHandler    *borrowing.Handler
	DistributionHandler *distribution.Handler
	AtkItemHandler      *items.Handler
	PurchaseHandler     *purchase.Handler
	RequestHandler      *requests.Handler
	TicketHandler       *tickets.Handler
	DashboardHandler    *dashboard.Handler
	AuditLogHandler     *auditlog.Handler
	FileHandler         *storage.Handler

	redis *redis.Client
}

// NewAppContainer builds every service. ctx bounds background workers such as
// the login rate limiter cleanup.
func NewAppContainer(ctx context.Context, cfg *config.Config, db *sql.DB, version string, log *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	repo := repository.NewRepository(db)
	c.Repository = repo

	cacheStore, err := c.newCacheStore(ctx)
	if err != nil {
		return nil, err
	}
	revalidator := cache.NewInvalidator(cacheStore, log)

	files, err := local.NewLocalFileStore(cfg.UploadDir, cfg.PublicBaseURL, log)
	if err != nil {
		return nil, err
	}

	sheets, err := reports.NewSheetsSync(ctx, cfg.SheetsCredentialsFile, cfg.SheetsSpreadsheetID, log)
	if err != nil {
		return nil, err
	}
	if !sheets.Enabled() {
		log.Info("Google Sheets sync is disabled")
	}

	var notifier notification.Notifier = notification.Noop{}
	if cfg.WhatsAppAPIURL != "" {
		notifier = notification.NewWhatsAppClient(cfg.WhatsAppAPIURL, cfg.WhatsAppAPIToken, cfg.WhatsAppSender)
	} else {
		log.Info("WhatsApp notifications are disabled")
	}
	c.Dispatcher = notification.NewDispatcher(notifier, log)

	c.AuditLog = auditlog.NewAuditLog(auditlog.NewRepository(repo), log)
	c.TokenIssuer = security.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	c.Health = middleware.NewHealthCheck(db, version)

	userService := users.NewService(users.NewRepository(repo), c.AuditLog, revalidator, log)
	c.UserHandler = users.NewHandler(userService)
	c.LoginHandler = security.NewLoginHandler(userService, c.TokenIssuer, security.NewLoginRateLimiter(ctx), log)

	c.LocationHandler = locations.NewLocationHandler(locations.NewLocationRepository(repo), c.AuditLog, revalidator)

	assetRepo := assets.NewRepository(repo)
	assetService := assets.NewAssetService(assetRepo, files, c.AuditLog, revalidator, log)
	c.AssetHandler = assets.NewAssetHandler(assetService, sheets, cfg.UploadMaxBytes)

	borrowingService := borrowing.NewService(borrowing.NewRepository(repo), assetRepo, c.Dispatcher, c.AuditLog, revalidator, log)
	c.BorrowingHandler = borrowing.NewHandler(borrowingService)

	distributionService := distribution.NewService(distribution.NewRepository(repo), assetRepo, files, c.Dispatcher, c.AuditLog, revalidator, log)
	c.DistributionHandler = distribution.NewHandler(distributionService, cfg.UploadMaxBytes)

	itemRepo := items.NewRepository(repo)
	c.AtkItemHandler = items.NewHandler(items.NewService(itemRepo, files, c.AuditLog, revalidator, log), cfg.UploadMaxBytes)

	purchaseService := purchase.NewService(purchase.NewRepository(repo), itemRepo, userService, c.Dispatcher, c.AuditLog, revalidator, log)
	c.PurchaseHandler = purchase.NewHandler(purchaseService)

	requestService := requests.NewService(requests.NewRepository(repo), itemRepo, c.Dispatcher, c.AuditLog, revalidator, log)
	c.RequestHandler = requests.NewHandler(requestService)

	ticketService := tickets.NewService(tickets.NewRepository(repo), files, c.Dispatcher, c.AuditLog, revalidator, log)
	c.TicketHandler = tickets.NewHandler(ticketService, cfg.UploadMaxBytes)

	c.DashboardHandler = dashboard.NewHandler(dashboard.NewService(dashboard.NewRepository(repo), cacheStore, cfg.CacheTTL, log))
	c.AuditLogHandler = auditlog.NewHandler(c.AuditLog)
	c.FileHandler = storage.NewHandler(files, log)

	return c, nil
}

func (c *Container) newCacheStore(ctx context.Context) (cache.Store, error) {
	if c.Config.RedisURL == "" {
		c.Log.Info("REDIS_URL not set, using in-memory cache")
		return cache.NewMemoryStore(), nil
	}

	client, err := cache.NewRedisClient(ctx, c.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	c.redis = client
	return cache.NewRedisStore(client), nil
}

// Close drains queued notifications and audit entries, then releases
// connections owned by the container.
func (c *Container) Close() {
	c.Dispatcher.Wait()
	c.AuditLog.Wait()

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.Log.Warn("Unable to close redis client", zap.Error(err))
		}
	}
}
