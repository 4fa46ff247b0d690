package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vbonduro/propertydesk/internal/admin"
	"github.com/vbonduro/propertydesk/internal/auth"
	"github.com/vbonduro/propertydesk/internal/blobstore"
	"github.com/vbonduro/propertydesk/internal/blobstore/local"
	"github.com/vbonduro/propertydesk/internal/blobstore/s3"
	"github.com/vbonduro/propertydesk/internal/cache"
	"github.com/vbonduro/propertydesk/internal/catalog"
	"github.com/vbonduro/propertydesk/internal/config"
	"github.com/vbonduro/propertydesk/internal/db"
	"github.com/vbonduro/propertydesk/internal/enquiry"
	"github.com/vbonduro/propertydesk/internal/events"
	"github.com/vbonduro/propertydesk/internal/listing"
	"github.com/vbonduro/propertydesk/internal/logging"
	"github.com/vbonduro/propertydesk/internal/metrics"
	"github.com/vbonduro/propertydesk/internal/store"
	"github.com/vbonduro/propertydesk/internal/store/mongostore"
	"github.com/vbonduro/propertydesk/internal/web"
	"github.com/vbonduro/propertydesk/internal/web/templates"
)

const (
	orphanSweepBatch = 100
	workspaceIdle    = 24 * time.Hour
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
	}
}

// documentStores is one database backend's set of stores.
type documentStores struct {
	listings  listing.DocumentStore
	orphans   listing.OrphanStore
	admins    auth.AdminStore
	enquiries enquiry.Store
	close     func()
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	m := metrics.New()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.close()

	blobs, media, imageOrigin, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, continuing without cache", "addr", cfg.RedisAddr, "error", err)
			rdb = nil
		} else {
			logger.Info("connected to redis", "addr", cfg.RedisAddr)
			defer func() {
				if err := cache.Disconnect(rdb); err != nil {
					logger.Error("failed to close redis", "error", err)
				}
			}()
		}
	}

	notifiers := events.Fanout{}
	var catalogCache catalog.Cache
	var revoker auth.Revoker = auth.NewMemoryRevoker()
	if rdb != nil {
		cc := cache.NewCatalogCache(rdb, cfg.CatalogCacheTTL)
		catalogCache = cc
		notifiers = append(notifiers, cc)
		revoker = cache.NewSessionDenylist(rdb)
	}
	if cfg.NATSURL != "" {
		publisher, err := events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn("nats unavailable, listing changes will not be published", "url", cfg.NATSURL, "error", err)
		} else {
			defer publisher.Close()
			notifiers = append(notifiers, publisher)
		}
	}

	repo := listing.NewRepository(stores.listings, blobs, stores.orphans, notifiers, m, logger)

	secret := cfg.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return err
		}
		logger.Warn("JWT_SECRET not set, sessions will not survive a restart")
	}
	authenticator := auth.NewAuthenticator(
		stores.admins,
		auth.NewTokenIssuer(secret, cfg.SessionTTL),
		revoker,
		auth.NewBroker(),
		m,
		logger,
	)
	if err := authenticator.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	var mailer enquiry.Mailer = enquiry.NewLogMailer(logger)
	if cfg.SMTPHost != "" {
		smtp, err := enquiry.NewSMTPMailer(enquiry.SMTPOptions{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, logger)
		if err != nil {
			return err
		}
		mailer = smtp
	}

	workspaces := admin.NewWorkspaces(repo, cfg.MaxImageBytes, logger)
	go runMaintenance(ctx, repo, workspaces, authenticator, cfg.OrphanSweepInterval, logger)

	server := web.NewServer(web.Options{
		Listings:      repo,
		Catalog:       catalog.New(repo, catalogCache, cfg.CatalogLimit, cfg.WhatsAppNumber, logger),
		Auth:          authenticator,
		Workspaces:    workspaces,
		Enquiries:     enquiry.NewService(stores.enquiries, mailer, cfg.EnquiryTo, logger),
		Media:         media,
		Metrics:       m,
		Templates:     templates.FS,
		Site:          os.DirFS(cfg.SiteRoot),
		AdminEnabled:  cfg.AdminEnabled,
		SecureCookies: cfg.SecureCookies,
		ImageOrigin:   imageOrigin,
		Logger:        logger,
	})
	return server.Run(ctx, cfg.ListenAddr)
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*documentStores, error) {
	switch cfg.DBBackend {
	case "mongo":
		client, database, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		logger.Info("using MongoDB document store", "db", cfg.MongoDB)
		return &documentStores{
			listings:  mongostore.NewListingStore(database),
			orphans:   mongostore.NewOrphanStore(database),
			admins:    mongostore.NewAdminStore(database),
			enquiries: mongostore.NewEnquiryStore(database),
			close: func() {
				if err := mongostore.Disconnect(client); err != nil {
					logger.Error("failed to disconnect MongoDB", "error", err)
				}
			},
		}, nil
	case "sqlite":
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Info("using SQLite document store", "path", cfg.DBPath)
		return &documentStores{
			listings:  store.NewListingStore(database),
			orphans:   store.NewOrphanStore(database),
			admins:    store.NewAdminStore(database),
			enquiries: store.NewEnquiryStore(database),
			close: func() {
				if err := database.Close(); err != nil {
					logger.Error("failed to close database", "error", err)
				}
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown DB_BACKEND %q", cfg.DBBackend)
	}
}

// newBlobStore returns the configured blob store, the media store the web
// server serves /media from (local only) and the origin images load from.
func newBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blobstore.BlobStore, web.MediaStore, string, error) {
	switch cfg.BlobBackend {
	case "minio":
		bs, err := s3.NewS3BlobStore(ctx, s3.Options{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.MinIOPublicURL,
		}, logger)
		if err != nil {
			return nil, nil, "", err
		}
		logger.Info("using MinIO blob store", "endpoint", cfg.MinIOEndpoint, "bucket", cfg.MinIOBucket)
		return bs, nil, origin(bs.BaseURL()), nil
	case "local":
		bs, err := local.NewLocalBlobStore(cfg.BlobLocalPath, cfg.BlobBaseURL)
		if err != nil {
			return nil, nil, "", err
		}
		logger.Info("using local blob store", "path", cfg.BlobLocalPath)
		return bs, bs, "", nil
	default:
		return nil, nil, "", fmt.Errorf("unknown BLOB_BACKEND %q", cfg.BlobBackend)
	}
}

// origin reduces a URL to scheme://host for the CSP img-src list.
func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// runMaintenance periodically sweeps orphaned blobs, forgets idle admin
// workspaces and drops recovered sign-in limiters until ctx is cancelled.
func runMaintenance(ctx context.Context, repo *listing.Repository, workspaces *admin.Workspaces, authenticator *auth.Authenticator, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		logger.Info("orphan sweep disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := repo.SweepOrphans(ctx, orphanSweepBatch); err != nil {
				logger.Error("scheduled orphan sweep failed", "error", err)
			}
			if n := workspaces.Prune(workspaceIdle); n > 0 {
				logger.Info("pruned idle admin workspaces", "count", n)
			}
			if n := authenticator.PruneLimiters(); n > 0 {
				logger.Debug("pruned sign-in limiters", "count", n)
			}
		}
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
