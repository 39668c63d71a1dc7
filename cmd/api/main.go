package main

import (
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"

	"gpsr/internal/auth"
	"gpsr/internal/blobstore"
	"gpsr/internal/db"
	"gpsr/internal/domain/storage"
	"gpsr/internal/mailer"
	"gpsr/internal/notifications"
	"gpsr/internal/ratelimiter"
	"gpsr/internal/service"
	"gpsr/internal/visibility"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level)

	return zap.New(core).Sugar(), nil
}

var version = "0.3.0"

//	@title			GPSR Records API
//	@description	Product safety (GPSR) compliance records with owner-controlled sharing.

//	@contact.name	API Support
//	@contact.url	http://www.swagger.io/support
//	@contact.email	support@swagger.io

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	if err := godotenv.Load(); err != nil && os.Getenv("ENV") == "production" {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg := loadConfig()
	if err := cfg.validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Database
	schemaVersion, err := db.Migrate(cfg.db.addr)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Infow("database migrated", "version", schemaVersion)

	pool, err := db.New(cfg.db.addr, int32(cfg.db.maxConns), cfg.db.maxIdleTime)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	store := storage.NewContainer(pool)

	var blobs service.BlobStore
	if cfg.cloudinary.url != "" {
		cld, err := blobstore.NewCloudinary(cfg.cloudinary.url, cfg.cloudinary.folder)
		if err != nil {
			logger.Fatal(err)
		}
		blobs = cld
	} else {
		logger.Warn("CLOUDINARY_URL not set, product file uploads are disabled")
	}

	fanout := notifications.Fanout{
		notifications.NewPushNotifier(notifications.NewExpoAdapter(cfg.expo.accessToken), store.PushTokens),
	}
	if cfg.mail.host != "" {
		smtp := mailer.NewSMTPMailer(cfg.mail.host, cfg.mail.port, cfg.mail.username, cfg.mail.password, cfg.mail.fromEmail)
		fanout = append(fanout, notifications.NewMailNotifier(smtp, store.Users))
	}

	svc := service.New(
		store,
		visibility.Resolver{GrantAware: cfg.visibility.grantAware},
		service.NewNameCache(store.Users, cfg.names.size, cfg.names.ttl),
		fanout,
		blobs,
		logger,
	)

	app := &application{
		config:  cfg,
		logger:  logger,
		store:   store,
		service: svc,
		authenticator: auth.NewJWTAuthenticator(
			cfg.auth.token.secret,
			cfg.auth.token.refreshSecret,
			cfg.auth.token.aud,
			cfg.auth.token.iss,
		),
		rateLimiter: ratelimiter.NewFixedWindowLimiter(
			cfg.rateLimiter.RequestsPerTimeFrame,
			cfg.rateLimiter.TimeFrame,
		),
	}

	// Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		s := pool.Stat()
		return map[string]any{
			"total_conns":    s.TotalConns(),
			"idle_conns":     s.IdleConns(),
			"acquired_conns": s.AcquiredConns(),
			"max_conns":      s.MaxConns(),
		}
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	scheduler, err := app.startReconciler()
	if err != nil {
		logger.Fatal(err)
	}

	mux := app.mount()

	err = app.run(mux)

	<-scheduler.Stop().Done()
	svc.Wait()

	if err != nil {
		logger.Fatal(err)
	}
}
