package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/rental/internal/auth"
	"github.com/MarkoPoloResearchLab/rental/internal/httpserver"
	"github.com/MarkoPoloResearchLab/rental/internal/mailer"
	"github.com/MarkoPoloResearchLab/rental/internal/payment"
	"github.com/MarkoPoloResearchLab/rental/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/rental/internal/store/pgstore"
	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

const (
	flagDatabaseURL        = "database-url"
	flagListenAddr         = "listen-addr"
	flagAllowedOrigins     = "allowed-origins"
	flagStoreBackend       = "store-backend"
	flagJWTSecret          = "jwt-secret"
	flagJWTIssuer          = "jwt-issuer"
	flagJWTAudience        = "jwt-audience"
	flagTokenTTL           = "token-ttl"
	flagPaymentBaseURL     = "payment-base-url"
	flagPaymentPublicKey   = "payment-public-key"
	flagPaymentPrivateKey  = "payment-private-key"
	flagPaymentMerchantID  = "payment-merchant-id"
	flagMailjetPublicKey   = "mailjet-public-key"
	flagMailjetPrivateKey  = "mailjet-private-key"
	flagMailjetSenderEmail = "mailjet-sender-email"
	flagMailjetSenderName  = "mailjet-sender-name"
	flagInvoiceTemplateID  = "mailjet-invoice-template-id"
	flagSweepInterval      = "sweep-interval"
	flagAdminEmail         = "admin-email"
	flagAdminPassword      = "admin-password"

	defaultDatabaseURL   = "sqlite:///tmp/rental.db"
	defaultListenAddr    = ":8080"
	defaultStoreBackend  = "gorm"
	defaultJWTIssuer     = "rentald"
	defaultSweepInterval = time.Minute

	storeBackendGorm = "gorm"
	storeBackendPgx  = "pgx"

	invoiceTemplateName = "invoice"
)

type runtimeConfig struct {
	DatabaseURL        string
	ListenAddr         string
	AllowedOrigins     string
	StoreBackend       string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	TokenTTL           time.Duration
	PaymentBaseURL     string
	PaymentPublicKey   string
	PaymentPrivateKey  string
	PaymentMerchantID  string
	MailjetPublicKey   string
	MailjetPrivateKey  string
	MailjetSenderEmail string
	MailjetSenderName  string
	InvoiceTemplateID  int64
	SweepInterval      time.Duration
	AdminEmail         string
	AdminPassword      string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rentald: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "rentald",
		Short:         "Vehicle rental HTTP API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL connection string or sqlite path")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "Comma-delimited CORS origins")
	cmd.Flags().String(flagStoreBackend, defaultStoreBackend, "Persistence backend: gorm or pgx (postgres only)")
	cmd.Flags().String(flagJWTSecret, "", "HS256 token signing secret")
	cmd.Flags().String(flagJWTIssuer, defaultJWTIssuer, "Token issuer")
	cmd.Flags().String(flagJWTAudience, "", "Token audience")
	cmd.Flags().Duration(flagTokenTTL, 24*time.Hour, "Access token lifetime")
	cmd.Flags().String(flagPaymentBaseURL, "", "Payment gateway base URL")
	cmd.Flags().String(flagPaymentPublicKey, "", "Payment gateway public key")
	cmd.Flags().String(flagPaymentPrivateKey, "", "Payment gateway private key")
	cmd.Flags().String(flagPaymentMerchantID, "", "Payment gateway merchant id")
	cmd.Flags().String(flagMailjetPublicKey, "", "Mailjet API public key")
	cmd.Flags().String(flagMailjetPrivateKey, "", "Mailjet API private key")
	cmd.Flags().String(flagMailjetSenderEmail, "", "Receipt sender address")
	cmd.Flags().String(flagMailjetSenderName, "", "Receipt sender display name")
	cmd.Flags().Int64(flagInvoiceTemplateID, 0, "Mailjet template id for receipts")
	cmd.Flags().Duration(flagSweepInterval, defaultSweepInterval, "Availability sweep period")
	cmd.Flags().String(flagAdminEmail, "", "Bootstrap administrator email")
	cmd.Flags().String(flagAdminPassword, "", "Bootstrap administrator password")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	// .env is optional for local development.
	_ = godotenv.Load()

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]string{
		flagDatabaseURL:        "DATABASE_URL",
		flagListenAddr:         "LISTEN_ADDR",
		flagAllowedOrigins:     "ALLOWED_ORIGINS",
		flagStoreBackend:       "STORE_BACKEND",
		flagJWTSecret:          "JWT_SECRET",
		flagJWTIssuer:          "JWT_ISSUER",
		flagJWTAudience:        "JWT_AUDIENCE",
		flagTokenTTL:           "TOKEN_TTL",
		flagPaymentBaseURL:     "PAYMENT_BASE_URL",
		flagPaymentPublicKey:   "PAYMENT_PUBLIC_KEY",
		flagPaymentPrivateKey:  "PAYMENT_PRIVATE_KEY",
		flagPaymentMerchantID:  "PAYMENT_MERCHANT_ID",
		flagMailjetPublicKey:   "MJ_APIKEY_PUBLIC",
		flagMailjetPrivateKey:  "MJ_APIKEY_PRIVATE",
		flagMailjetSenderEmail: "MJ_SENDER_EMAIL",
		flagMailjetSenderName:  "MJ_SENDER_NAME",
		flagInvoiceTemplateID:  "MJ_INVOICE_TEMPLATE_ID",
		flagSweepInterval:      "SWEEP_INTERVAL",
		flagAdminEmail:         "ADMIN_EMAIL",
		flagAdminPassword:      "ADMIN_PASSWORD",
	}
	for flagName, envName := range bindings {
		configKey := strings.ReplaceAll(flagName, "-", "_")
		if err := viper.BindEnv(configKey, envName); err != nil {
			return err
		}
		if err := viper.BindPFlag(configKey, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString("database_url")
	cfg.ListenAddr = viper.GetString("listen_addr")
	cfg.AllowedOrigins = viper.GetString("allowed_origins")
	cfg.StoreBackend = viper.GetString("store_backend")
	cfg.JWTSecret = viper.GetString("jwt_secret")
	cfg.JWTIssuer = viper.GetString("jwt_issuer")
	cfg.JWTAudience = viper.GetString("jwt_audience")
	cfg.TokenTTL = viper.GetDuration("token_ttl")
	cfg.PaymentBaseURL = viper.GetString("payment_base_url")
	cfg.PaymentPublicKey = viper.GetString("payment_public_key")
	cfg.PaymentPrivateKey = viper.GetString("payment_private_key")
	cfg.PaymentMerchantID = viper.GetString("payment_merchant_id")
	cfg.MailjetPublicKey = viper.GetString("mailjet_public_key")
	cfg.MailjetPrivateKey = viper.GetString("mailjet_private_key")
	cfg.MailjetSenderEmail = viper.GetString("mailjet_sender_email")
	cfg.MailjetSenderName = viper.GetString("mailjet_sender_name")
	cfg.InvoiceTemplateID = viper.GetInt64("mailjet_invoice_template_id")
	cfg.SweepInterval = viper.GetDuration("sweep_interval")
	cfg.AdminEmail = viper.GetString("admin_email")
	cfg.AdminPassword = viper.GetString("admin_password")

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = defaultStoreBackend
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if cfg.PaymentBaseURL == "" || cfg.PaymentPublicKey == "" || cfg.PaymentPrivateKey == "" {
		return fmt.Errorf("payment gateway configuration is required")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store open: %w", err)
	}
	defer func() { _ = cleanup() }()

	gateway, err := payment.New(payment.Config{
		BaseURL:    cfg.PaymentBaseURL,
		PublicKey:  cfg.PaymentPublicKey,
		PrivateKey: cfg.PaymentPrivateKey,
		MerchantID: cfg.PaymentMerchantID,
	})
	if err != nil {
		return fmt.Errorf("payment gateway init: %w", err)
	}

	clock := func() int64 { return time.Now().UTC().Unix() }
	serviceOptions := []rental.ServiceOption{
		rental.WithOperationLogger(&zapOperationLogger{logger: logger}),
	}
	if cfg.MailjetPublicKey != "" && cfg.MailjetPrivateKey != "" {
		templateIDs := map[string]int64{}
		if cfg.InvoiceTemplateID > 0 {
			templateIDs[invoiceTemplateName] = cfg.InvoiceTemplateID
		}
		receiptMailer, err := mailer.New(mailer.Config{
			APIKeyPublic:  cfg.MailjetPublicKey,
			APIKeyPrivate: cfg.MailjetPrivateKey,
			SenderEmail:   cfg.MailjetSenderEmail,
			SenderName:    cfg.MailjetSenderName,
			TemplateIDs:   templateIDs,
		})
		if err != nil {
			return fmt.Errorf("mailer init: %w", err)
		}
		serviceOptions = append(serviceOptions, rental.WithEmailSender(receiptMailer))
	}

	rentalService, err := rental.NewService(store, gateway, clock, serviceOptions...)
	if err != nil {
		return fmt.Errorf("rental service init: %w", err)
	}

	authCfg := auth.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TokenTTL: cfg.TokenTTL,
	}
	authenticator, err := auth.NewAuthenticator(store, authCfg, time.Now)
	if err != nil {
		return fmt.Errorf("authenticator init: %w", err)
	}
	if err := authenticator.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("admin bootstrap: %w", err)
	}

	go runSweeper(ctx, logger, rentalService, cfg.SweepInterval)

	serverCfg := httpserver.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: httpserver.ParseAllowedOrigins(cfg.AllowedOrigins),
	}
	return httpserver.Run(ctx, serverCfg, logger, rentalService, authenticator, authCfg)
}

// runSweeper periodically expires finished reservations and reconciles
// vehicle availability with the confirmed schedule.
func runSweeper(ctx context.Context, logger *zap.Logger, service *rental.Service, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := service.SweepVehicleAvailability(ctx)
			if err != nil {
				logger.Warn("availability sweep failed", zap.Error(err))
				continue
			}
			if result.ExpiredReservations > 0 || result.VehiclesInWindow > 0 {
				logger.Info("availability sweep",
					zap.Int("expired_reservations", result.ExpiredReservations),
					zap.Int("vehicles_in_window", result.VehiclesInWindow),
				)
			}
		}
	}
}

func openStore(ctx context.Context, cfg *runtimeConfig) (rental.Store, func() error, error) {
	driver, sqlitePath, err := resolveDriver(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	if driver == "postgres" && cfg.StoreBackend == storeBackendPgx {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() error {
			pool.Close()
			return nil
		}
		return pgstore.New(pool), cleanup, nil
	}
	if cfg.StoreBackend != storeBackendGorm && cfg.StoreBackend != storeBackendPgx {
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}

	var db *gorm.DB
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if driver == "sqlite" {
		if err := gormstore.Migrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	cleanup := func() error { return sqlDB.Close() }
	return gormstore.New(db.WithContext(ctx)), cleanup, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "rental.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

// zapOperationLogger adapts zap to the domain operation log callback.
type zapOperationLogger struct {
	logger *zap.Logger
}

func (operationLogger *zapOperationLogger) LogOperation(_ context.Context, entry rental.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if entry.UserID != "" {
		fields = append(fields, zap.String("user_id", entry.UserID))
	}
	if entry.VehicleID != "" {
		fields = append(fields, zap.String("vehicle_id", entry.VehicleID))
	}
	if entry.ReservationID != "" {
		fields = append(fields, zap.String("reservation_id", entry.ReservationID))
	}
	if entry.TransactionID != "" {
		fields = append(fields, zap.String("transaction_id", entry.TransactionID))
	}
	if entry.AmountCents > 0 {
		fields = append(fields, zap.Int64("amount_cents", entry.AmountCents.Int64()))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		operationLogger.logger.Warn("rental operation", fields...)
		return
	}
	operationLogger.logger.Info("rental operation", fields...)
}
