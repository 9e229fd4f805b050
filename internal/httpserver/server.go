package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/rental/internal/auth"
	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

// Run boots the HTTP API and blocks until the context is cancelled.
func Run(ctx context.Context, cfg Config, logger *zap.Logger, service *rental.Service, authenticator *auth.Authenticator, authCfg auth.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	handler := &httpHandler{
		logger:        logger,
		service:       service,
		authenticator: authenticator,
		authCfg:       authCfg,
	}
	router := setupRouter(cfg, handler, authCfg)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("rental api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler, authCfg auth.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/api/accounts/register", handler.handleRegister)
	router.POST("/api/accounts/login", handler.handleLogin)

	api := router.Group("/api")
	api.Use(auth.GinMiddleware(authCfg))

	api.GET("/vehicles", handler.handleListVehicles)
	api.GET("/vehicles/:id", handler.handleGetVehicle)
	api.POST("/vehicles", handler.handleCreateVehicle)
	api.PUT("/vehicles/:id", handler.handleUpdateVehicle)
	api.DELETE("/vehicles/:id", handler.handleDeleteVehicle)

	api.POST("/reservations", handler.handleCreateReservation)
	api.POST("/reservations/:id/cancel", handler.handleCancelReservation)
	api.GET("/reservations", handler.handleListReservations)

	api.POST("/transactions", handler.handleCaptureTransaction)
	api.GET("/transactions", handler.handleListTransactions)
	api.GET("/invoices", handler.handleListInvoices)
	api.GET("/reports/income", handler.handleIncomeReport)

	return router
}

type httpHandler struct {
	logger        *zap.Logger
	service       *rental.Service
	authenticator *auth.Authenticator
	authCfg       auth.Config
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// respondError maps a domain error onto an HTTP status and a stable
// error code. Unknown errors collapse into a 500 without leaking detail.
func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	type mapping struct {
		target error
		status int
		code   string
	}
	mappings := []mapping{
		{rental.ErrVehicleNotFound, http.StatusNotFound, "vehicle_not_found"},
		{rental.ErrReservationNotFound, http.StatusNotFound, "reservation_not_found"},
		{rental.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
		{rental.ErrVehicleUnavailable, http.StatusConflict, "vehicle_unavailable"},
		{rental.ErrReservationConflict, http.StatusConflict, "reservation_conflict"},
		{rental.ErrReservationAlreadyCancelled, http.StatusConflict, "reservation_already_cancelled"},
		{rental.ErrReservationExpired, http.StatusConflict, "reservation_expired"},
		{rental.ErrReservationConfirmed, http.StatusConflict, "reservation_confirmed"},
		{rental.ErrUserExists, http.StatusConflict, "user_exists"},
		{rental.ErrPaymentDeclined, http.StatusPaymentRequired, "payment_declined"},
		{rental.ErrForbidden, http.StatusForbidden, "forbidden"},
		{rental.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{rental.ErrInvalidRange, http.StatusBadRequest, "invalid_range"},
		{rental.ErrInvalidVehicle, http.StatusBadRequest, "invalid_vehicle"},
		{rental.ErrInvalidAmountCents, http.StatusBadRequest, "invalid_amount"},
		{rental.ErrInvalidPaymentNonce, http.StatusBadRequest, "invalid_payment_nonce"},
		{rental.ErrInvalidPaymentMethod, http.StatusBadRequest, "invalid_payment_method"},
		{rental.ErrInvalidVehicleID, http.StatusBadRequest, "invalid_vehicle_id"},
		{rental.ErrInvalidReservationID, http.StatusBadRequest, "invalid_reservation_id"},
		{rental.ErrInvalidUserID, http.StatusBadRequest, "invalid_user_id"},
		{rental.ErrInvalidReservationStatus, http.StatusBadRequest, "invalid_status"},
		{rental.ErrInvalidRole, http.StatusBadRequest, "invalid_role"},
	}
	for _, candidate := range mappings {
		if errors.Is(err, candidate.target) {
			ctx.JSON(candidate.status, errorResponse(candidate.code, candidate.target.Error()))
			return
		}
	}
	handler.logger.Error("request failed", zap.Error(err))
	ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "internal error"))
}

func (handler *httpHandler) actor(ctx *gin.Context) (rental.Actor, bool) {
	actor, ok := auth.GetActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return rental.Actor{}, false
	}
	return actor, true
}
