package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MarkoPoloResearchLab/rental/internal/auth"
	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (handler *httpHandler) handleRegister(ctx *gin.Context) {
	var request registerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	role := rental.RoleCustomer
	if request.Role != "" && request.Role != rental.RoleCustomer.String() {
		// Staff roles are assigned by an elevated caller, never self-claimed.
		caller, err := handler.bearerActor(ctx)
		if err != nil || !caller.Role.Elevated() {
			ctx.JSON(http.StatusForbidden, errorResponse("forbidden", "role assignment requires an elevated caller"))
			return
		}
		parsed, err := rental.ParseRole(request.Role)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		role = parsed
	}
	session, err := handler.authenticator.Register(ctx.Request.Context(), auth.RegisterInput{
		Email:       request.Email,
		DisplayName: request.DisplayName,
		Password:    request.Password,
		Role:        role,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, sessionPayloadFrom(session))
}

func (handler *httpHandler) handleLogin(ctx *gin.Context) {
	var request loginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	session, err := handler.authenticator.Login(ctx.Request.Context(), request.Email, request.Password)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sessionPayloadFrom(session))
}

// bearerActor parses an optional Authorization header on routes outside
// the auth middleware.
func (handler *httpHandler) bearerActor(ctx *gin.Context) (rental.Actor, error) {
	header := ctx.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return rental.Actor{}, rental.ErrInvalidCredentials
	}
	return auth.ParseToken(handler.authCfg, token)
}

type vehicleRequest struct {
	Name           string `json:"name"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	Year           int    `json:"year"`
	Color          string `json:"color"`
	DailyRateCents int64  `json:"daily_rate_cents"`
}

type vehicleUpdateRequest struct {
	Name           *string `json:"name"`
	Make           *string `json:"make"`
	Model          *string `json:"model"`
	Year           *int    `json:"year"`
	Color          *string `json:"color"`
	DailyRateCents *int64  `json:"daily_rate_cents"`
	Available      *bool   `json:"available"`
}

func (handler *httpHandler) handleListVehicles(ctx *gin.Context) {
	actor, ok := handler.actor(ctx)
	if !ok {
		return
	}
	filter := rental.VehicleFilter{
		AvailableOnly:  ctx.Query("available") == "true",
		IncludeDeleted: ctx.Query("include_deleted") == "true",
	}
	vehicles, err := handler.service.ListVehicles(ctx.Request.Context(), actor, filter)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]vehiclePayload, 0, len(vehicles))
	for _, vehicle := range vehicles {
		payloads = append(payloads, vehiclePayloadFrom(vehicle))
	}
	ctx.JSON(http.StatusOK, gin.H{"vehicles": payloads})
}

func (handler *httpHandler) handleGetVehicle(ctx *gin.Context) {
	actor, ok := handler.actor(ctx)
	if !ok {
		return
	}
	vehicle, err := handler.service.GetVehicle(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, vehiclePayloadFrom(vehicle))
}

func (handler *httpHandler) handleCreateVehicle(ctx *gin.Context) {
	actor, ok := handler.actor(ctx)
	if !ok {
		return
	}
	var request vehicleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	dailyRate, err := rental.NewAmountCents(request.DailyRateCents)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	vehicle, err := handler.service.CreateVehicle(ctx.Request.Context(), actor, rental.VehicleInput{
		Name:           request.Name,
		Make:           request.Make,
		Model:          request.Model,
		Year:           request.Year,
		Color:          request.Color,
		DailyRateCents: dailyRate,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, vehiclePayloadFrom(vehicle))
}

func (handler *httpHandler) handleUpdateVehicle(ctx *gin.Context) {
	actor, ok := handler.actor(ctx)
	if !ok {
		return
	}
	var request vehicleUpdateRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	update := rental.VehicleUpdate{
		Name:      request.Name,
		Make:      request.Make,
		Model:     request.Model,
		Year:      request.Year,
		Color:     request.Color,
		Available: request.Available,
	}
	if request.DailyRateCents != nil {
		dailyRate, err := rental.NewAmountCents(*request.DailyRateCents)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		update.DailyRateCents = &dailyRate
	}
	vehicle, err := handler.service.UpdateVehicle(ctx.Request.Context(), actor, ctx.Param("id"), update)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, vehiclePayloadFrom(vehicle))
}

func (handler *httpHandler) handleDeleteVehicle(ctx *gin.Context) {
	actor, ok := handler.actor(ctx)
	if !ok {
		return
	}
	if err := handler.service.DeleteVehicle(ctx.Request.Context(), actor, ctx.Param("id")); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type reservationRequest struct {
	VehicleID          string `json:"vehicle_id"`
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	AmountCents        int64  `json:"amount_cents"`
	PaymentMethod      string `json:"payment_method"`
	PaymentMethodNonce string `json:"payment_method_nonce"`
}

func (handler *httpHandler) handleCreateReservation(ctx *gin.Context) {
	actor, ok := handler.actor(ctx)
	if !ok {
		return
	}
	var request reservationRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	period, err := parsePeriod(request.StartDate, request.EndDate)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	amount, err := rental.NewAmountCents(request.AmountCents)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	reservation, transaction, err := handler.service.CreateReservation(
		ctx.Request.Context(), actor, request.VehicleID, period, amount,
		request.PaymentMethod, request.PaymentMethodNonce,
	)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"reservation": reservationPayloadFrom(reservation),
		"transaction": transactionPayloadFrom(transaction),
	})
}

func (handler *httpHandler) handleCancelReservation(ctx *gin.Context) {
	actor, ok := handler.actor(ctx)
	if !ok {
		return
	}
	if err := handler.service.CancelReservation(ctx.Request.Context(), actor, ctx.Param("id")); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (handler *httpHandler) handleListReservations(ctx *gin.Context) {
	actor, ok := handler.actor(ctx)
	if !ok {
		return
	}
	filter := rental.ReservationFilter{
		UserID:    ctx.Query("user_id"),
		VehicleID: ctx.Query("vehicle_id"),
	}
	if rawStatus := ctx.Query("status"); rawStatus != "" {
		status, err := rental.ParseReservationStatus(rawStatus)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		filter.Status = status
	}
	if rawStart := ctx.Query("start_date"); rawStart != "" {
		startUnixUTC, err := parseDateTime(rawStart)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		filter.StartFromUnixUTC = startUnixUTC
	}
	if rawEnd := ctx.Query("end_date"); rawEnd != "" {
		endUnixUTC, err := parseDateTime(rawEnd)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		filter.StartUntilUnixUTC = endUnixUTC
	}
	reservations, err := handler.service.ListReservations(ctx.Request.Context(), actor, filter)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]reservationPayload, 0, len(reservations))
	for _, reservation := range reservations {
		payloads = append(payloads, reservationPayloadFrom(reservation))
	}
	ctx.JSON(http.StatusOK, gin.H{"reservations": payloads})
}

type captureRequest struct {
	ReservationID      string `json:"reservation_id"`
	AmountCents        int64  `json:"amount_cents"`
	PaymentMethod      string `json:"payment_method"`
	PaymentMethodNonce string `json:"payment_method_nonce"`
}

func (handler *httpHandler) handleCaptureTransaction(ctx *gin.Context) {
	actor, ok := handler.actor(ctx)
	if !ok {
		return
	}
	var request captureRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	amount, err := rental.NewAmountCents(request.AmountCents)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	transaction, err := handler.service.CaptureTransaction(
		ctx.Request.Context(), actor, request.ReservationID, amount,
		request.PaymentMethod, request.PaymentMethodNonce,
	)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, transactionPayloadFrom(transaction))
}

func (handler *httpHandler) handleListTransactions(ctx *gin.Context) {
	actor, ok := handler.actor(ctx)
	if !ok {
		return
	}
	filter := rental.TransactionFilter{
		ReservationID: ctx.Query("reservation_id"),
		UserID:        ctx.Query("user_id"),
	}
	if rawStatus := ctx.Query("status"); rawStatus != "" {
		status, err := rental.ParseTransactionStatus(rawStatus)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		filter.Status = status
	}
	transactions, err := handler.service.ListTransactions(ctx.Request.Context(), actor, filter)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]transactionPayload, 0, len(transactions))
	for _, transaction := range transactions {
		payloads = append(payloads, transactionPayloadFrom(transaction))
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": payloads})
}

func (handler *httpHandler) handleListInvoices(ctx *gin.Context) {
	actor, ok := handler.actor(ctx)
	if !ok {
		return
	}
	userID := ctx.Query("user_id")
	if userID == "" {
		userID = actor.UserID
	}
	invoices, err := handler.service.ListInvoices(ctx.Request.Context(), actor, userID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]invoicePayload, 0, len(invoices))
	for _, invoice := range invoices {
		payloads = append(payloads, invoicePayloadFrom(invoice))
	}
	ctx.JSON(http.StatusOK, gin.H{"invoices": payloads})
}

func (handler *httpHandler) handleIncomeReport(ctx *gin.Context) {
	actor, ok := handler.actor(ctx)
	if !ok {
		return
	}
	startUnixUTC, err := parseDateTime(ctx.Query("start_date"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	endUnixUTC, err := parseDateTime(ctx.Query("end_date"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	report, err := handler.service.PeriodIncomeReport(ctx.Request.Context(), actor, startUnixUTC, endUnixUTC)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, reportPayloadFrom(report))
}
