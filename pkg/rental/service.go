package rental

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service contains the reservation, catalog, and reporting logic over a
// Store, a PaymentGateway, and an optional EmailSender.
type Service struct {
	store   Store
	gateway PaymentGateway
	mailer  EmailSender
	nowFn   func() int64
	idFn    func() string
	logger  OperationLogger
}

// NewService wires a Service. The gateway client is constructed once at
// process start and injected here; the service never reaches for global
// state.
func NewService(store Store, gateway PaymentGateway, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if gateway == nil {
		return nil, fmt.Errorf("%w: payment gateway dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, gateway: gateway, nowFn: now, idFn: uuid.NewString}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateReservation books a vehicle for the period and captures payment.
//
// The provisional reservation and its pending transaction commit first;
// the gateway Sale then runs outside any store transaction; a second
// transaction persists the verdict. On success the reservation is
// confirmed, the vehicle marked unavailable, and the transaction
// completed in one commit. On decline or gateway failure the
// provisional reservation is removed in the same commit that finalizes
// the failed transaction, so no reservation row outlives a failed
// payment.
func (service *Service) CreateReservation(ctx context.Context, actor Actor, vehicleID string, period TimeRange, amount AmountCents, method string, paymentNonce string) (Reservation, Transaction, error) {
	reservation, transaction, operationError := service.createReservation(ctx, actor, vehicleID, period, amount, method, paymentNonce)
	service.logOperation(ctx, OperationLog{
		Operation:     operationCreateReservation,
		UserID:        actor.UserID,
		VehicleID:     vehicleID,
		ReservationID: reservation.ReservationID,
		TransactionID: transaction.TransactionID,
		AmountCents:   amount,
		Error:         operationError,
	})
	if operationError != nil {
		return Reservation{}, Transaction{}, operationError
	}
	service.sendReceipt(actor.UserID, transaction)
	return reservation, transaction, nil
}

func (service *Service) createReservation(ctx context.Context, actor Actor, vehicleID string, period TimeRange, amount AmountCents, method string, paymentNonce string) (Reservation, Transaction, error) {
	if err := validatePaymentInput(amount, method, paymentNonce); err != nil {
		return Reservation{}, Transaction{}, err
	}
	nowUnixUTC := service.nowFn()
	if period.StartUnixUTC() <= nowUnixUTC {
		return Reservation{}, Transaction{}, fmt.Errorf("%w: start must be in the future", ErrInvalidRange)
	}

	reservation := Reservation{
		ReservationID:  service.idFn(),
		UserID:         actor.UserID,
		VehicleID:      vehicleID,
		Period:         period,
		Status:         ReservationStatusPending,
		TotalCostCents: amount,
		CreatedUnixUTC: nowUnixUTC,
		UpdatedUnixUTC: nowUnixUTC,
	}
	transaction := Transaction{
		TransactionID:  service.idFn(),
		ReservationID:  reservation.ReservationID,
		AmountCents:    amount,
		Method:         method,
		Status:         TransactionStatusPending,
		CreatedUnixUTC: nowUnixUTC,
	}

	provisionErr := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		vehicle, err := transactionStore.GetVehicleForUpdate(ctx, vehicleID)
		if err != nil {
			return err
		}
		if vehicle.Deleted {
			return ErrVehicleNotFound
		}
		if !vehicle.Available {
			// The flag also flips when a confirmed booking exists, and a
			// booked vehicle still accepts disjoint periods; the overlap
			// scan below decides those. Only an unexplained flag means the
			// vehicle is out of service.
			horizon, horizonErr := NewTimeRange(nowUnixUTC+1, nowUnixUTC+bookingHorizonSeconds)
			if horizonErr != nil {
				return horizonErr
			}
			booked, bookedErr := transactionStore.CountOverlapping(ctx, vehicleID, horizon)
			if bookedErr != nil {
				return bookedErr
			}
			if booked == 0 {
				return ErrVehicleUnavailable
			}
		}
		overlapping, err := transactionStore.CountOverlapping(ctx, vehicleID, period)
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return ErrReservationConflict
		}
		if err := transactionStore.CreateReservation(ctx, reservation); err != nil {
			return err
		}
		return transactionStore.CreateTransaction(ctx, transaction)
	})
	if provisionErr != nil {
		return Reservation{}, Transaction{}, provisionErr
	}

	// Blocking network call; deliberately between the two store
	// transactions so no row lock spans the round trip.
	saleResult, saleErr := service.gateway.Sale(ctx, SaleRequest{
		Amount:              amount.DecimalString(),
		PaymentMethodNonce:  paymentNonce,
		SubmitForSettlement: true,
	})
	if saleErr != nil || !saleResult.Success {
		verdict := service.rollbackProvisional(ctx, reservation, transaction, saleResult, saleErr)
		return Reservation{}, Transaction{}, verdict
	}

	confirmErr := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if err := transactionStore.UpdateReservationStatus(ctx, reservation.ReservationID, ReservationStatusPending, ReservationStatusConfirmed); err != nil {
			return err
		}
		if err := transactionStore.SetVehicleAvailability(ctx, vehicleID, false); err != nil {
			return err
		}
		return transactionStore.FinalizeTransaction(ctx, transaction.TransactionID, TransactionStatusCompleted, saleResult.TransactionID, saleResult.Status, saleResult.Message)
	})
	if confirmErr != nil {
		return Reservation{}, Transaction{}, confirmErr
	}

	reservation.Status = ReservationStatusConfirmed
	transaction.Status = TransactionStatusCompleted
	transaction.GatewayTransactionID = saleResult.TransactionID
	transaction.GatewayStatus = saleResult.Status
	transaction.GatewayMessage = saleResult.Message
	return reservation, transaction, nil
}

// rollbackProvisional removes the provisional reservation and finalizes
// the failed transaction in one commit. The failed transaction row is
// retained for reconciliation.
func (service *Service) rollbackProvisional(ctx context.Context, reservation Reservation, transaction Transaction, saleResult SaleResult, saleErr error) error {
	message := saleResult.Message
	if saleErr != nil {
		message = saleErr.Error()
	}
	rollbackErr := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if err := transactionStore.FinalizeTransaction(ctx, transaction.TransactionID, TransactionStatusFailed, saleResult.TransactionID, saleResult.Status, message); err != nil {
			return err
		}
		return transactionStore.MarkReservationDeleted(ctx, reservation.ReservationID)
	})
	if rollbackErr != nil {
		return rollbackErr
	}
	if saleErr != nil {
		return fmt.Errorf("%w: %v", ErrPaymentDeclined, saleErr)
	}
	return fmt.Errorf("%w: %s", ErrPaymentDeclined, message)
}

// CancelReservation cancels a booking. The lookup is ownership-scoped:
// callers without an elevated role only see their own reservations, so
// a foreign id reports not found rather than forbidden. Vehicle
// availability is recomputed from the remaining confirmed reservations
// instead of being hard-set.
func (service *Service) CancelReservation(ctx context.Context, actor Actor, reservationID string) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		reservation, err := transactionStore.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation.Deleted {
			return ErrReservationNotFound
		}
		if reservation.UserID != actor.UserID && !actor.Role.CanViewOthers() {
			return ErrReservationNotFound
		}
		switch reservation.Status {
		case ReservationStatusCancelled:
			return ErrReservationAlreadyCancelled
		case ReservationStatusExpired:
			return ErrReservationExpired
		}
		// A confirmed reservation whose period has ended is expired even
		// when the sweep has not stamped it yet.
		if reservation.Status == ReservationStatusConfirmed && reservation.Period.EndUnixUTC() <= service.nowFn() {
			return ErrReservationExpired
		}
		if err := transactionStore.UpdateReservationStatus(ctx, reservationID, reservation.Status, ReservationStatusCancelled); err != nil {
			return err
		}
		covered, err := transactionStore.HasConfirmedCovering(ctx, reservation.VehicleID, service.nowFn())
		if err != nil {
			return err
		}
		return transactionStore.SetVehicleAvailability(ctx, reservation.VehicleID, !covered)
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationCancelReservation,
		UserID:        actor.UserID,
		ReservationID: reservationID,
		Error:         operationError,
	})
	return operationError
}

// ListReservations returns bookings visible to the caller. Elevated and
// employee roles see everything (optionally narrowed to one user);
// everyone else sees only their own.
func (service *Service) ListReservations(ctx context.Context, actor Actor, filter ReservationFilter) ([]Reservation, error) {
	if !actor.Role.CanViewOthers() {
		if filter.UserID != "" && filter.UserID != actor.UserID {
			return nil, ErrForbidden
		}
		filter.UserID = actor.UserID
	}
	return service.store.ListReservations(ctx, filter)
}

func (service *Service) sendReceipt(userID string, transaction Transaction) {
	if service.mailer == nil {
		return
	}
	resultMessage := transaction.GatewayMessage
	if resultMessage == "" {
		resultMessage = fallbackGatewayMessage
	}
	message := EmailMessage{
		Subject:      receiptEmailSubject,
		TemplateName: receiptEmailTemplate,
		Variables: map[string]any{
			"transaction_id": transaction.GatewayTransactionID,
			"payment_method": transaction.Method,
			"amount":         transaction.AmountCents.DecimalString(),
			"created_at":     transaction.CreatedUnixUTC,
			"result_message": resultMessage,
		},
	}
	mailer := service.mailer
	store := service.store
	logger := service.logger
	go func() {
		ctx := context.Background()
		user, err := store.GetUser(ctx, userID)
		if err == nil {
			message.RecipientEmail = user.Email
			message.RecipientName = user.DisplayName
			err = mailer.Send(ctx, message)
		}
		if err != nil && logger != nil {
			logger.LogOperation(ctx, OperationLog{
				Operation:     "send_receipt",
				UserID:        userID,
				TransactionID: transaction.TransactionID,
				Status:        operationStatusError,
				Error:         err,
			})
		}
	}()
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func validatePaymentInput(amount AmountCents, method string, paymentNonce string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmountCents)
	}
	if method == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidPaymentMethod)
	}
	if paymentNonce == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidPaymentNonce)
	}
	return nil
}
