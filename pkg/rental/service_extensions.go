package rental

import (
	"context"
	"fmt"
)

// CaptureTransaction records a standalone payment against an existing
// pending reservation and, when the gateway accepts it, confirms the
// booking. Declined attempts keep their failed transaction row and
// leave the reservation pending for a later resubmission.
func (service *Service) CaptureTransaction(ctx context.Context, actor Actor, reservationID string, amount AmountCents, method string, paymentNonce string) (Transaction, error) {
	transaction, operationError := service.captureTransaction(ctx, actor, reservationID, amount, method, paymentNonce)
	service.logOperation(ctx, OperationLog{
		Operation:     operationCaptureTransaction,
		UserID:        actor.UserID,
		ReservationID: reservationID,
		TransactionID: transaction.TransactionID,
		AmountCents:   amount,
		Error:         operationError,
	})
	if operationError != nil {
		return Transaction{}, operationError
	}
	service.sendReceipt(actor.UserID, transaction)
	return transaction, nil
}

func (service *Service) captureTransaction(ctx context.Context, actor Actor, reservationID string, amount AmountCents, method string, paymentNonce string) (Transaction, error) {
	if err := validatePaymentInput(amount, method, paymentNonce); err != nil {
		return Transaction{}, err
	}

	transaction := Transaction{
		TransactionID:  service.idFn(),
		ReservationID:  reservationID,
		AmountCents:    amount,
		Method:         method,
		Status:         TransactionStatusPending,
		CreatedUnixUTC: service.nowFn(),
	}

	var vehicleID string
	provisionErr := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
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
		case ReservationStatusConfirmed:
			return ErrReservationConfirmed
		case ReservationStatusCancelled:
			return ErrReservationAlreadyCancelled
		case ReservationStatusExpired:
			return ErrReservationExpired
		}
		vehicleID = reservation.VehicleID
		// The period was free when the reservation was taken, but another
		// hold on the same vehicle may have been confirmed since.
		confirmed, err := transactionStore.ListReservations(ctx, ReservationFilter{
			VehicleID: vehicleID,
			Status:    ReservationStatusConfirmed,
		})
		if err != nil {
			return err
		}
		for _, other := range confirmed {
			if other.Period.Overlaps(reservation.Period) {
				return ErrReservationConflict
			}
		}
		return transactionStore.CreateTransaction(ctx, transaction)
	})
	if provisionErr != nil {
		return Transaction{}, provisionErr
	}

	saleResult, saleErr := service.gateway.Sale(ctx, SaleRequest{
		Amount:              amount.DecimalString(),
		PaymentMethodNonce:  paymentNonce,
		SubmitForSettlement: true,
	})
	if saleErr != nil || !saleResult.Success {
		message := saleResult.Message
		if saleErr != nil {
			message = saleErr.Error()
		}
		failErr := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			return transactionStore.FinalizeTransaction(ctx, transaction.TransactionID, TransactionStatusFailed, saleResult.TransactionID, saleResult.Status, message)
		})
		if failErr != nil {
			return Transaction{}, failErr
		}
		return Transaction{}, fmt.Errorf("%w: %s", ErrPaymentDeclined, message)
	}

	confirmErr := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if err := transactionStore.UpdateReservationStatus(ctx, reservationID, ReservationStatusPending, ReservationStatusConfirmed); err != nil {
			return err
		}
		if err := transactionStore.SetVehicleAvailability(ctx, vehicleID, false); err != nil {
			return err
		}
		return transactionStore.FinalizeTransaction(ctx, transaction.TransactionID, TransactionStatusCompleted, saleResult.TransactionID, saleResult.Status, saleResult.Message)
	})
	if confirmErr != nil {
		return Transaction{}, confirmErr
	}

	transaction.Status = TransactionStatusCompleted
	transaction.GatewayTransactionID = saleResult.TransactionID
	transaction.GatewayStatus = saleResult.Status
	transaction.GatewayMessage = saleResult.Message
	return transaction, nil
}

// ListTransactions returns payment attempts visible to the caller.
func (service *Service) ListTransactions(ctx context.Context, actor Actor, filter TransactionFilter) ([]Transaction, error) {
	if !actor.Role.CanViewOthers() {
		if filter.UserID != "" && filter.UserID != actor.UserID {
			return nil, ErrForbidden
		}
		filter.UserID = actor.UserID
	}
	return service.store.ListTransactions(ctx, filter)
}

// ListInvoices pairs the user's confirmed reservations with their
// completed transactions. Looking at another user requires a role that
// may view others.
func (service *Service) ListInvoices(ctx context.Context, actor Actor, userID string) ([]Invoice, error) {
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.Role.CanViewOthers() {
		return nil, ErrForbidden
	}
	reservations, err := service.store.ListReservations(ctx, ReservationFilter{
		UserID: userID,
		Status: ReservationStatusConfirmed,
	})
	if err != nil {
		return nil, err
	}
	invoices := make([]Invoice, 0, len(reservations))
	for _, reservation := range reservations {
		transactions, err := service.store.ListTransactions(ctx, TransactionFilter{
			ReservationID: reservation.ReservationID,
			Status:        TransactionStatusCompleted,
		})
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, Invoice{Reservation: reservation, Transactions: transactions})
	}
	return invoices, nil
}

// SweepVehicleAvailability expires confirmed reservations whose end has
// passed and recomputes vehicle availability from what remains; it then
// forces vehicles with an in-window confirmed reservation unavailable.
// The pass is idempotent and safe to run concurrently with create and
// cancel.
func (service *Service) SweepVehicleAvailability(ctx context.Context) (SweepResult, error) {
	nowUnixUTC := service.nowFn()
	var result SweepResult
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		expired, err := transactionStore.ListReservations(ctx, ReservationFilter{
			Status:                ReservationStatusConfirmed,
			EndsOnOrBeforeUnixUTC: nowUnixUTC,
		})
		if err != nil {
			return err
		}
		for _, reservation := range expired {
			if err := transactionStore.UpdateReservationStatus(ctx, reservation.ReservationID, ReservationStatusConfirmed, ReservationStatusExpired); err != nil {
				return err
			}
			covered, err := transactionStore.HasConfirmedCovering(ctx, reservation.VehicleID, nowUnixUTC)
			if err != nil {
				return err
			}
			if err := transactionStore.SetVehicleAvailability(ctx, reservation.VehicleID, !covered); err != nil {
				return err
			}
			result.ExpiredReservations++
		}

		inWindow, err := transactionStore.ListReservations(ctx, ReservationFilter{
			Status:            ReservationStatusConfirmed,
			InWindowAtUnixUTC: nowUnixUTC,
		})
		if err != nil {
			return err
		}
		for _, reservation := range inWindow {
			if err := transactionStore.SetVehicleAvailability(ctx, reservation.VehicleID, false); err != nil {
				return err
			}
			result.VehiclesInWindow++
		}
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationSweepAvailability,
		Error:     operationError,
	})
	if operationError != nil {
		return SweepResult{}, operationError
	}
	return result, nil
}
