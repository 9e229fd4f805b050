package rental

import (
	"context"
	"errors"
	"testing"
)

func TestCaptureTransactionConfirmsPendingReservation(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.addVehicle(t, "veh-1", true)
	store.addReservation(t, "res-1", "user-1", "veh-1", testNowUnixUTC+3600, testNowUnixUTC+7200, ReservationStatusPending)
	gateway := &stubGateway{result: SaleResult{Success: true, TransactionID: "gw-2", Status: "settled"}}
	service := mustNewService(t, store, gateway)
	actor := mustActor(t, "user-1", RoleCustomer)

	transaction, err := service.CaptureTransaction(context.Background(), actor, "res-1", mustAmount(t, 5000), "card", "nonce-1")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if transaction.Status != TransactionStatusCompleted || transaction.GatewayTransactionID != "gw-2" {
		t.Fatalf("unexpected transaction: %+v", transaction)
	}
	if store.mustReservation(t, "res-1").Status != ReservationStatusConfirmed {
		t.Fatalf("expected reservation confirmed after capture")
	}
	if store.vehicles["veh-1"].Available {
		t.Fatalf("expected vehicle unavailable after capture")
	}
}

func TestCaptureTransactionRejectsCompetingConfirmedPeriod(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.addVehicle(t, "veh-1", true)
	// Two pending holds over the same period; only the first capture may win.
	store.addReservation(t, "res-1", "user-1", "veh-1", testNowUnixUTC+3600, testNowUnixUTC+7200, ReservationStatusPending)
	store.addReservation(t, "res-2", "user-2", "veh-1", testNowUnixUTC+3600, testNowUnixUTC+7200, ReservationStatusPending)
	gateway := &stubGateway{result: SaleResult{Success: true, TransactionID: "gw-1", Status: "settled"}}
	service := mustNewService(t, store, gateway)

	if _, err := service.CaptureTransaction(context.Background(), mustActor(t, "user-1", RoleCustomer), "res-1", mustAmount(t, 5000), "card", "nonce-1"); err != nil {
		t.Fatalf("first capture: %v", err)
	}
	if store.mustReservation(t, "res-1").Status != ReservationStatusConfirmed {
		t.Fatalf("expected first reservation confirmed")
	}

	_, err := service.CaptureTransaction(context.Background(), mustActor(t, "user-2", RoleCustomer), "res-2", mustAmount(t, 5000), "card", "nonce-2")
	if !errors.Is(err, ErrReservationConflict) {
		t.Fatalf("expected ErrReservationConflict, got %v", err)
	}
	if store.mustReservation(t, "res-2").Status != ReservationStatusPending {
		t.Fatalf("expected losing reservation kept pending")
	}
	if gateway.calls != 1 {
		t.Fatalf("expected no gateway call for the losing capture, got %d", gateway.calls)
	}
	if len(store.transactionOrder) != 1 {
		t.Fatalf("expected no transaction row for the losing capture, got %d", len(store.transactionOrder))
	}
}

func TestCaptureTransactionDeclineKeepsReservationPending(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.addVehicle(t, "veh-1", true)
	store.addReservation(t, "res-1", "user-1", "veh-1", testNowUnixUTC+3600, testNowUnixUTC+7200, ReservationStatusPending)
	gateway := &stubGateway{result: SaleResult{Success: false, Message: "Do Not Honor"}}
	service := mustNewService(t, store, gateway)
	actor := mustActor(t, "user-1", RoleCustomer)

	_, err := service.CaptureTransaction(context.Background(), actor, "res-1", mustAmount(t, 5000), "card", "nonce-1")
	if !errors.Is(err, ErrPaymentDeclined) {
		t.Fatalf("expected ErrPaymentDeclined, got %v", err)
	}
	reservation := store.mustReservation(t, "res-1")
	if reservation.Status != ReservationStatusPending || reservation.Deleted {
		t.Fatalf("expected reservation kept pending for resubmission, got %+v", reservation)
	}
	failed := store.transactions[store.transactionOrder[0]]
	if failed.Status != TransactionStatusFailed || failed.GatewayMessage != "Do Not Honor" {
		t.Fatalf("expected failed transaction, got %+v", failed)
	}
}

func TestCaptureTransactionRejectsSettledStates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		status  ReservationStatus
		wantErr error
	}{
		{name: "confirmed", status: ReservationStatusConfirmed, wantErr: ErrReservationConfirmed},
		{name: "cancelled", status: ReservationStatusCancelled, wantErr: ErrReservationAlreadyCancelled},
		{name: "expired", status: ReservationStatusExpired, wantErr: ErrReservationExpired},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			store := newStubStore()
			store.addVehicle(t, "veh-1", true)
			store.addReservation(t, "res-1", "user-1", "veh-1", testNowUnixUTC+3600, testNowUnixUTC+7200, test.status)
			service := mustNewService(t, store, &stubGateway{result: SaleResult{Success: true}})
			actor := mustActor(t, "user-1", RoleCustomer)

			_, err := service.CaptureTransaction(context.Background(), actor, "res-1", mustAmount(t, 5000), "card", "nonce-1")
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}

func TestCaptureTransactionForeignOwnerHidden(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.addVehicle(t, "veh-1", true)
	store.addReservation(t, "res-1", "owner", "veh-1", testNowUnixUTC+3600, testNowUnixUTC+7200, ReservationStatusPending)
	service := mustNewService(t, store, &stubGateway{result: SaleResult{Success: true}})
	intruder := mustActor(t, "someone-else", RoleCustomer)

	_, err := service.CaptureTransaction(context.Background(), intruder, "res-1", mustAmount(t, 5000), "card", "nonce-1")
	if !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestListTransactionsScopesToOwner(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.addVehicle(t, "veh-1", true)
	store.addReservation(t, "res-mine", "user-1", "veh-1", testNowUnixUTC+3600, testNowUnixUTC+7200, ReservationStatusConfirmed)
	store.addReservation(t, "res-other", "user-2", "veh-1", testNowUnixUTC+7200, testNowUnixUTC+10800, ReservationStatusConfirmed)
	mustCreateTransaction(t, store, "txn-mine", "res-mine", TransactionStatusCompleted)
	mustCreateTransaction(t, store, "txn-other", "res-other", TransactionStatusCompleted)
	service := mustNewService(t, store, &stubGateway{})

	customer := mustActor(t, "user-1", RoleCustomer)
	mine, err := service.ListTransactions(context.Background(), customer, TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].TransactionID != "txn-mine" {
		t.Fatalf("expected only own transactions, got %+v", mine)
	}

	if _, err := service.ListTransactions(context.Background(), customer, TransactionFilter{UserID: "user-2"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestListInvoicesPairsReservationsWithPayments(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.addVehicle(t, "veh-1", true)
	store.addReservation(t, "res-1", "user-1", "veh-1", testNowUnixUTC+3600, testNowUnixUTC+7200, ReservationStatusConfirmed)
	store.addReservation(t, "res-pending", "user-1", "veh-1", testNowUnixUTC+7200, testNowUnixUTC+10800, ReservationStatusPending)
	mustCreateTransaction(t, store, "txn-1", "res-1", TransactionStatusCompleted)
	mustCreateTransaction(t, store, "txn-failed", "res-1", TransactionStatusFailed)
	service := mustNewService(t, store, &stubGateway{})
	actor := mustActor(t, "user-1", RoleCustomer)

	invoices, err := service.ListInvoices(context.Background(), actor, "")
	if err != nil {
		t.Fatalf("invoices: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("expected one invoice for the confirmed reservation, got %d", len(invoices))
	}
	if len(invoices[0].Transactions) != 1 || invoices[0].Transactions[0].TransactionID != "txn-1" {
		t.Fatalf("expected only the completed transaction, got %+v", invoices[0].Transactions)
	}
}

func TestListInvoicesForeignUserForbidden(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	service := mustNewService(t, store, &stubGateway{})
	customer := mustActor(t, "user-1", RoleCustomer)

	if _, err := service.ListInvoices(context.Background(), customer, "user-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSweepExpiresFinishedReservations(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.addVehicle(t, "veh-done", false)
	store.addVehicle(t, "veh-busy", true)
	store.addReservation(t, "res-done", "user-1", "veh-done", testNowUnixUTC-7200, testNowUnixUTC-3600, ReservationStatusConfirmed)
	store.addReservation(t, "res-busy", "user-2", "veh-busy", testNowUnixUTC-3600, testNowUnixUTC+3600, ReservationStatusConfirmed)
	service := mustNewService(t, store, &stubGateway{})

	result, err := service.SweepVehicleAvailability(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.ExpiredReservations != 1 {
		t.Fatalf("expected 1 expired reservation, got %d", result.ExpiredReservations)
	}
	if result.VehiclesInWindow != 1 {
		t.Fatalf("expected 1 in-window vehicle, got %d", result.VehiclesInWindow)
	}
	if store.mustReservation(t, "res-done").Status != ReservationStatusExpired {
		t.Fatalf("expected finished reservation expired")
	}
	if !store.vehicles["veh-done"].Available {
		t.Fatalf("expected freed vehicle available")
	}
	if store.vehicles["veh-busy"].Available {
		t.Fatalf("expected in-window vehicle unavailable")
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.addVehicle(t, "veh-done", false)
	store.addReservation(t, "res-done", "user-1", "veh-done", testNowUnixUTC-7200, testNowUnixUTC-3600, ReservationStatusConfirmed)
	service := mustNewService(t, store, &stubGateway{})

	if _, err := service.SweepVehicleAvailability(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	result, err := service.SweepVehicleAvailability(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if result.ExpiredReservations != 0 || result.VehiclesInWindow != 0 {
		t.Fatalf("expected second sweep to be a no-op, got %+v", result)
	}
}

func TestSweepExpiresReservationsOnRetiredVehicles(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.addVehicle(t, "veh-gone", false)
	store.addReservation(t, "res-done", "user-1", "veh-gone", testNowUnixUTC-7200, testNowUnixUTC-3600, ReservationStatusConfirmed)
	vehicle := store.vehicles["veh-gone"]
	vehicle.Deleted = true
	store.vehicles["veh-gone"] = vehicle
	service := mustNewService(t, store, &stubGateway{})

	result, err := service.SweepVehicleAvailability(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.ExpiredReservations != 1 {
		t.Fatalf("expected 1 expired reservation, got %d", result.ExpiredReservations)
	}
	if store.mustReservation(t, "res-done").Status != ReservationStatusExpired {
		t.Fatalf("expected reservation expired despite the retired vehicle")
	}

	rerun, err := service.SweepVehicleAvailability(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if rerun.ExpiredReservations != 0 {
		t.Fatalf("expected nothing left to expire, got %d", rerun.ExpiredReservations)
	}
}

func mustCreateTransaction(t *testing.T, store *stubStore, transactionID string, reservationID string, status TransactionStatus) {
	t.Helper()
	err := store.CreateTransaction(context.Background(), Transaction{
		TransactionID:  transactionID,
		ReservationID:  reservationID,
		AmountCents:    mustAmount(t, 5000),
		Method:         "card",
		Status:         status,
		CreatedUnixUTC: testNowUnixUTC,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
}
