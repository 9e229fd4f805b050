package rental

import (
	"context"
	"errors"
	"testing"
)

func TestPeriodIncomeReportAggregatesCompletedTransactions(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.addVehicle(t, "veh-popular", true)
	store.addVehicle(t, "veh-other", true)
	store.addReservation(t, "res-1", "user-1", "veh-popular", testNowUnixUTC+3600, testNowUnixUTC+7200, ReservationStatusConfirmed)
	store.addReservation(t, "res-2", "user-2", "veh-popular", testNowUnixUTC+10800, testNowUnixUTC+14400, ReservationStatusConfirmed)
	store.addReservation(t, "res-3", "user-3", "veh-other", testNowUnixUTC+3600, testNowUnixUTC+7200, ReservationStatusConfirmed)
	mustCreateTransaction(t, store, "txn-1", "res-1", TransactionStatusCompleted)
	mustCreateTransaction(t, store, "txn-2", "res-2", TransactionStatusCompleted)
	mustCreateTransaction(t, store, "txn-failed", "res-3", TransactionStatusFailed)
	service := mustNewService(t, store, &stubGateway{})
	manager := mustActor(t, "mgr-1", RoleManager)

	report, err := service.PeriodIncomeReport(context.Background(), manager, testNowUnixUTC-3600, testNowUnixUTC+86400)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.TotalIncomeCents != 10000 {
		t.Fatalf("expected 10000 cents income, got %d", report.TotalIncomeCents)
	}
	if report.TotalTransactions != 2 {
		t.Fatalf("expected 2 completed transactions, got %d", report.TotalTransactions)
	}
	if report.MostRequestedVehicle.VehicleID != "veh-popular" || report.MostRequestedVehicle.Count != 2 {
		t.Fatalf("unexpected demand aggregate: %+v", report.MostRequestedVehicle)
	}
}

func TestPeriodIncomeReportEmptyRangeDefaults(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	service := mustNewService(t, store, &stubGateway{})
	manager := mustActor(t, "mgr-1", RoleManager)

	report, err := service.PeriodIncomeReport(context.Background(), manager, testNowUnixUTC-7200, testNowUnixUTC-3600)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.TotalIncomeCents != 0 || report.TotalTransactions != 0 {
		t.Fatalf("expected zero income report, got %+v", report)
	}
	if report.MostRequestedVehicle.Name != "N/A" || report.MostRequestedVehicle.Count != 0 {
		t.Fatalf("expected N/A demand placeholder, got %+v", report.MostRequestedVehicle)
	}
}

func TestPeriodIncomeReportRequiresElevatedRole(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	service := mustNewService(t, store, &stubGateway{})

	for _, role := range []Role{RoleCustomer, RoleEmployee} {
		actor := mustActor(t, "user-1", role)
		if _, err := service.PeriodIncomeReport(context.Background(), actor, testNowUnixUTC-3600, testNowUnixUTC+3600); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden for %s, got %v", role, err)
		}
	}
}

func TestPeriodIncomeReportRejectsEmptyRange(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	service := mustNewService(t, store, &stubGateway{})
	manager := mustActor(t, "mgr-1", RoleManager)

	if _, err := service.PeriodIncomeReport(context.Background(), manager, testNowUnixUTC+3600, testNowUnixUTC); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := service.PeriodIncomeReport(context.Background(), manager, 0, testNowUnixUTC); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for zero start, got %v", err)
	}
}
