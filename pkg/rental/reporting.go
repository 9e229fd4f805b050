package rental

import (
	"context"
	"fmt"
)

const demandUnknownVehicleName = "N/A"

// PeriodIncomeReport aggregates completed-transaction income and
// confirmed-reservation demand over [start, end]. Pure read, elevated
// roles only. Empty ranges report zero income and an "N/A" vehicle.
func (service *Service) PeriodIncomeReport(ctx context.Context, actor Actor, startUnixUTC int64, endUnixUTC int64) (IncomeReport, error) {
	if !actor.Role.Elevated() {
		return IncomeReport{}, ErrForbidden
	}
	if startUnixUTC <= 0 || endUnixUTC <= 0 || startUnixUTC > endUnixUTC {
		return IncomeReport{}, fmt.Errorf("%w: report range is empty", ErrInvalidRange)
	}
	totalCents, count, err := service.store.SumCompletedTransactions(ctx, startUnixUTC, endUnixUTC)
	if err != nil {
		return IncomeReport{}, err
	}
	demand, err := service.store.MostRequestedVehicle(ctx, startUnixUTC, endUnixUTC)
	if err != nil {
		return IncomeReport{}, err
	}
	if demand.Count == 0 {
		demand = VehicleDemand{Name: demandUnknownVehicleName}
	}
	return IncomeReport{
		StartUnixUTC:         startUnixUTC,
		EndUnixUTC:           endUnixUTC,
		TotalIncomeCents:     totalCents,
		TotalTransactions:    count,
		MostRequestedVehicle: demand,
	}, nil
}
