package rental

import (
	"context"
	"fmt"
	"strings"
)

// VehicleInput carries the caller-supplied catalog fields.
type VehicleInput struct {
	Name           string
	Make           string
	Model          string
	Year           int
	Color          string
	DailyRateCents AmountCents
}

// VehicleUpdate carries a partial catalog update; nil fields are untouched.
type VehicleUpdate struct {
	Name           *string
	Make           *string
	Model          *string
	Year           *int
	Color          *string
	DailyRateCents *AmountCents
	Available      *bool
}

func (input VehicleInput) validate() error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidVehicle)
	}
	if input.Year <= 0 {
		return fmt.Errorf("%w: year is required", ErrInvalidVehicle)
	}
	if input.DailyRateCents <= 0 {
		return fmt.Errorf("%w: daily rate must be positive", ErrInvalidVehicle)
	}
	return nil
}

// CreateVehicle adds a catalog entry. Elevated roles only.
func (service *Service) CreateVehicle(ctx context.Context, actor Actor, input VehicleInput) (Vehicle, error) {
	vehicle, operationError := service.createVehicle(ctx, actor, input)
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateVehicle,
		UserID:    actor.UserID,
		VehicleID: vehicle.VehicleID,
		Error:     operationError,
	})
	return vehicle, operationError
}

func (service *Service) createVehicle(ctx context.Context, actor Actor, input VehicleInput) (Vehicle, error) {
	if !actor.Role.Elevated() {
		return Vehicle{}, ErrForbidden
	}
	if err := input.validate(); err != nil {
		return Vehicle{}, err
	}
	nowUnixUTC := service.nowFn()
	vehicle := Vehicle{
		VehicleID:      service.idFn(),
		Name:           strings.TrimSpace(input.Name),
		Make:           strings.TrimSpace(input.Make),
		Model:          strings.TrimSpace(input.Model),
		Year:           input.Year,
		Color:          strings.TrimSpace(input.Color),
		DailyRateCents: input.DailyRateCents,
		Available:      true,
		CreatedUnixUTC: nowUnixUTC,
		UpdatedUnixUTC: nowUnixUTC,
	}
	if err := service.store.CreateVehicle(ctx, vehicle); err != nil {
		return Vehicle{}, err
	}
	return vehicle, nil
}

// UpdateVehicle applies a partial update to a catalog entry. Elevated
// roles only; soft-deleted entries stay hidden.
func (service *Service) UpdateVehicle(ctx context.Context, actor Actor, vehicleID string, update VehicleUpdate) (Vehicle, error) {
	vehicle, operationError := service.updateVehicle(ctx, actor, vehicleID, update)
	service.logOperation(ctx, OperationLog{
		Operation: operationUpdateVehicle,
		UserID:    actor.UserID,
		VehicleID: vehicleID,
		Error:     operationError,
	})
	return vehicle, operationError
}

func (service *Service) updateVehicle(ctx context.Context, actor Actor, vehicleID string, update VehicleUpdate) (Vehicle, error) {
	if !actor.Role.Elevated() {
		return Vehicle{}, ErrForbidden
	}
	var updated Vehicle
	err := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		vehicle, err := transactionStore.GetVehicleForUpdate(ctx, vehicleID)
		if err != nil {
			return err
		}
		if vehicle.Deleted {
			return ErrVehicleNotFound
		}
		if update.Name != nil {
			vehicle.Name = strings.TrimSpace(*update.Name)
		}
		if update.Make != nil {
			vehicle.Make = strings.TrimSpace(*update.Make)
		}
		if update.Model != nil {
			vehicle.Model = strings.TrimSpace(*update.Model)
		}
		if update.Year != nil {
			vehicle.Year = *update.Year
		}
		if update.Color != nil {
			vehicle.Color = strings.TrimSpace(*update.Color)
		}
		if update.DailyRateCents != nil {
			vehicle.DailyRateCents = *update.DailyRateCents
		}
		if update.Available != nil {
			vehicle.Available = *update.Available
		}
		if vehicle.Name == "" || vehicle.Year <= 0 || vehicle.DailyRateCents <= 0 {
			return fmt.Errorf("%w: update leaves vehicle incomplete", ErrInvalidVehicle)
		}
		vehicle.UpdatedUnixUTC = service.nowFn()
		if err := transactionStore.UpdateVehicle(ctx, vehicle); err != nil {
			return err
		}
		updated = vehicle
		return nil
	})
	if err != nil {
		return Vehicle{}, err
	}
	return updated, nil
}

// DeleteVehicle soft-deletes a catalog entry. Elevated roles only.
func (service *Service) DeleteVehicle(ctx context.Context, actor Actor, vehicleID string) error {
	operationError := service.deleteVehicle(ctx, actor, vehicleID)
	service.logOperation(ctx, OperationLog{
		Operation: operationDeleteVehicle,
		UserID:    actor.UserID,
		VehicleID: vehicleID,
		Error:     operationError,
	})
	return operationError
}

func (service *Service) deleteVehicle(ctx context.Context, actor Actor, vehicleID string) error {
	if !actor.Role.Elevated() {
		return ErrForbidden
	}
	return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		vehicle, err := transactionStore.GetVehicleForUpdate(ctx, vehicleID)
		if err != nil {
			return err
		}
		if vehicle.Deleted {
			return ErrVehicleNotFound
		}
		vehicle.Deleted = true
		vehicle.Available = false
		vehicle.UpdatedUnixUTC = service.nowFn()
		return transactionStore.UpdateVehicle(ctx, vehicle)
	})
}

// GetVehicle returns one catalog entry. Soft-deleted entries are only
// visible to elevated roles.
func (service *Service) GetVehicle(ctx context.Context, actor Actor, vehicleID string) (Vehicle, error) {
	vehicle, err := service.store.GetVehicle(ctx, vehicleID)
	if err != nil {
		return Vehicle{}, err
	}
	if vehicle.Deleted && !actor.Role.Elevated() {
		return Vehicle{}, ErrVehicleNotFound
	}
	return vehicle, nil
}

// ListVehicles returns catalog entries. Including deleted rows requires
// an elevated role.
func (service *Service) ListVehicles(ctx context.Context, actor Actor, filter VehicleFilter) ([]Vehicle, error) {
	if filter.IncludeDeleted && !actor.Role.Elevated() {
		return nil, ErrForbidden
	}
	return service.store.ListVehicles(ctx, filter)
}
