package rental

import "context"

// ReservationFilter narrows reservation listings. Zero values mean
// "not set".
type ReservationFilter struct {
	UserID    string
	VehicleID string
	Status    ReservationStatus
	// StartFromUnixUTC keeps reservations starting at or after the instant.
	StartFromUnixUTC int64
	// StartUntilUnixUTC keeps reservations starting at or before the instant.
	StartUntilUnixUTC int64
	// EndsOnOrBeforeUnixUTC keeps reservations whose end has passed the instant.
	EndsOnOrBeforeUnixUTC int64
	// InWindowAtUnixUTC keeps reservations covering the instant.
	InWindowAtUnixUTC int64
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	ReservationID string
	// UserID scopes to transactions whose reservation belongs to the user.
	UserID string
	Status TransactionStatus
}

// VehicleFilter narrows catalog listings.
type VehicleFilter struct {
	AvailableOnly  bool
	IncludeDeleted bool
}

// Store is the persistence contract consumed by the rental services.
// Implementations must provide ACID transactions through WithTx; every
// write issued on the txStore passed to fn commits or rolls back as one
// unit.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, userID string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	CreateVehicle(ctx context.Context, vehicle Vehicle) error
	GetVehicle(ctx context.Context, vehicleID string) (Vehicle, error)
	// GetVehicleForUpdate reads the vehicle under a row lock so that the
	// conflict scan and the provisional write serialize against
	// concurrent bookings of the same vehicle.
	GetVehicleForUpdate(ctx context.Context, vehicleID string) (Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicle Vehicle) error
	SetVehicleAvailability(ctx context.Context, vehicleID string, available bool) error
	ListVehicles(ctx context.Context, filter VehicleFilter) ([]Vehicle, error)

	CreateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, reservationID string) (Reservation, error)
	// CountOverlapping counts pending and confirmed, non-deleted reservations
	// on the vehicle whose [start, end) interval overlaps the period. Pending
	// rows act as holds until their payment verdict lands.
	CountOverlapping(ctx context.Context, vehicleID string, period TimeRange) (int64, error)
	// UpdateReservationStatus performs a compare-and-swap transition and
	// fails when the row is no longer in the from status.
	UpdateReservationStatus(ctx context.Context, reservationID string, from ReservationStatus, to ReservationStatus) error
	MarkReservationDeleted(ctx context.Context, reservationID string) error
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	// HasConfirmedCovering reports whether any confirmed reservation on
	// the vehicle covers the instant.
	HasConfirmedCovering(ctx context.Context, vehicleID string, atUnixUTC int64) (bool, error)

	CreateTransaction(ctx context.Context, transaction Transaction) error
	// FinalizeTransaction moves a pending transaction to completed or
	// failed and stores the gateway correlation fields. Finalized rows
	// never change again.
	FinalizeTransaction(ctx context.Context, transactionID string, status TransactionStatus, gatewayTransactionID string, gatewayStatus string, gatewayMessage string) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)

	SumCompletedTransactions(ctx context.Context, startUnixUTC int64, endUnixUTC int64) (totalCents int64, count int64, err error)
	// MostRequestedVehicle aggregates confirmed reservations inside the
	// range; a zero-count result means no data matched.
	MostRequestedVehicle(ctx context.Context, startUnixUTC int64, endUnixUTC int64) (VehicleDemand, error)
}
