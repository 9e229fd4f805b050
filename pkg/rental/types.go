package rental

import (
	"fmt"
	"strings"
)

// AmountCents is an integer currency amount in cents. Money never
// travels as a float; the payment boundary formats it as a decimal
// string with two fraction digits.
type AmountCents int64

// NewAmountCents validates an amount and ensures it is strictly positive.
func NewAmountCents(raw int64) (AmountCents, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmountCents)
	}
	return AmountCents(raw), nil
}

// Int64 returns the raw cents value.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// DecimalString renders the amount as a two-fraction-digit decimal,
// the format the payment gateway contract requires.
func (amount AmountCents) DecimalString() string {
	return fmt.Sprintf("%d.%02d", int64(amount)/100, int64(amount)%100)
}

// TimeRange is a half-open interval [start, end) in unix seconds UTC.
type TimeRange struct {
	startUnixUTC int64
	endUnixUTC   int64
}

// NewTimeRange validates that start strictly precedes end.
func NewTimeRange(startUnixUTC int64, endUnixUTC int64) (TimeRange, error) {
	if startUnixUTC <= 0 || endUnixUTC <= 0 {
		return TimeRange{}, fmt.Errorf("%w: timestamps must be positive", ErrInvalidRange)
	}
	if startUnixUTC >= endUnixUTC {
		return TimeRange{}, fmt.Errorf("%w: start must precede end", ErrInvalidRange)
	}
	return TimeRange{startUnixUTC: startUnixUTC, endUnixUTC: endUnixUTC}, nil
}

// StartUnixUTC returns the inclusive start instant.
func (timeRange TimeRange) StartUnixUTC() int64 {
	return timeRange.startUnixUTC
}

// EndUnixUTC returns the exclusive end instant.
func (timeRange TimeRange) EndUnixUTC() int64 {
	return timeRange.endUnixUTC
}

// Overlaps reports whether two half-open intervals share an instant.
func (timeRange TimeRange) Overlaps(other TimeRange) bool {
	return timeRange.startUnixUTC < other.endUnixUTC && other.startUnixUTC < timeRange.endUnixUTC
}

// Contains reports whether the instant falls inside [start, end).
func (timeRange TimeRange) Contains(atUnixUTC int64) bool {
	return timeRange.startUnixUTC <= atUnixUTC && atUnixUTC < timeRange.endUnixUTC
}

// ReservationStatus defines the reservation lifecycle.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

// ParseReservationStatus validates a stored status value.
func ParseReservationStatus(raw string) (ReservationStatus, error) {
	switch ReservationStatus(raw) {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusCancelled, ReservationStatusExpired:
		return ReservationStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReservationStatus, raw)
}

// String returns the stored representation.
func (status ReservationStatus) String() string {
	return string(status)
}

// Terminal reports whether no further transition is allowed.
func (status ReservationStatus) Terminal() bool {
	return status == ReservationStatusCancelled || status == ReservationStatusExpired
}

// TransactionStatus defines the payment attempt lifecycle. Finalized
// transactions are append-only: no transition leaves completed or failed.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// ParseTransactionStatus validates a stored status value.
func ParseTransactionStatus(raw string) (TransactionStatus, error) {
	switch TransactionStatus(raw) {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
		return TransactionStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTransactionStatus, raw)
}

// String returns the stored representation.
func (status TransactionStatus) String() string {
	return string(status)
}

// Role enumerates account roles.
type Role string

const (
	RoleCustomer      Role = "customer"
	RoleEmployee      Role = "employee"
	RoleManager       Role = "manager"
	RoleAdministrator Role = "administrator"
)

// ParseRole validates a stored role value.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleCustomer, RoleEmployee, RoleManager, RoleAdministrator:
		return Role(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

// String returns the stored representation.
func (role Role) String() string {
	return string(role)
}

// Elevated reports whether the role may mutate the catalog and read reports.
func (role Role) Elevated() bool {
	return role == RoleManager || role == RoleAdministrator
}

// CanViewOthers reports whether the role may read other users' bookings.
func (role Role) CanViewOthers() bool {
	return role.Elevated() || role == RoleEmployee
}

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

// NewActor validates the caller identity.
func NewActor(userID string, role Role) (Actor, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return Actor{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	if _, err := ParseRole(role.String()); err != nil {
		return Actor{}, err
	}
	return Actor{UserID: trimmed, Role: role}, nil
}

// User is a stored account record.
type User struct {
	UserID         string
	Email          string
	DisplayName    string
	PasswordHash   string
	Role           Role
	CreatedUnixUTC int64
}

// Vehicle is a catalog record. Availability is derived state kept in
// sync by the ledger; Deleted hides the row without removing it.
type Vehicle struct {
	VehicleID      string
	Name           string
	Make           string
	Model          string
	Year           int
	Color          string
	DailyRateCents AmountCents
	Available      bool
	Deleted        bool
	CreatedUnixUTC int64
	UpdatedUnixUTC int64
}

// Reservation is a stored booking record.
type Reservation struct {
	ReservationID  string
	UserID         string
	VehicleID      string
	Period         TimeRange
	Status         ReservationStatus
	TotalCostCents AmountCents
	Deleted        bool
	CreatedUnixUTC int64
	UpdatedUnixUTC int64
}

// Transaction records one payment attempt against a reservation.
type Transaction struct {
	TransactionID        string
	ReservationID        string
	AmountCents          AmountCents
	Method               string
	Status               TransactionStatus
	GatewayTransactionID string
	GatewayStatus        string
	GatewayMessage       string
	CreatedUnixUTC       int64
}

// Invoice pairs a confirmed reservation with its completed transactions.
type Invoice struct {
	Reservation  Reservation
	Transactions []Transaction
}

// VehicleDemand is the most-requested-vehicle aggregate of a report.
type VehicleDemand struct {
	VehicleID string
	Name      string
	Count     int64
}

// IncomeReport aggregates income and demand over a closed date range.
type IncomeReport struct {
	StartUnixUTC         int64
	EndUnixUTC           int64
	TotalIncomeCents     int64
	TotalTransactions    int64
	MostRequestedVehicle VehicleDemand
}

// SweepResult summarizes one availability sweep pass.
type SweepResult struct {
	ExpiredReservations int
	VehiclesInWindow    int
}
