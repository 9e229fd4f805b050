package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User represents the users table.
type User struct {
	UserID       string    `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"not null;index:uniq_users_email,unique"`
	DisplayName  string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (User) TableName() string { return "users" }

func (user *User) BeforeCreate(tx *gorm.DB) error {
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	return nil
}

// Vehicle mirrors the vehicles table.
type Vehicle struct {
	VehicleID      string    `gorm:"type:uuid;primaryKey"`
	Name           string    `gorm:"not null"`
	Make           string    `gorm:""`
	Model          string    `gorm:""`
	Year           int       `gorm:"not null"`
	Color          string    `gorm:""`
	DailyRateCents int64     `gorm:"not null"`
	IsAvailable    bool      `gorm:"not null;default:true"`
	IsDeleted      bool      `gorm:"not null;default:false;index"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (Vehicle) TableName() string { return "vehicles" }

func (vehicle *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if vehicle.VehicleID == "" {
		vehicle.VehicleID = uuid.NewString()
	}
	return nil
}

// Reservation mirrors the reservations table. The composite index backs
// the overlap scan on (vehicle_id, status).
type Reservation struct {
	ReservationID  string    `gorm:"type:uuid;primaryKey"`
	UserID         string    `gorm:"type:uuid;not null;index"`
	VehicleID      string    `gorm:"type:uuid;not null;index:idx_reservations_vehicle_status,priority:1"`
	StartAt        time.Time `gorm:"not null"`
	EndAt          time.Time `gorm:"not null"`
	Status         string    `gorm:"not null;index:idx_reservations_vehicle_status,priority:2"`
	TotalCostCents int64     `gorm:"not null"`
	IsDeleted      bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (Reservation) TableName() string { return "reservations" }

// Transaction mirrors the transactions table. GatewayPayload keeps the
// raw gateway verdict for reconciliation.
type Transaction struct {
	TransactionID        string         `gorm:"type:uuid;primaryKey"`
	ReservationID        string         `gorm:"type:uuid;not null;index"`
	AmountCents          int64          `gorm:"not null"`
	Method               string         `gorm:"not null"`
	Status               string         `gorm:"not null;index"`
	GatewayTransactionID string         `gorm:""`
	GatewayStatus        string         `gorm:""`
	GatewayMessage       string         `gorm:""`
	GatewayPayload       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt            time.Time      `gorm:"not null;index"`
}

func (Transaction) TableName() string { return "transactions" }
