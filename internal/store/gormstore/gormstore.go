package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintUsersEmail  = "uniq_users_email"
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19
	errorOperationStore   = "store"
	errorSubjectUser      = "user"
	errorSubjectVehicle   = "vehicle"
	errorSubjectBooking   = "reservation"
	errorSubjectPayment   = "transaction"
	errorSubjectReport    = "report"
	errorCodeCreate       = "create"
	errorCodeDuplicate    = "duplicate"
	errorCodeGet          = "get"
	errorCodeInvalid      = "invalid"
	errorCodeList         = "list"
	errorCodeUpdate       = "update"
	errorCodeCount        = "count"
	errorCodeFinalize     = "finalize"
	errorCodeAggregate    = "aggregate"
)

// Store implements rental.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema for sqlite deployments.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Vehicle{}, &Reservation{}, &Transaction{})
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore rental.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) CreateUser(ctx context.Context, user rental.User) error {
	model := User{
		UserID:       user.UserID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: user.PasswordHash,
		Role:         user.Role.String(),
		CreatedAt:    time.Unix(user.CreatedUnixUTC, 0).UTC(),
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err, constraintUsersEmail) {
		return wrapStoreError(errorSubjectUser, errorCodeDuplicate, rental.ErrUserExists)
	}
	if err != nil {
		return wrapStoreError(errorSubjectUser, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetUser(ctx context.Context, userID string) (rental.User, error) {
	var model User
	err := store.db.WithContext(ctx).Where("user_id = ?", userID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, rental.ErrUserNotFound)
		}
		return rental.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, err)
	}
	return mapUser(model)
}

func (store *Store) GetUserByEmail(ctx context.Context, email string) (rental.User, error) {
	var model User
	err := store.db.WithContext(ctx).Where("email = ?", email).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, rental.ErrUserNotFound)
		}
		return rental.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, err)
	}
	return mapUser(model)
}

func (store *Store) CreateVehicle(ctx context.Context, vehicle rental.Vehicle) error {
	model := vehicleModel(vehicle)
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetVehicle(ctx context.Context, vehicleID string) (rental.Vehicle, error) {
	return store.getVehicle(ctx, vehicleID, false)
}

func (store *Store) GetVehicleForUpdate(ctx context.Context, vehicleID string) (rental.Vehicle, error) {
	return store.getVehicle(ctx, vehicleID, true)
}

func (store *Store) getVehicle(ctx context.Context, vehicleID string, forUpdate bool) (rental.Vehicle, error) {
	query := store.db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model Vehicle
	err := query.Where("vehicle_id = ?", vehicleID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeGet, rental.ErrVehicleNotFound)
		}
		return rental.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeGet, err)
	}
	return mapVehicle(model)
}

func (store *Store) UpdateVehicle(ctx context.Context, vehicle rental.Vehicle) error {
	model := vehicleModel(vehicle)
	result := store.db.WithContext(ctx).Model(&Vehicle{}).Where("vehicle_id = ?", vehicle.VehicleID).Updates(map[string]interface{}{
		"name":             model.Name,
		"make":             model.Make,
		"model":            model.Model,
		"year":             model.Year,
		"color":            model.Color,
		"daily_rate_cents": model.DailyRateCents,
		"is_available":     model.IsAvailable,
		"is_deleted":       model.IsDeleted,
		"updated_at":       model.UpdatedAt,
	})
	if result.Error != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectVehicle, errorCodeUpdate, rental.ErrVehicleNotFound)
	}
	return nil
}

func (store *Store) SetVehicleAvailability(ctx context.Context, vehicleID string, available bool) error {
	result := store.db.WithContext(ctx).Model(&Vehicle{}).
		Where("vehicle_id = ? AND is_deleted = ?", vehicleID, false).
		Update("is_available", available)
	if result.Error != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeUpdate, result.Error)
	}
	// Zero rows means the vehicle was soft deleted; its availability flag
	// no longer matters, so callers recomputing it are not failed.
	return nil
}

func (store *Store) ListVehicles(ctx context.Context, filter rental.VehicleFilter) ([]rental.Vehicle, error) {
	query := store.db.WithContext(ctx).Model(&Vehicle{})
	if !filter.IncludeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if filter.AvailableOnly {
		query = query.Where("is_available = ?", true)
	}
	var rows []Vehicle
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectVehicle, errorCodeList, err)
	}
	vehicles := make([]rental.Vehicle, 0, len(rows))
	for _, row := range rows {
		vehicle, err := mapVehicle(row)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, nil
}

func (store *Store) CreateReservation(ctx context.Context, reservation rental.Reservation) error {
	model := Reservation{
		ReservationID:  reservation.ReservationID,
		UserID:         reservation.UserID,
		VehicleID:      reservation.VehicleID,
		StartAt:        time.Unix(reservation.Period.StartUnixUTC(), 0).UTC(),
		EndAt:          time.Unix(reservation.Period.EndUnixUTC(), 0).UTC(),
		Status:         reservation.Status.String(),
		TotalCostCents: reservation.TotalCostCents.Int64(),
		IsDeleted:      reservation.Deleted,
		CreatedAt:      time.Unix(reservation.CreatedUnixUTC, 0).UTC(),
		UpdatedAt:      time.Unix(reservation.UpdatedUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetReservation(ctx context.Context, reservationID string) (rental.Reservation, error) {
	var model Reservation
	err := store.db.WithContext(ctx).Where("reservation_id = ?", reservationID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.Reservation{}, wrapStoreError(errorSubjectBooking, errorCodeGet, rental.ErrReservationNotFound)
		}
		return rental.Reservation{}, wrapStoreError(errorSubjectBooking, errorCodeGet, err)
	}
	return mapReservation(model)
}

func (store *Store) CountOverlapping(ctx context.Context, vehicleID string, period rental.TimeRange) (int64, error) {
	startAt := time.Unix(period.StartUnixUTC(), 0).UTC()
	endAt := time.Unix(period.EndUnixUTC(), 0).UTC()
	var count int64
	holdStatuses := []string{rental.ReservationStatusPending.String(), rental.ReservationStatusConfirmed.String()}
	err := store.db.WithContext(ctx).Model(&Reservation{}).
		Where("vehicle_id = ? AND status IN ? AND is_deleted = ?", vehicleID, holdStatuses, false).
		Where("start_at < ? AND end_at > ?", endAt, startAt).
		Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectBooking, errorCodeCount, err)
	}
	return count, nil
}

func (store *Store) UpdateReservationStatus(ctx context.Context, reservationID string, from rental.ReservationStatus, to rental.ReservationStatus) error {
	result := store.db.WithContext(ctx).Model(&Reservation{}).
		Where("reservation_id = ? AND status = ? AND is_deleted = ?", reservationID, from.String(), false).
		Updates(map[string]interface{}{
			"status":     to.String(),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdate, rental.ErrInvalidReservationStatus)
	}
	return nil
}

func (store *Store) MarkReservationDeleted(ctx context.Context, reservationID string) error {
	result := store.db.WithContext(ctx).Model(&Reservation{}).
		Where("reservation_id = ?", reservationID).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdate, rental.ErrReservationNotFound)
	}
	return nil
}

func (store *Store) ListReservations(ctx context.Context, filter rental.ReservationFilter) ([]rental.Reservation, error) {
	query := store.db.WithContext(ctx).Model(&Reservation{}).Where("is_deleted = ?", false)
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.VehicleID != "" {
		query = query.Where("vehicle_id = ?", filter.VehicleID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.StartFromUnixUTC != 0 {
		query = query.Where("start_at >= ?", time.Unix(filter.StartFromUnixUTC, 0).UTC())
	}
	if filter.StartUntilUnixUTC != 0 {
		query = query.Where("start_at <= ?", time.Unix(filter.StartUntilUnixUTC, 0).UTC())
	}
	if filter.EndsOnOrBeforeUnixUTC != 0 {
		query = query.Where("end_at <= ?", time.Unix(filter.EndsOnOrBeforeUnixUTC, 0).UTC())
	}
	if filter.InWindowAtUnixUTC != 0 {
		at := time.Unix(filter.InWindowAtUnixUTC, 0).UTC()
		query = query.Where("start_at <= ? AND end_at > ?", at, at)
	}
	var rows []Reservation
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	reservations := make([]rental.Reservation, 0, len(rows))
	for _, row := range rows {
		reservation, err := mapReservation(row)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, nil
}

func (store *Store) HasConfirmedCovering(ctx context.Context, vehicleID string, atUnixUTC int64) (bool, error) {
	at := time.Unix(atUnixUTC, 0).UTC()
	var count int64
	err := store.db.WithContext(ctx).Model(&Reservation{}).
		Where("vehicle_id = ? AND status = ? AND is_deleted = ?", vehicleID, rental.ReservationStatusConfirmed.String(), false).
		Where("start_at <= ? AND end_at > ?", at, at).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectBooking, errorCodeCount, err)
	}
	return count > 0, nil
}

func (store *Store) CreateTransaction(ctx context.Context, transaction rental.Transaction) error {
	model := Transaction{
		TransactionID:        transaction.TransactionID,
		ReservationID:        transaction.ReservationID,
		AmountCents:          transaction.AmountCents.Int64(),
		Method:               transaction.Method,
		Status:               transaction.Status.String(),
		GatewayTransactionID: transaction.GatewayTransactionID,
		GatewayStatus:        transaction.GatewayStatus,
		GatewayMessage:       transaction.GatewayMessage,
		CreatedAt:            time.Unix(transaction.CreatedUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) FinalizeTransaction(ctx context.Context, transactionID string, status rental.TransactionStatus, gatewayTransactionID string, gatewayStatus string, gatewayMessage string) error {
	payload, err := json.Marshal(map[string]string{
		"transaction_id": gatewayTransactionID,
		"status":         gatewayStatus,
		"message":        gatewayMessage,
	})
	if err != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
	}
	result := store.db.WithContext(ctx).Model(&Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, rental.TransactionStatusPending.String()).
		Updates(map[string]interface{}{
			"status":                 status.String(),
			"gateway_transaction_id": gatewayTransactionID,
			"gateway_status":         gatewayStatus,
			"gateway_message":        gatewayMessage,
			"gateway_payload":        datatypes.JSON(payload),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeFinalize, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectPayment, errorCodeFinalize, rental.ErrInvalidTransactionStatus)
	}
	return nil
}

func (store *Store) ListTransactions(ctx context.Context, filter rental.TransactionFilter) ([]rental.Transaction, error) {
	query := store.db.WithContext(ctx).Model(&Transaction{})
	if filter.UserID != "" {
		query = query.
			Joins("JOIN reservations ON reservations.reservation_id = transactions.reservation_id").
			Where("reservations.user_id = ?", filter.UserID)
	}
	if filter.ReservationID != "" {
		query = query.Where("transactions.reservation_id = ?", filter.ReservationID)
	}
	if filter.Status != "" {
		query = query.Where("transactions.status = ?", filter.Status.String())
	}
	var rows []Transaction
	if err := query.Order("transactions.created_at ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectPayment, errorCodeList, err)
	}
	transactions := make([]rental.Transaction, 0, len(rows))
	for _, row := range rows {
		transaction, err := mapTransaction(row)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func (store *Store) SumCompletedTransactions(ctx context.Context, startUnixUTC int64, endUnixUTC int64) (int64, int64, error) {
	start := time.Unix(startUnixUTC, 0).UTC()
	end := time.Unix(endUnixUTC, 0).UTC()
	var aggregate struct {
		Total int64
		Count int64
	}
	err := store.db.WithContext(ctx).Model(&Transaction{}).
		Select("coalesce(sum(amount_cents),0) as total, count(*) as count").
		Where("status = ? AND created_at >= ? AND created_at <= ?", rental.TransactionStatusCompleted.String(), start, end).
		Scan(&aggregate).Error
	if err != nil {
		return 0, 0, wrapStoreError(errorSubjectReport, errorCodeAggregate, err)
	}
	return aggregate.Total, aggregate.Count, nil
}

func (store *Store) MostRequestedVehicle(ctx context.Context, startUnixUTC int64, endUnixUTC int64) (rental.VehicleDemand, error) {
	start := time.Unix(startUnixUTC, 0).UTC()
	end := time.Unix(endUnixUTC, 0).UTC()
	var row struct {
		VehicleID string
		Name      string
		Count     int64
	}
	err := store.db.WithContext(ctx).Model(&Reservation{}).
		Select("reservations.vehicle_id as vehicle_id, vehicles.name as name, count(*) as count").
		Joins("JOIN vehicles ON vehicles.vehicle_id = reservations.vehicle_id").
		Where("reservations.status = ? AND reservations.is_deleted = ?", rental.ReservationStatusConfirmed.String(), false).
		Where("reservations.start_at >= ? AND reservations.end_at <= ?", start, end).
		Group("reservations.vehicle_id, vehicles.name").
		Order("count DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return rental.VehicleDemand{}, wrapStoreError(errorSubjectReport, errorCodeAggregate, err)
	}
	return rental.VehicleDemand{VehicleID: row.VehicleID, Name: row.Name, Count: row.Count}, nil
}

func mapUser(row User) (rental.User, error) {
	role, err := rental.ParseRole(row.Role)
	if err != nil {
		return rental.User{}, wrapStoreError(errorSubjectUser, errorCodeInvalid, err)
	}
	return rental.User{
		UserID:         row.UserID,
		Email:          row.Email,
		DisplayName:    row.DisplayName,
		PasswordHash:   row.PasswordHash,
		Role:           role,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func vehicleModel(vehicle rental.Vehicle) Vehicle {
	return Vehicle{
		VehicleID:      vehicle.VehicleID,
		Name:           vehicle.Name,
		Make:           vehicle.Make,
		Model:          vehicle.Model,
		Year:           vehicle.Year,
		Color:          vehicle.Color,
		DailyRateCents: vehicle.DailyRateCents.Int64(),
		IsAvailable:    vehicle.Available,
		IsDeleted:      vehicle.Deleted,
		CreatedAt:      time.Unix(vehicle.CreatedUnixUTC, 0).UTC(),
		UpdatedAt:      time.Unix(vehicle.UpdatedUnixUTC, 0).UTC(),
	}
}

func mapVehicle(row Vehicle) (rental.Vehicle, error) {
	dailyRate, err := rental.NewAmountCents(row.DailyRateCents)
	if err != nil {
		return rental.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeInvalid, err)
	}
	return rental.Vehicle{
		VehicleID:      row.VehicleID,
		Name:           row.Name,
		Make:           row.Make,
		Model:          row.Model,
		Year:           row.Year,
		Color:          row.Color,
		DailyRateCents: dailyRate,
		Available:      row.IsAvailable,
		Deleted:        row.IsDeleted,
		CreatedUnixUTC: row.CreatedAt.Unix(),
		UpdatedUnixUTC: row.UpdatedAt.Unix(),
	}, nil
}

func mapReservation(row Reservation) (rental.Reservation, error) {
	period, err := rental.NewTimeRange(row.StartAt.Unix(), row.EndAt.Unix())
	if err != nil {
		return rental.Reservation{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	status, err := rental.ParseReservationStatus(row.Status)
	if err != nil {
		return rental.Reservation{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	totalCost, err := rental.NewAmountCents(row.TotalCostCents)
	if err != nil {
		return rental.Reservation{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	return rental.Reservation{
		ReservationID:  row.ReservationID,
		UserID:         row.UserID,
		VehicleID:      row.VehicleID,
		Period:         period,
		Status:         status,
		TotalCostCents: totalCost,
		Deleted:        row.IsDeleted,
		CreatedUnixUTC: row.CreatedAt.Unix(),
		UpdatedUnixUTC: row.UpdatedAt.Unix(),
	}, nil
}

func mapTransaction(row Transaction) (rental.Transaction, error) {
	status, err := rental.ParseTransactionStatus(row.Status)
	if err != nil {
		return rental.Transaction{}, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
	}
	amount, err := rental.NewAmountCents(row.AmountCents)
	if err != nil {
		return rental.Transaction{}, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
	}
	return rental.Transaction{
		TransactionID:        row.TransactionID,
		ReservationID:        row.ReservationID,
		AmountCents:          amount,
		Method:               row.Method,
		Status:               status,
		GatewayTransactionID: row.GatewayTransactionID,
		GatewayStatus:        row.GatewayStatus,
		GatewayMessage:       row.GatewayMessage,
		CreatedUnixUTC:       row.CreatedAt.Unix(),
	}, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return rental.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintName
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
