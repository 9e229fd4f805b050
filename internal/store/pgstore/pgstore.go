package pgstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	constraintUsersEmail  = "users_email_key"
	pgUniqueViolationCode = "23505"
	errorOperationStore   = "store"
	errorSubjectUser      = "user"
	errorSubjectVehicle   = "vehicle"
	errorSubjectBooking   = "reservation"
	errorSubjectPayment   = "transaction"
	errorSubjectReport    = "report"
	errorCodeBegin        = "begin"
	errorCodeCommit       = "commit"
	errorCodeCreate       = "create"
	errorCodeDuplicate    = "duplicate"
	errorCodeGet          = "get"
	errorCodeInvalid      = "invalid"
	errorCodeList         = "list"
	errorCodeUpdate       = "update"
	errorCodeCount        = "count"
	errorCodeFinalize     = "finalize"
	errorCodeAggregate    = "aggregate"

	sqlInsertUser = `
		insert into users(user_id, email, display_name, password_hash, role, created_at)
		values($1, $2, $3, $4, $5, to_timestamp($6))
	`

	sqlSelectUserColumns = `
		select
			user_id::text,
			email,
			display_name,
			password_hash,
			role,
			extract(epoch from created_at)::bigint
		from users
	`

	sqlSelectUserByID    = sqlSelectUserColumns + ` where user_id = $1`
	sqlSelectUserByEmail = sqlSelectUserColumns + ` where email = $1`

	sqlInsertVehicle = `
		insert into vehicles(
			vehicle_id, name, make, model, year, color,
			daily_rate_cents, is_available, is_deleted, created_at, updated_at
		)
		values($1, $2, $3, $4, $5, $6, $7, $8, $9, to_timestamp($10), to_timestamp($11))
	`

	sqlSelectVehicleColumns = `
		select
			vehicle_id::text,
			name,
			coalesce(make,''),
			coalesce(model,''),
			year,
			coalesce(color,''),
			daily_rate_cents,
			is_available,
			is_deleted,
			extract(epoch from created_at)::bigint,
			extract(epoch from updated_at)::bigint
		from vehicles
	`

	sqlSelectVehicle          = sqlSelectVehicleColumns + ` where vehicle_id = $1`
	sqlSelectVehicleForUpdate = sqlSelectVehicle + ` for update`

	sqlListVehicles = sqlSelectVehicleColumns + `
		where ($1::boolean or is_deleted = false)
		and (not $2::boolean or is_available = true)
		order by created_at asc
	`

	sqlUpdateVehicle = `
		update vehicles
		set name = $2, make = $3, model = $4, year = $5, color = $6,
			daily_rate_cents = $7, is_available = $8, is_deleted = $9,
			updated_at = to_timestamp($10)
		where vehicle_id = $1
	`

	sqlSetVehicleAvailability = `
		update vehicles
		set is_available = $2, updated_at = now()
		where vehicle_id = $1 and is_deleted = false
	`

	sqlInsertReservation = `
		insert into reservations(
			reservation_id, user_id, vehicle_id, start_at, end_at,
			status, total_cost_cents, is_deleted, created_at, updated_at
		)
		values($1, $2, $3, to_timestamp($4), to_timestamp($5), $6, $7, $8, to_timestamp($9), to_timestamp($10))
	`

	sqlSelectReservationColumns = `
		select
			reservation_id::text,
			user_id::text,
			vehicle_id::text,
			extract(epoch from start_at)::bigint,
			extract(epoch from end_at)::bigint,
			status::text,
			total_cost_cents,
			is_deleted,
			extract(epoch from created_at)::bigint,
			extract(epoch from updated_at)::bigint
		from reservations
	`

	sqlSelectReservation = sqlSelectReservationColumns + ` where reservation_id = $1`

	sqlCountOverlapping = `
		select count(*) from reservations
		where vehicle_id = $1 and status in ('pending', 'confirmed') and is_deleted = false
		and start_at < to_timestamp($2) and end_at > to_timestamp($3)
	`

	sqlUpdateReservationStatus = `
		update reservations
		set status = $3, updated_at = now()
		where reservation_id = $1 and status = $2 and is_deleted = false
	`

	sqlMarkReservationDeleted = `
		update reservations
		set is_deleted = true, updated_at = now()
		where reservation_id = $1
	`

	sqlListReservations = sqlSelectReservationColumns + `
		where is_deleted = false
		and ($1 = '' or user_id::text = $1)
		and ($2 = '' or vehicle_id::text = $2)
		and ($3 = '' or status::text = $3)
		and ($4::bigint = 0 or start_at >= to_timestamp($4))
		and ($5::bigint = 0 or start_at <= to_timestamp($5))
		and ($6::bigint = 0 or end_at <= to_timestamp($6))
		and ($7::bigint = 0 or (start_at <= to_timestamp($7) and end_at > to_timestamp($7)))
		order by created_at asc
	`

	sqlHasConfirmedCovering = `
		select count(*) from reservations
		where vehicle_id = $1 and status = 'confirmed' and is_deleted = false
		and start_at <= to_timestamp($2) and end_at > to_timestamp($2)
	`

	sqlInsertTransaction = `
		insert into transactions(transaction_id, reservation_id, amount_cents, method, status, created_at)
		values($1, $2, $3, $4, $5, to_timestamp($6))
	`

	sqlFinalizeTransaction = `
		update transactions
		set status = $2, gateway_transaction_id = $3, gateway_status = $4,
			gateway_message = $5, gateway_payload = $6::jsonb
		where transaction_id = $1 and status = 'pending'
	`

	sqlListTransactions = `
		select
			transactions.transaction_id::text,
			transactions.reservation_id::text,
			transactions.amount_cents,
			transactions.method,
			transactions.status::text,
			coalesce(transactions.gateway_transaction_id,''),
			coalesce(transactions.gateway_status,''),
			coalesce(transactions.gateway_message,''),
			extract(epoch from transactions.created_at)::bigint
		from transactions
		join reservations on reservations.reservation_id = transactions.reservation_id
		where ($1 = '' or reservations.user_id::text = $1)
		and ($2 = '' or transactions.reservation_id::text = $2)
		and ($3 = '' or transactions.status::text = $3)
		order by transactions.created_at asc
	`

	sqlSumCompletedTransactions = `
		select coalesce(sum(amount_cents),0), count(*) from transactions
		where status = 'completed'
		and created_at >= to_timestamp($1) and created_at <= to_timestamp($2)
	`

	sqlMostRequestedVehicle = `
		select reservations.vehicle_id::text, vehicles.name, count(*)
		from reservations
		join vehicles on vehicles.vehicle_id = reservations.vehicle_id
		where reservations.status = 'confirmed' and reservations.is_deleted = false
		and reservations.start_at >= to_timestamp($1) and reservations.end_at <= to_timestamp($2)
		group by reservations.vehicle_id, vehicles.name
		order by count(*) desc
		limit 1
	`
)

// querier is satisfied by both pgxpool.Pool and pgx.Tx so every query
// below runs unchanged in autocommit and transactional mode.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements rental.Store using a pgx connection pool (autocommit).
type Store struct {
	pool *pgxpool.Pool
	db   querier
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// WithTx runs fn inside a database transaction. A Store that already
// wraps a transaction joins it instead of nesting.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore rental.Store) error) error {
	if store.pool == nil {
		return fn(ctx, store)
	}
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeBegin, err)
	}
	transactionStore := &Store{db: tx}
	if err := fn(ctx, transactionStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeCommit, err)
	}
	return nil
}

func (store *Store) CreateUser(ctx context.Context, user rental.User) error {
	_, err := store.db.Exec(ctx, sqlInsertUser,
		user.UserID,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		user.Role.String(),
		user.CreatedUnixUTC,
	)
	if isUniqueViolation(err, constraintUsersEmail) {
		return wrapStoreError(errorSubjectUser, errorCodeDuplicate, rental.ErrUserExists)
	}
	if err != nil {
		return wrapStoreError(errorSubjectUser, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetUser(ctx context.Context, userID string) (rental.User, error) {
	return store.scanUser(store.db.QueryRow(ctx, sqlSelectUserByID, userID))
}

func (store *Store) GetUserByEmail(ctx context.Context, email string) (rental.User, error) {
	return store.scanUser(store.db.QueryRow(ctx, sqlSelectUserByEmail, email))
}

func (store *Store) scanUser(row pgx.Row) (rental.User, error) {
	var (
		userIDValue      string
		emailValue       string
		displayNameValue string
		passwordValue    string
		roleValue        string
		createdUnixUTC   int64
	)
	err := row.Scan(&userIDValue, &emailValue, &displayNameValue, &passwordValue, &roleValue, &createdUnixUTC)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rental.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, rental.ErrUserNotFound)
		}
		return rental.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, err)
	}
	role, err := rental.ParseRole(roleValue)
	if err != nil {
		return rental.User{}, wrapStoreError(errorSubjectUser, errorCodeInvalid, err)
	}
	return rental.User{
		UserID:         userIDValue,
		Email:          emailValue,
		DisplayName:    displayNameValue,
		PasswordHash:   passwordValue,
		Role:           role,
		CreatedUnixUTC: createdUnixUTC,
	}, nil
}

func (store *Store) CreateVehicle(ctx context.Context, vehicle rental.Vehicle) error {
	_, err := store.db.Exec(ctx, sqlInsertVehicle,
		vehicle.VehicleID,
		vehicle.Name,
		vehicle.Make,
		vehicle.Model,
		vehicle.Year,
		vehicle.Color,
		vehicle.DailyRateCents.Int64(),
		vehicle.Available,
		vehicle.Deleted,
		vehicle.CreatedUnixUTC,
		vehicle.UpdatedUnixUTC,
	)
	if err != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetVehicle(ctx context.Context, vehicleID string) (rental.Vehicle, error) {
	return scanVehicle(store.db.QueryRow(ctx, sqlSelectVehicle, vehicleID))
}

func (store *Store) GetVehicleForUpdate(ctx context.Context, vehicleID string) (rental.Vehicle, error) {
	return scanVehicle(store.db.QueryRow(ctx, sqlSelectVehicleForUpdate, vehicleID))
}

func (store *Store) UpdateVehicle(ctx context.Context, vehicle rental.Vehicle) error {
	tag, err := store.db.Exec(ctx, sqlUpdateVehicle,
		vehicle.VehicleID,
		vehicle.Name,
		vehicle.Make,
		vehicle.Model,
		vehicle.Year,
		vehicle.Color,
		vehicle.DailyRateCents.Int64(),
		vehicle.Available,
		vehicle.Deleted,
		vehicle.UpdatedUnixUTC,
	)
	if err != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectVehicle, errorCodeUpdate, rental.ErrVehicleNotFound)
	}
	return nil
}

func (store *Store) SetVehicleAvailability(ctx context.Context, vehicleID string, available bool) error {
	_, err := store.db.Exec(ctx, sqlSetVehicleAvailability, vehicleID, available)
	if err != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeUpdate, err)
	}
	// Soft deleted vehicles match no rows; availability no longer matters
	// for them, so callers recomputing it are not failed.
	return nil
}

func (store *Store) ListVehicles(ctx context.Context, filter rental.VehicleFilter) ([]rental.Vehicle, error) {
	rows, err := store.db.Query(ctx, sqlListVehicles, filter.IncludeDeleted, filter.AvailableOnly)
	if err != nil {
		return nil, wrapStoreError(errorSubjectVehicle, errorCodeList, err)
	}
	defer rows.Close()
	vehicles := make([]rental.Vehicle, 0, 16)
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectVehicle, errorCodeList, err)
	}
	return vehicles, nil
}

func (store *Store) CreateReservation(ctx context.Context, reservation rental.Reservation) error {
	_, err := store.db.Exec(ctx, sqlInsertReservation,
		reservation.ReservationID,
		reservation.UserID,
		reservation.VehicleID,
		reservation.Period.StartUnixUTC(),
		reservation.Period.EndUnixUTC(),
		reservation.Status.String(),
		reservation.TotalCostCents.Int64(),
		reservation.Deleted,
		reservation.CreatedUnixUTC,
		reservation.UpdatedUnixUTC,
	)
	if err != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetReservation(ctx context.Context, reservationID string) (rental.Reservation, error) {
	return scanReservation(store.db.QueryRow(ctx, sqlSelectReservation, reservationID))
}

func (store *Store) CountOverlapping(ctx context.Context, vehicleID string, period rental.TimeRange) (int64, error) {
	var count int64
	err := store.db.QueryRow(ctx, sqlCountOverlapping, vehicleID, period.EndUnixUTC(), period.StartUnixUTC()).Scan(&count)
	if err != nil {
		return 0, wrapStoreError(errorSubjectBooking, errorCodeCount, err)
	}
	return count, nil
}

func (store *Store) UpdateReservationStatus(ctx context.Context, reservationID string, from rental.ReservationStatus, to rental.ReservationStatus) error {
	tag, err := store.db.Exec(ctx, sqlUpdateReservationStatus, reservationID, from.String(), to.String())
	if err != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdate, rental.ErrInvalidReservationStatus)
	}
	return nil
}

func (store *Store) MarkReservationDeleted(ctx context.Context, reservationID string) error {
	tag, err := store.db.Exec(ctx, sqlMarkReservationDeleted, reservationID)
	if err != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdate, rental.ErrReservationNotFound)
	}
	return nil
}

func (store *Store) ListReservations(ctx context.Context, filter rental.ReservationFilter) ([]rental.Reservation, error) {
	rows, err := store.db.Query(ctx, sqlListReservations,
		filter.UserID,
		filter.VehicleID,
		filter.Status.String(),
		filter.StartFromUnixUTC,
		filter.StartUntilUnixUTC,
		filter.EndsOnOrBeforeUnixUTC,
		filter.InWindowAtUnixUTC,
	)
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	defer rows.Close()
	reservations := make([]rental.Reservation, 0, 32)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	return reservations, nil
}

func (store *Store) HasConfirmedCovering(ctx context.Context, vehicleID string, atUnixUTC int64) (bool, error) {
	var count int64
	err := store.db.QueryRow(ctx, sqlHasConfirmedCovering, vehicleID, atUnixUTC).Scan(&count)
	if err != nil {
		return false, wrapStoreError(errorSubjectBooking, errorCodeCount, err)
	}
	return count > 0, nil
}

func (store *Store) CreateTransaction(ctx context.Context, transaction rental.Transaction) error {
	_, err := store.db.Exec(ctx, sqlInsertTransaction,
		transaction.TransactionID,
		transaction.ReservationID,
		transaction.AmountCents.Int64(),
		transaction.Method,
		transaction.Status.String(),
		transaction.CreatedUnixUTC,
	)
	if err != nil {
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
	tag, err := store.db.Exec(ctx, sqlFinalizeTransaction,
		transactionID,
		status.String(),
		gatewayTransactionID,
		gatewayStatus,
		gatewayMessage,
		string(payload),
	)
	if err != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeFinalize, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectPayment, errorCodeFinalize, rental.ErrInvalidTransactionStatus)
	}
	return nil
}

func (store *Store) ListTransactions(ctx context.Context, filter rental.TransactionFilter) ([]rental.Transaction, error) {
	rows, err := store.db.Query(ctx, sqlListTransactions,
		filter.UserID,
		filter.ReservationID,
		filter.Status.String(),
	)
	if err != nil {
		return nil, wrapStoreError(errorSubjectPayment, errorCodeList, err)
	}
	defer rows.Close()
	transactions := make([]rental.Transaction, 0, 32)
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectPayment, errorCodeList, err)
	}
	return transactions, nil
}

func (store *Store) SumCompletedTransactions(ctx context.Context, startUnixUTC int64, endUnixUTC int64) (int64, int64, error) {
	var (
		totalCents int64
		count      int64
	)
	err := store.db.QueryRow(ctx, sqlSumCompletedTransactions, startUnixUTC, endUnixUTC).Scan(&totalCents, &count)
	if err != nil {
		return 0, 0, wrapStoreError(errorSubjectReport, errorCodeAggregate, err)
	}
	return totalCents, count, nil
}

func (store *Store) MostRequestedVehicle(ctx context.Context, startUnixUTC int64, endUnixUTC int64) (rental.VehicleDemand, error) {
	var demand rental.VehicleDemand
	err := store.db.QueryRow(ctx, sqlMostRequestedVehicle, startUnixUTC, endUnixUTC).Scan(
		&demand.VehicleID,
		&demand.Name,
		&demand.Count,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rental.VehicleDemand{}, nil
		}
		return rental.VehicleDemand{}, wrapStoreError(errorSubjectReport, errorCodeAggregate, err)
	}
	return demand, nil
}

func scanVehicle(row pgx.Row) (rental.Vehicle, error) {
	var (
		vehicleIDValue string
		nameValue      string
		makeValue      string
		modelValue     string
		yearValue      int
		colorValue     string
		dailyRateValue int64
		availableValue bool
		deletedValue   bool
		createdUnixUTC int64
		updatedUnixUTC int64
	)
	err := row.Scan(
		&vehicleIDValue,
		&nameValue,
		&makeValue,
		&modelValue,
		&yearValue,
		&colorValue,
		&dailyRateValue,
		&availableValue,
		&deletedValue,
		&createdUnixUTC,
		&updatedUnixUTC,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rental.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeGet, rental.ErrVehicleNotFound)
		}
		return rental.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeGet, err)
	}
	dailyRate, err := rental.NewAmountCents(dailyRateValue)
	if err != nil {
		return rental.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeInvalid, err)
	}
	return rental.Vehicle{
		VehicleID:      vehicleIDValue,
		Name:           nameValue,
		Make:           makeValue,
		Model:          modelValue,
		Year:           yearValue,
		Color:          colorValue,
		DailyRateCents: dailyRate,
		Available:      availableValue,
		Deleted:        deletedValue,
		CreatedUnixUTC: createdUnixUTC,
		UpdatedUnixUTC: updatedUnixUTC,
	}, nil
}

func scanReservation(row pgx.Row) (rental.Reservation, error) {
	var (
		reservationIDValue string
		userIDValue        string
		vehicleIDValue     string
		startUnixUTC       int64
		endUnixUTC         int64
		statusValue        string
		totalCostValue     int64
		deletedValue       bool
		createdUnixUTC     int64
		updatedUnixUTC     int64
	)
	err := row.Scan(
		&reservationIDValue,
		&userIDValue,
		&vehicleIDValue,
		&startUnixUTC,
		&endUnixUTC,
		&statusValue,
		&totalCostValue,
		&deletedValue,
		&createdUnixUTC,
		&updatedUnixUTC,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rental.Reservation{}, wrapStoreError(errorSubjectBooking, errorCodeGet, rental.ErrReservationNotFound)
		}
		return rental.Reservation{}, wrapStoreError(errorSubjectBooking, errorCodeGet, err)
	}
	period, err := rental.NewTimeRange(startUnixUTC, endUnixUTC)
	if err != nil {
		return rental.Reservation{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	status, err := rental.ParseReservationStatus(statusValue)
	if err != nil {
		return rental.Reservation{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	totalCost, err := rental.NewAmountCents(totalCostValue)
	if err != nil {
		return rental.Reservation{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	return rental.Reservation{
		ReservationID:  reservationIDValue,
		UserID:         userIDValue,
		VehicleID:      vehicleIDValue,
		Period:         period,
		Status:         status,
		TotalCostCents: totalCost,
		Deleted:        deletedValue,
		CreatedUnixUTC: createdUnixUTC,
		UpdatedUnixUTC: updatedUnixUTC,
	}, nil
}

func scanTransaction(row pgx.Row) (rental.Transaction, error) {
	var (
		transactionIDValue string
		reservationIDValue string
		amountValue        int64
		methodValue        string
		statusValue        string
		gatewayIDValue     string
		gatewayStatusValue string
		gatewayMsgValue    string
		createdUnixUTC     int64
	)
	err := row.Scan(
		&transactionIDValue,
		&reservationIDValue,
		&amountValue,
		&methodValue,
		&statusValue,
		&gatewayIDValue,
		&gatewayStatusValue,
		&gatewayMsgValue,
		&createdUnixUTC,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rental.Transaction{}, wrapStoreError(errorSubjectPayment, errorCodeGet, rental.ErrInvalidTransactionID)
		}
		return rental.Transaction{}, wrapStoreError(errorSubjectPayment, errorCodeGet, err)
	}
	status, err := rental.ParseTransactionStatus(statusValue)
	if err != nil {
		return rental.Transaction{}, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
	}
	amount, err := rental.NewAmountCents(amountValue)
	if err != nil {
		return rental.Transaction{}, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
	}
	return rental.Transaction{
		TransactionID:        transactionIDValue,
		ReservationID:        reservationIDValue,
		AmountCents:          amount,
		Method:               methodValue,
		Status:               status,
		GatewayTransactionID: gatewayIDValue,
		GatewayStatus:        gatewayStatusValue,
		GatewayMessage:       gatewayMsgValue,
		CreatedUnixUTC:       createdUnixUTC,
	}, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return rental.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintName
	}
	return false
}
