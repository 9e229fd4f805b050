package httpserver

import (
	"time"

	"github.com/MarkoPoloResearchLab/rental/internal/auth"
	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

type sessionPayload struct {
	Token       string `json:"token"`
	ExpiresUnix int64  `json:"expires_unix"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func sessionPayloadFrom(session auth.Session) sessionPayload {
	return sessionPayload{
		Token:       session.Token,
		ExpiresUnix: session.ExpiresUnix,
		UserID:      session.UserID,
		Email:       session.Email,
		DisplayName: session.DisplayName,
		Role:        session.Role.String(),
	}
}

type vehiclePayload struct {
	VehicleID      string `json:"vehicle_id"`
	Name           string `json:"name"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	Year           int    `json:"year"`
	Color          string `json:"color"`
	DailyRateCents int64  `json:"daily_rate_cents"`
	Available      bool   `json:"available"`
	Deleted        bool   `json:"deleted,omitempty"`
}

func vehiclePayloadFrom(vehicle rental.Vehicle) vehiclePayload {
	return vehiclePayload{
		VehicleID:      vehicle.VehicleID,
		Name:           vehicle.Name,
		Make:           vehicle.Make,
		Model:          vehicle.Model,
		Year:           vehicle.Year,
		Color:          vehicle.Color,
		DailyRateCents: vehicle.DailyRateCents.Int64(),
		Available:      vehicle.Available,
		Deleted:        vehicle.Deleted,
	}
}

type reservationPayload struct {
	ReservationID  string `json:"reservation_id"`
	UserID         string `json:"user_id"`
	VehicleID      string `json:"vehicle_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	Status         string `json:"status"`
	TotalCostCents int64  `json:"total_cost_cents"`
	CreatedUnixUTC int64  `json:"created_unix_utc"`
}

func reservationPayloadFrom(reservation rental.Reservation) reservationPayload {
	return reservationPayload{
		ReservationID:  reservation.ReservationID,
		UserID:         reservation.UserID,
		VehicleID:      reservation.VehicleID,
		StartDate:      time.Unix(reservation.Period.StartUnixUTC(), 0).UTC().Format(time.RFC3339),
		EndDate:        time.Unix(reservation.Period.EndUnixUTC(), 0).UTC().Format(time.RFC3339),
		Status:         reservation.Status.String(),
		TotalCostCents: reservation.TotalCostCents.Int64(),
		CreatedUnixUTC: reservation.CreatedUnixUTC,
	}
}

type transactionPayload struct {
	TransactionID        string `json:"transaction_id"`
	ReservationID        string `json:"reservation_id"`
	AmountCents          int64  `json:"amount_cents"`
	Method               string `json:"method"`
	Status               string `json:"status"`
	GatewayTransactionID string `json:"gateway_transaction_id,omitempty"`
	GatewayStatus        string `json:"gateway_status,omitempty"`
	GatewayMessage       string `json:"gateway_message,omitempty"`
	CreatedUnixUTC       int64  `json:"created_unix_utc"`
}

func transactionPayloadFrom(transaction rental.Transaction) transactionPayload {
	return transactionPayload{
		TransactionID:        transaction.TransactionID,
		ReservationID:        transaction.ReservationID,
		AmountCents:          transaction.AmountCents.Int64(),
		Method:               transaction.Method,
		Status:               transaction.Status.String(),
		GatewayTransactionID: transaction.GatewayTransactionID,
		GatewayStatus:        transaction.GatewayStatus,
		GatewayMessage:       transaction.GatewayMessage,
		CreatedUnixUTC:       transaction.CreatedUnixUTC,
	}
}

type invoicePayload struct {
	Reservation  reservationPayload   `json:"reservation"`
	Transactions []transactionPayload `json:"transactions"`
	TotalCents   int64                `json:"total_cents"`
}

func invoicePayloadFrom(invoice rental.Invoice) invoicePayload {
	transactions := make([]transactionPayload, 0, len(invoice.Transactions))
	var totalCents int64
	for _, transaction := range invoice.Transactions {
		transactions = append(transactions, transactionPayloadFrom(transaction))
		totalCents += transaction.AmountCents.Int64()
	}
	return invoicePayload{
		Reservation:  reservationPayloadFrom(invoice.Reservation),
		Transactions: transactions,
		TotalCents:   totalCents,
	}
}

type reportPayload struct {
	StartDate            string               `json:"start_date"`
	EndDate              string               `json:"end_date"`
	TotalIncomeCents     int64                `json:"total_income_cents"`
	TotalTransactions    int64                `json:"total_transactions"`
	MostRequestedVehicle vehicleDemandPayload `json:"most_requested_vehicle"`
}

type vehicleDemandPayload struct {
	VehicleID string `json:"vehicle_id,omitempty"`
	Name      string `json:"name"`
	Count     int64  `json:"count"`
}

func reportPayloadFrom(report rental.IncomeReport) reportPayload {
	return reportPayload{
		StartDate:         time.Unix(report.StartUnixUTC, 0).UTC().Format(time.RFC3339),
		EndDate:           time.Unix(report.EndUnixUTC, 0).UTC().Format(time.RFC3339),
		TotalIncomeCents:  report.TotalIncomeCents,
		TotalTransactions: report.TotalTransactions,
		MostRequestedVehicle: vehicleDemandPayload{
			VehicleID: report.MostRequestedVehicle.VehicleID,
			Name:      report.MostRequestedVehicle.Name,
			Count:     report.MostRequestedVehicle.Count,
		},
	}
}
