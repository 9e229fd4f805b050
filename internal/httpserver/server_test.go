package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/rental/internal/auth"
	"github.com/MarkoPoloResearchLab/rental/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

// serverNowUnixUTC is 2023-11-14T22:13:20Z; reservation fixtures sit a
// few days after it.
const serverNowUnixUTC = 1_700_000_000

type approvingGateway struct{}

func (approvingGateway) Sale(_ context.Context, request rental.SaleRequest) (rental.SaleResult, error) {
	return rental.SaleResult{
		Success:       true,
		TransactionID: "gw-1",
		Status:        "submitted_for_settlement",
		Amount:        request.Amount,
	}, nil
}

func startTestServer(t *testing.T) (*httptest.Server, *auth.Authenticator) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(t.TempDir()+"/rental.db"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gormstore.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := gormstore.New(db)

	service, err := rental.NewService(store, approvingGateway{}, func() int64 { return serverNowUnixUTC })
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	authCfg := auth.Config{Secret: "test-secret", Issuer: "rentald", TokenTTL: time.Hour}
	authenticator, err := auth.NewAuthenticator(store, authCfg, func() time.Time {
		return time.Unix(serverNowUnixUTC, 0).UTC()
	})
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}

	handler := &httpHandler{
		logger:        zap.NewNop(),
		service:       service,
		authenticator: authenticator,
		authCfg:       authCfg,
	}
	cfg := Config{AllowedOrigins: []string{"http://localhost:3000"}}
	server := httptest.NewServer(setupRouter(cfg, handler, authCfg))
	t.Cleanup(server.Close)
	return server, authenticator
}

func execJSON(t *testing.T, server *httptest.Server, method string, path string, token string, payload any, wantStatus int, out any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, server.URL+path, body)
	if err != nil {
		t.Fatalf("request init failed: %v", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := server.Client().Do(request)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer response.Body.Close()
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if response.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d (body %s)", method, path, response.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode response: %v (body %s)", err, raw)
		}
	}
}

func registerManager(t *testing.T, authenticator *auth.Authenticator) string {
	t.Helper()
	session, err := authenticator.Register(context.Background(), auth.RegisterInput{
		Email:    "manager@example.com",
		Password: "s3cret-pass",
		Role:     rental.RoleManager,
	})
	if err != nil {
		t.Fatalf("seed manager: %v", err)
	}
	return session.Token
}

func TestReservationFlowOverHTTP(t *testing.T) {
	server, authenticator := startTestServer(t)
	managerToken := registerManager(t, authenticator)

	var customer sessionPayload
	execJSON(t, server, http.MethodPost, "/api/accounts/register", "", map[string]any{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "s3cret-pass",
	}, http.StatusCreated, &customer)
	if customer.Role != "customer" {
		t.Fatalf("expected customer role, got %q", customer.Role)
	}

	var vehicle vehiclePayload
	execJSON(t, server, http.MethodPost, "/api/vehicles", managerToken, map[string]any{
		"name":             "Compact 1",
		"make":             "Toyota",
		"model":            "Corolla",
		"year":             2021,
		"color":            "blue",
		"daily_rate_cents": 10000,
	}, http.StatusCreated, &vehicle)
	if vehicle.VehicleID == "" || !vehicle.Available {
		t.Fatalf("unexpected vehicle payload: %+v", vehicle)
	}

	reservationBody := map[string]any{
		"vehicle_id":           vehicle.VehicleID,
		"start_date":           "2023-11-20",
		"end_date":             "2023-11-22",
		"amount_cents":         20000,
		"payment_method":       "card",
		"payment_method_nonce": "nonce-ok",
	}
	var created struct {
		Reservation reservationPayload `json:"reservation"`
		Transaction transactionPayload `json:"transaction"`
	}
	execJSON(t, server, http.MethodPost, "/api/reservations", customer.Token, reservationBody, http.StatusCreated, &created)
	if created.Reservation.Status != "confirmed" {
		t.Fatalf("reservation status = %q, want confirmed", created.Reservation.Status)
	}
	if created.Transaction.Status != "completed" {
		t.Fatalf("transaction status = %q, want completed", created.Transaction.Status)
	}
	if created.Transaction.GatewayTransactionID != "gw-1" {
		t.Fatalf("gateway transaction id = %q, want gw-1", created.Transaction.GatewayTransactionID)
	}

	var conflict struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	overlapBody := map[string]any{
		"vehicle_id":           vehicle.VehicleID,
		"start_date":           "2023-11-21",
		"end_date":             "2023-11-23",
		"amount_cents":         20000,
		"payment_method":       "card",
		"payment_method_nonce": "nonce-ok",
	}
	execJSON(t, server, http.MethodPost, "/api/reservations", customer.Token, overlapBody, http.StatusConflict, &conflict)
	if conflict.Error.Code != "reservation_conflict" {
		t.Fatalf("error code = %q, want reservation_conflict", conflict.Error.Code)
	}

	var listed struct {
		Reservations []reservationPayload `json:"reservations"`
	}
	execJSON(t, server, http.MethodGet, "/api/reservations", customer.Token, nil, http.StatusOK, &listed)
	if len(listed.Reservations) != 1 {
		t.Fatalf("expected 1 reservation, got %d", len(listed.Reservations))
	}

	cancelPath := fmt.Sprintf("/api/reservations/%s/cancel", created.Reservation.ReservationID)
	execJSON(t, server, http.MethodPost, cancelPath, customer.Token, nil, http.StatusOK, nil)

	execJSON(t, server, http.MethodPost, "/api/reservations", customer.Token, overlapBody, http.StatusCreated, nil)
}

func TestVehicleRoutesEnforceRoles(t *testing.T) {
	server, authenticator := startTestServer(t)
	managerToken := registerManager(t, authenticator)

	var customer sessionPayload
	execJSON(t, server, http.MethodPost, "/api/accounts/register", "", map[string]any{
		"email":    "bob@example.com",
		"password": "s3cret-pass",
	}, http.StatusCreated, &customer)

	vehicleBody := map[string]any{
		"name":             "Van 1",
		"make":             "Ford",
		"model":            "Transit",
		"year":             2020,
		"color":            "white",
		"daily_rate_cents": 15000,
	}
	var forbidden struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	execJSON(t, server, http.MethodPost, "/api/vehicles", customer.Token, vehicleBody, http.StatusForbidden, &forbidden)
	if forbidden.Error.Code != "forbidden" {
		t.Fatalf("error code = %q, want forbidden", forbidden.Error.Code)
	}

	execJSON(t, server, http.MethodPost, "/api/vehicles", managerToken, vehicleBody, http.StatusCreated, nil)

	execJSON(t, server, http.MethodGet, "/api/vehicles", "", nil, http.StatusUnauthorized, nil)

	execJSON(t, server, http.MethodPost, "/api/accounts/register", customer.Token, map[string]any{
		"email":    "mallory@example.com",
		"password": "s3cret-pass",
		"role":     "manager",
	}, http.StatusForbidden, nil)

	execJSON(t, server, http.MethodPost, "/api/accounts/register", managerToken, map[string]any{
		"email":    "carol@example.com",
		"password": "s3cret-pass",
		"role":     "employee",
	}, http.StatusCreated, nil)
}

func TestIncomeReportOverHTTP(t *testing.T) {
	server, authenticator := startTestServer(t)
	managerToken := registerManager(t, authenticator)

	var customer sessionPayload
	execJSON(t, server, http.MethodPost, "/api/accounts/register", "", map[string]any{
		"email":    "dave@example.com",
		"password": "s3cret-pass",
	}, http.StatusCreated, &customer)

	var vehicle vehiclePayload
	execJSON(t, server, http.MethodPost, "/api/vehicles", managerToken, map[string]any{
		"name":             "Sedan 1",
		"make":             "Honda",
		"model":            "Accord",
		"year":             2022,
		"color":            "black",
		"daily_rate_cents": 12000,
	}, http.StatusCreated, &vehicle)

	execJSON(t, server, http.MethodPost, "/api/reservations", customer.Token, map[string]any{
		"vehicle_id":           vehicle.VehicleID,
		"start_date":           "2023-11-20",
		"end_date":             "2023-11-21",
		"amount_cents":         12000,
		"payment_method":       "card",
		"payment_method_nonce": "nonce-ok",
	}, http.StatusCreated, nil)

	var report reportPayload
	execJSON(t, server, http.MethodGet, "/api/reports/income?start_date=2023-11-01&end_date=2023-12-01", managerToken, nil, http.StatusOK, &report)
	if report.TotalIncomeCents != 12000 {
		t.Fatalf("total income = %d, want 12000", report.TotalIncomeCents)
	}
	if report.TotalTransactions != 1 {
		t.Fatalf("total transactions = %d, want 1", report.TotalTransactions)
	}
	if report.MostRequestedVehicle.VehicleID != vehicle.VehicleID {
		t.Fatalf("most requested = %q, want %q", report.MostRequestedVehicle.VehicleID, vehicle.VehicleID)
	}

	execJSON(t, server, http.MethodGet, "/api/reports/income?start_date=2023-11-01&end_date=2023-12-01", customer.Token, nil, http.StatusForbidden, nil)
}
