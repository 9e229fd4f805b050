package rental

const (
	operationCreateReservation  = "create_reservation"
	operationCancelReservation  = "cancel_reservation"
	operationCaptureTransaction = "capture_transaction"
	operationSweepAvailability  = "sweep_availability"
	operationCreateVehicle      = "create_vehicle"
	operationUpdateVehicle      = "update_vehicle"
	operationDeleteVehicle      = "delete_vehicle"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	receiptEmailSubject  = "Your Transaction Receipt"
	receiptEmailTemplate = "invoice"

	fallbackGatewayMessage = "Transaction successful"

	// bookingHorizonSeconds bounds the look-ahead that decides whether an
	// unavailable vehicle is booked or out of service (ten years).
	bookingHorizonSeconds int64 = 10 * 365 * 24 * 60 * 60
)
