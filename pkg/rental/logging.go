package rental

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing rental operation.
type OperationLog struct {
	Operation     string
	UserID        string
	VehicleID     string
	ReservationID string
	TransactionID string
	AmountCents   AmountCents
	Status        string
	Error         error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithEmailSender wires the receipt mailer. Without it receipts are skipped.
func WithEmailSender(sender EmailSender) ServiceOption {
	return func(service *Service) {
		service.mailer = sender
	}
}

// WithIDGenerator overrides identifier generation, mainly for tests.
func WithIDGenerator(generate func() string) ServiceOption {
	return func(service *Service) {
		if generate != nil {
			service.idFn = generate
		}
	}
}
