package rental

import "context"

// PaymentGateway is the payment collaborator contract. The amount is a
// decimal string with two fraction digits; the call is a blocking
// network round trip and must never run inside a store transaction.
type PaymentGateway interface {
	Sale(ctx context.Context, request SaleRequest) (SaleResult, error)
}

// SaleRequest carries one payment capture attempt.
type SaleRequest struct {
	Amount              string
	PaymentMethodNonce  string
	SubmitForSettlement bool
}

// SaleResult is the gateway verdict. Success false means the gateway
// processed the request and declined it; transport failures surface as
// errors instead.
type SaleResult struct {
	Success       bool
	TransactionID string
	Status        string
	Amount        string
	Message       string
}

// EmailSender delivers templated mail. Delivery is fire-and-forget: a
// failure must not unwind the reservation it announces.
type EmailSender interface {
	Send(ctx context.Context, message EmailMessage) error
}

// EmailMessage describes one templated delivery.
type EmailMessage struct {
	Subject        string
	RecipientEmail string
	RecipientName  string
	TemplateName   string
	Variables      map[string]any
}
