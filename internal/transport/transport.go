package transport

import "context"

// SendResult is the provider's answer for one recipient. Pending means
// the provider accepted the message but has not confirmed delivery yet.
type SendResult struct {
	ProviderMessageID string
	Pending           bool
	ErrorCode         string
	ErrorMessage      string
}

// Transport is the SMS provider boundary. Implementations are called
// concurrently by dispatcher workers and must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, phone, body string) (SendResult, error)
}
