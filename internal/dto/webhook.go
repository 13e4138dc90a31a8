package dto

import "time"

// WebhookNotification is the payment gateway's asynchronous settlement
// callback. It is untrusted input until the integrity token is verified.
type WebhookNotification struct {
	OrderCode             string     `json:"order_code"`
	ProviderStatus        string     `json:"provider_status"`
	Amount                int64      `json:"amount"`
	IntegrityToken        string     `json:"integrity_token"`
	PaymentMethod         string     `json:"payment_method"`
	ProviderTransactionID string     `json:"provider_transaction_id"`
	SettledAt             *time.Time `json:"settled_at,omitempty"`
}
