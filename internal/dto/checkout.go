package dto

// CheckoutItem is one proposed cart line. Quantity is the only thing the
// client controls; pricing always comes from the catalog.
type CheckoutItem struct {
	ProductID int64 `json:"product_reference"`
	Quantity  int   `json:"quantity"`
}

// Buyer carries the contact details forwarded to the payment gateway.
type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CheckoutRequest is the storefront's checkout submission.
type CheckoutRequest struct {
	Items     []CheckoutItem `json:"items"`
	Buyer     Buyer          `json:"buyer"`
	AccountID int64          `json:"account_id"`
}

// CheckoutResponse returns the gateway handle the storefront needs to
// start collecting payment. ClientKey is the browser-facing gateway key
// the payment page is initialised with; it is safe to expose.
type CheckoutResponse struct {
	PaymentToken string `json:"payment_token"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	OrderCode    string `json:"order_code"`
	ClientKey    string `json:"client_key,omitempty"`
}
