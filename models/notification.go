package models

// RecipientRole says which app a notice is addressed to.
type RecipientRole string

const (
	RecipientCustomer RecipientRole = "customer"
	RecipientProvider RecipientRole = "provider"
	RecipientStaff    RecipientRole = "staff"
)

// Notice is a fire-and-forget push to one recipient.
type Notice struct {
	RecipientID string            `json:"recipientId"`
	Role        RecipientRole     `json:"role"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
}
