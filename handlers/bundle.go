package handlers

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	JWTSecret         []byte
	MaxRequestsPerMin int

	Reservation  *ReservationHandler
	Cart         *CartHandler
	Cancellation *CancellationHandler
	Tracking     *TrackingHandler
	Events       *EventsHandler
	Webhook      *WebhookHandler
	Device       *DeviceHandler
	Ops          *OpsHandler
}
