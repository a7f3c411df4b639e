package models

// ReminderPayload is the queued reminder task body. Target selects which
// side of the booking receives it: "client" or "vendor".
type ReminderPayload struct {
	BookingID string `json:"bookingId"`
	Target    string `json:"target"`
	TargetID  string `json:"targetId"` // clientId or vendorId
	Stage     string `json:"stage"`    // "at_24h", "at_3h", "at_1h" or "vendor_prompt"
	Title     string `json:"title"`
	Body      string `json:"body"`
	FireDate  string `json:"fireDate"` // RFC3339, informational
}
