package leads

import "time"

// Lead is a visitor who left an email to receive a diagnosis.
type Lead struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Company   string    `json:"company,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CaptureInput is the payload accepted by Capture.
type CaptureInput struct {
	Email   string `json:"email" validate:"required,email,max=320"`
	Name    string `json:"name" validate:"max=200"`
	Company string `json:"company" validate:"max=200"`
}
