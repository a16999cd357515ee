package jobs

// WelcomeEmailPayload greets a freshly created account.
// Payloads stay small and ID-based; the worker resolves anything else itself.
type WelcomeEmailPayload struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	RequestID string `json:"requestId,omitempty"` // optional: correlation
}

// PasswordChangedPayload drives the security notice sent after a successful
// password update.
type PasswordChangedPayload struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	RequestID string `json:"requestId,omitempty"`
}
