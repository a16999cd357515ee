package jobs

import (
	"testing"
	"time"
)

func TestEncodeDecode_WelcomeEmail(t *testing.T) {
	payload := WelcomeEmailPayload{
		UserID: "user-123",
		Email:  "ada@example.com",
		Name:   "Ada",
	}

	b, err := EncodePayload(JobWelcomeEmail, payload)
	if err != nil {
		t.Fatalf("EncodePayload error: %v", err)
	}

	j, err := NewJob(JobWelcomeEmail, b, time.Time{})
	if err != nil {
		t.Fatalf("NewJob error: %v", err)
	}

	decoded, err := DecodePayload(j)
	if err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}

	p, ok := decoded.(WelcomeEmailPayload)
	if !ok {
		t.Fatalf("expected WelcomeEmailPayload, got %T", decoded)
	}

	if p.UserID != payload.UserID {
		t.Fatalf("expected userId %s, got %s", payload.UserID, p.UserID)
	}
	if p.Email != payload.Email {
		t.Fatalf("expected email %s, got %s", payload.Email, p.Email)
	}
}

func TestEncodePayload_TypeMismatch(t *testing.T) {
	_, err := EncodePayload(JobWelcomeEmail, PasswordChangedPayload{
		UserID: "u1",
		Email:  "ada@example.com",
	})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if err != ErrPayloadTypeMismatch {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestNewJob_InvalidType(t *testing.T) {
	_, err := NewJob(JobType("bogus"), []byte(`{}`), time.Time{})
	if err != ErrInvalidJobType {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestValidatePayload_RequiredIDs(t *testing.T) {
	err := ValidatePayload(JobWelcomeEmail, WelcomeEmailPayload{UserID: ""})
	if err == nil {
		t.Fatalf("expected error")
	}

	err = ValidatePayload(JobPasswordChanged, PasswordChangedPayload{UserID: "u1", Email: ""})
	if err == nil {
		t.Fatalf("expected error")
	}
}
