package validator

import (
	"strings"
	"testing"
)

type sampleForm struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

func TestCheckUsesJSONFieldNames(t *testing.T) {
	fields := Check(&sampleForm{Email: "nope"})
	if fields == nil {
		t.Fatal("invalid form passed")
	}
	if _, ok := fields["email"]; !ok {
		t.Fatalf("expected email key, got %v", fields)
	}
	if _, ok := fields["name"]; !ok {
		t.Fatalf("expected name key, got %v", fields)
	}
}

func TestCheckValidForm(t *testing.T) {
	if fields := Check(&sampleForm{Email: "a@b.c", Name: "A"}); fields != nil {
		t.Fatalf("valid form rejected: %v", fields)
	}
}

func TestFieldErrorMessageIsStableAndReadable(t *testing.T) {
	err := &FieldError{Fields: map[string]string{
		"name":  "name is a required field",
		"email": "email must be a valid email address",
	}}

	msg := err.Error()
	if !strings.HasPrefix(msg, "validation failed: ") {
		t.Fatalf("message = %q", msg)
	}
	// Messages are sorted by field name so logs stay diffable.
	if strings.Index(msg, "email") > strings.Index(msg, "name is a required") {
		t.Fatalf("messages not sorted: %q", msg)
	}
}
