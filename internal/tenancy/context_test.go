package tenancy

import (
	"context"
	"testing"
)

func TestProfessionalIDRoundTrip(t *testing.T) {
	ctx := WithProfessionalID(context.Background(), "pro-123")

	id, ok := ProfessionalIDFromContext(ctx)
	if !ok {
		t.Fatal("expected professional id in context")
	}
	if id != "pro-123" {
		t.Errorf("expected pro-123, got %s", id)
	}
}

func TestProfessionalIDMissing(t *testing.T) {
	if _, ok := ProfessionalIDFromContext(context.Background()); ok {
		t.Fatal("expected no professional id in empty context")
	}
}

func TestProfessionalIDEmptyValue(t *testing.T) {
	ctx := WithProfessionalID(context.Background(), "")
	if _, ok := ProfessionalIDFromContext(ctx); ok {
		t.Fatal("empty id should not count as present")
	}
}
