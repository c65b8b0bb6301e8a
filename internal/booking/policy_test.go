package booking

import (
	"errors"
	"testing"

	"github.com/wolfman30/muvance-crm/internal/leads"
)

func TestValidateFlagsEveryField(t *testing.T) {
	err := StrictPolicy().Validate(leads.Contact{
		FullName:    "  ",
		PhoneNumber: "12345",
		Email:       "not-an-email",
		WebsiteLink: "nope",
	})
	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if !errors.Is(err, ErrInvalidDetails) {
		t.Fatalf("expected ErrInvalidDetails in chain")
	}
	for _, field := range []string{"fullName", "phoneNumber", "email", "websiteLink"} {
		if !fe.Has(field) {
			t.Fatalf("expected %s to be flagged, got %v", field, fe)
		}
	}
}

func TestPhonePolicies(t *testing.T) {
	tests := []struct {
		policy Policy
		phone  string
		ok     bool
	}{
		{DefaultPolicy(), "12345678901", true},
		{DefaultPolicy(), "01712340001", true},
		{DefaultPolicy(), "1234567890", false},
		{DefaultPolicy(), "0171234000a", false},
		{StrictPolicy(), "01712340001", true},
		{StrictPolicy(), "12345678901", false},
		{StrictPolicy(), "017123400011", false},
	}
	for _, tt := range tests {
		if got := tt.policy.ValidPhone(tt.phone); got != tt.ok {
			t.Errorf("%s %q: got %v want %v", tt.policy.Phone, tt.phone, got, tt.ok)
		}
	}
}

func TestWebsiteOnlyRequiredWhenStrict(t *testing.T) {
	c := leads.Contact{FullName: "Rahim", PhoneNumber: "01712340001", Email: "r@shop.com"}
	if err := DefaultPolicy().Validate(c); err != nil {
		t.Fatalf("default policy should not require website: %v", err)
	}
	if err := StrictPolicy().Validate(c); err == nil {
		t.Fatal("strict policy should require website")
	}
	c.WebsiteLink = "https://rahim-shop.com.bd/products"
	if err := StrictPolicy().Validate(c); err != nil {
		t.Fatalf("expected valid website, got %v", err)
	}
	c.WebsiteLink = "rahim.shop"
	if err := StrictPolicy().Validate(c); err != nil {
		t.Fatalf("scheme should be optional, got %v", err)
	}
}

func TestParsePhonePolicy(t *testing.T) {
	if p, err := ParsePhonePolicy("BD-Mobile"); err != nil || p != PhoneBDMobile {
		t.Fatalf("got %q %v", p, err)
	}
	if p, _ := ParsePhonePolicy(""); p != PhoneElevenDigits {
		t.Fatalf("expected default policy, got %q", p)
	}
	if _, err := ParsePhonePolicy("us"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestValidateRecordEmailOptional(t *testing.T) {
	p := DefaultPolicy()
	raw := leads.RawAppointment{Date: "2025-06-10", Time: "1:00 PM", FullName: "Ada", PhoneNumber: "01712345678"}
	if err := p.ValidateRecord(raw); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}

	raw.Email = "not-an-email"
	raw.PhoneNumber = "123"
	raw.Time = ""
	err := p.ValidateRecord(raw)
	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	for _, field := range []string{"time", "phoneNumber", "email"} {
		if !fe.Has(field) {
			t.Fatalf("expected %s flagged, got %v", field, fe)
		}
	}
}
