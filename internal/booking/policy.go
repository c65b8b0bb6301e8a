package booking

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/wolfman30/muvance-crm/internal/leads"
)

// PhonePolicy selects the phone number rule.
type PhonePolicy string

const (
	PhoneElevenDigits PhonePolicy = "eleven-digits"
	PhoneBDMobile     PhonePolicy = "bd-mobile"
)

var (
	elevenDigitsRe = regexp.MustCompile(`^\d{11}$`)
	bdMobileRe     = regexp.MustCompile(`^01\d{9}$`)
	emailRe        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	websiteRe      = regexp.MustCompile(`^(https?://)?([\w-]+\.)+[\w-]{2,}(/\S*)?$`)
)

// Policy is the set of form rules for a booking.
type Policy struct {
	Phone          PhonePolicy
	RequireWebsite bool
}

// DefaultPolicy is the public widget rule set.
func DefaultPolicy() Policy {
	return Policy{Phone: PhoneElevenDigits}
}

// StrictPolicy requires a local mobile number and a website.
func StrictPolicy() Policy {
	return Policy{Phone: PhoneBDMobile, RequireWebsite: true}
}

// ParsePhonePolicy resolves a configured name.
func ParsePhonePolicy(name string) (PhonePolicy, error) {
	switch p := PhonePolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case "", PhoneElevenDigits:
		return PhoneElevenDigits, nil
	case PhoneBDMobile:
		return PhoneBDMobile, nil
	default:
		return "", fmt.Errorf("booking: unknown phone policy %q", name)
	}
}

// ValidPhone applies the phone rule.
func (p Policy) ValidPhone(phone string) bool {
	if p.Phone == PhoneBDMobile {
		return bdMobileRe.MatchString(phone)
	}
	return elevenDigitsRe.MatchString(phone)
}

// Validate checks every field and reports all failures together. It returns
// nil when the contact is valid.
func (p Policy) Validate(c leads.Contact) error {
	c = c.Normalize()
	var errs FieldErrors
	if c.FullName == "" {
		errs = append(errs, FieldError{Field: "fullName", Message: "Full name is required."})
	}
	if !p.ValidPhone(c.PhoneNumber) {
		msg := "Please enter a valid 11-digit phone number."
		if p.Phone == PhoneBDMobile {
			msg = "Please enter a valid phone number starting with 01."
		}
		errs = append(errs, FieldError{Field: "phoneNumber", Message: msg})
	}
	if !emailRe.MatchString(c.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "Please enter a valid email address."})
	}
	if p.RequireWebsite && !websiteRe.MatchString(c.WebsiteLink) {
		errs = append(errs, FieldError{Field: "websiteLink", Message: "Please enter a valid website URL."})
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateRecord is the server-side check for a create request. Email is
// optional there since operators may add leads without one, but a supplied
// email must be well formed.
func (p Policy) ValidateRecord(raw leads.RawAppointment) error {
	var errs FieldErrors
	if strings.TrimSpace(raw.Date) == "" {
		errs = append(errs, FieldError{Field: "date", Message: "Date is required."})
	}
	if strings.TrimSpace(raw.Time) == "" {
		errs = append(errs, FieldError{Field: "time", Message: "Time is required."})
	}
	c := leads.Contact{
		FullName:    raw.FullName,
		PhoneNumber: raw.PhoneNumber,
		Email:       raw.Email,
		WebsiteLink: raw.WebsiteLink,
	}
	if err := p.Validate(c); err != nil {
		var fieldErrs FieldErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if fe.Field == "email" && strings.TrimSpace(raw.Email) == "" {
					continue
				}
				errs = append(errs, fe)
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
