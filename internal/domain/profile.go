package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Profile is a user record as read from the profile store. It is never written back.
type Profile struct {
	ID            string `json:"id,omitempty"`
	Email         string `json:"email" validate:"required"`
	DisplayName   string `json:"displayName,omitempty"`
	Home          string `json:"home" validate:"required"`
	Work          string `json:"work" validate:"required"`
	DepartureTime string `json:"departureTime" validate:"required"`
}

var profileValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate returns an error wrapping ErrIncompleteProfile that names every
// missing required field, or nil when the profile is eligible.
func (p Profile) Validate() error {
	err := profileValidator.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrIncompleteProfile, err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return fmt.Errorf("%w: missing %s", ErrIncompleteProfile, strings.Join(missing, ", "))
}

// Eligible reports whether all required fields are present.
func (p Profile) Eligible() bool {
	return p.Validate() == nil
}

// Key identifies the profile in logs and results. Falls back to the email
// when the store has no document ID.
func (p Profile) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Email
}
