package lead

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrEmailRequired = errors.New("email is required")
	ErrEmailInvalid  = errors.New("email address is not valid")
)

// Submission is the transient contact-capture payload built when the
// lead form is submitted. It is discarded once the request resolves.
type Submission struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	IntentID *int   `json:"intent_id,omitempty"`
}

// Validate checks the submission locally before any network call. Only
// the email is required; it must parse as an address.
func (s Submission) Validate() error {
	email := strings.TrimSpace(s.Email)
	if email == "" {
		return ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrEmailInvalid
	}
	return nil
}
