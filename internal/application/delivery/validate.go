package delivery

import (
	"fmt"
	"strings"

	"github.com/notify-dapp/internal/domain"
	"github.com/notify-dapp/internal/pkg/validate"
)

// ValidationError is a user-correctable draft defect. Message is the status
// line, Info the hint shown next to the form.
type ValidationError struct {
	Message string
	Info    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Info)
}

func (e *ValidationError) Unwrap() error { return domain.ErrValidation }

const incorrectPayload = "Incorrect Payload"

// Validate reports the first violated rule, checked in order: notification
// type, subset recipient count, subject, media, call to action, body, then the
// format of a manually entered recipient.
func Validate(d *domain.Draft) error {
	if !d.Type.Valid() {
		return &ValidationError{Message: incorrectPayload, Info: "Select the type of notification to send"}
	}
	if d.Type == domain.TypeSubset && d.Recipients.Len() == 0 {
		return &ValidationError{
			Message: "Please enter at least one recipient in order to use subset notifications type",
			Info:    "Subset notifications need at least one recipient",
		}
	}
	if d.SubjectEnabled && isEmpty(d.Subject) {
		return &ValidationError{Message: incorrectPayload, Info: "Enter Subject or Disable it"}
	}
	if d.MediaEnabled && isEmpty(d.Media) {
		return &ValidationError{Message: incorrectPayload, Info: "Enter Media URL or Disable it"}
	}
	if d.CTAEnabled && isEmpty(d.CTA) {
		return &ValidationError{Message: incorrectPayload, Info: "Enter Call to Action Link or Disable it"}
	}
	if isEmpty(d.Body) {
		return &ValidationError{Message: incorrectPayload, Info: "Message cannot be empty"}
	}
	if d.Type.NeedsRecipient() && d.Recipient != "" && !validate.Address(d.Recipient) {
		return &ValidationError{Message: incorrectPayload, Info: "Enter a valid recipient wallet address"}
	}
	return nil
}

func isEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
