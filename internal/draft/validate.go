package draft

import (
	"go.uber.org/multierr"

	"github.com/otabekov/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/otabekov/orderdesk-backend/pkg/errors"
)

// Rule is one declarative submit-time validation: a field, a predicate over
// the whole draft, and the message shown next to the field when it fails.
type Rule struct {
	Field   string
	Message string
	Valid   func(d Draft) bool
}

// Rules is the full declarative rule set evaluated before submission.
func Rules() []Rule {
	return []Rule{
		{
			Field:   FieldPhone,
			Message: "Phone is required",
			Valid:   func(d Draft) bool { return d.Phone != "" },
		},
		{
			Field:   FieldFilial,
			Message: "Filial selection is required",
			Valid: func(d Draft) bool {
				if d.DeliveryMethod != enums.DeliveryMethodPickup {
					return true
				}
				return d.FilialID != ""
			},
		},
		{
			Field:   FieldLocation,
			Message: "Delivery location is required",
			Valid: func(d Draft) bool {
				if d.DeliveryMethod != enums.DeliveryMethodDeliver {
					return true
				}
				return d.Location.Valid()
			},
		},
		{
			// Required for every delivery method, delivery orders included.
			Field:   FieldPhoneNumber,
			Message: "Phone number selection is required",
			Valid:   func(d Draft) bool { return d.PhoneNumberID != "" },
		},
		{
			Field:   FieldItems,
			Message: "At least one item is required",
			Valid:   func(d Draft) bool { return len(d.Items) > 0 },
		},
	}
}

// Validate evaluates every rule and returns a validation error carrying the
// per-field messages, or nil when the draft is submittable.
func Validate(d Draft) error {
	var combined error
	details := map[string]string{}

	for _, rule := range Rules() {
		if rule.Valid(d) {
			continue
		}
		details[rule.Field] = rule.Message
		combined = multierr.Append(combined, pkgerrors.New(pkgerrors.CodeValidation, rule.Message))
	}

	if combined == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, combined, "draft is not submittable").WithDetails(details)
}
