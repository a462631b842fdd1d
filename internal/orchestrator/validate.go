package orchestrator

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

var validate = validator.New()

// validateReading runs the required-field checks spec.md 3 mandates
// explicitly, then layers validator's range checks for the optional
// numeric fields on top (SPEC_FULL.md 4.7 additions). Both error
// classes collapse into the same flat details list the ValidationFailure
// envelope carries.
func validateReading(r types.SensorReading) []string {
	details := r.Validate()

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details = append(details, fe.Field()+" out of allowed range")
			}
		}
	}
	return details
}
