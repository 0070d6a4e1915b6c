// Package verify classifies a registry lookup into one of the closed set of
// outcomes.
package verify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/safer-cli/internal/model"
)

// Marker is a page element whose mere presence decides the outcome.
type Marker string

const (
	MarkerNotFound Marker = "Record Not Found"
	MarkerInactive Marker = "Record Inactive"
)

// Field is a labeled value on the company snapshot.
type Field string

const (
	FieldEntityType         Field = "Entity Type:"
	FieldRegistrationStatus Field = "USDOT Status:"
	FieldAuthorityStatus    Field = "Operating Authority Status:"
)

// Expected values for an eligible carrier.
const (
	EntityTypeCarrier       = "CARRIER"
	RegistrationActive      = "ACTIVE"
	PropertyAuthorityMarker = "AUTHORIZED FOR Property"
)

// StageFieldRead is the session-failure stage used when a labeled field
// never appeared.
const StageFieldRead = "field-read"

// Surface is the read side of a lookup session. Both methods apply their own
// bounded wait; absence is a normal, fast negative.
type Surface interface {
	HasMarker(ctx context.Context, m Marker) bool
	ReadField(ctx context.Context, f Field) (string, bool)
}

// Classifier inspects the post-lookup page.
type Classifier struct{}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier { return &Classifier{} }

// Classify returns the outcome for the page currently shown by s. Negative
// markers are checked first: when one is present the labeled fields never
// appear, so probing them would only burn three wait budgets.
func (c *Classifier) Classify(ctx context.Context, s Surface) model.Outcome {
	log := zap.L().With(zap.String("stage", "verify"))

	if s.HasMarker(ctx, MarkerNotFound) {
		log.Info("verify: record not found")
		return model.NotFound()
	}
	if s.HasMarker(ctx, MarkerInactive) {
		log.Info("verify: record inactive")
		return model.Inactive()
	}

	entityType, ok := s.ReadField(ctx, FieldEntityType)
	if !ok {
		return fieldMissing(log, FieldEntityType)
	}
	if entityType != EntityTypeCarrier {
		log.Info("verify: entity type mismatch", zap.String("entity_type", entityType))
		return model.VerificationMismatch(model.ReasonEntityType)
	}

	status, ok := s.ReadField(ctx, FieldRegistrationStatus)
	if !ok {
		return fieldMissing(log, FieldRegistrationStatus)
	}
	if status != RegistrationActive {
		log.Info("verify: usdot status mismatch", zap.String("usdot_status", status))
		return model.VerificationMismatch(model.ReasonRegistrationStatus)
	}

	authority, ok := s.ReadField(ctx, FieldAuthorityStatus)
	if !ok {
		return fieldMissing(log, FieldAuthorityStatus)
	}
	if !strings.Contains(authority, PropertyAuthorityMarker) {
		log.Info("verify: operating authority mismatch", zap.String("authority_status", authority))
		return model.VerificationMismatch(model.ReasonAuthorityStatus)
	}

	log.Info("verify: carrier verified")
	return model.Verified()
}

func fieldMissing(log *zap.Logger, f Field) model.Outcome {
	name := strings.TrimSuffix(string(f), ":")
	log.Warn("verify: field not readable", zap.String("field", name))
	return model.SessionFailure(StageFieldRead, name)
}
