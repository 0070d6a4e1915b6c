// Package pipeline processes one MC/MX identifier end to end: submit the
// search, classify the result page, extract the carrier record and trigger
// the outreach notification.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/safer-cli/internal/extract"
	"github.com/sells-group/safer-cli/internal/model"
	"github.com/sells-group/safer-cli/internal/notify"
	"github.com/sells-group/safer-cli/internal/session"
	"github.com/sells-group/safer-cli/internal/verify"
)

// ReasonSearchNotFound is the failure log reason when the search form never
// became interactable.
const ReasonSearchNotFound = "Company search not found"

// StageSubmit labels session failures raised before classification.
const StageSubmit = "submit"

// Pipeline runs the per-identifier stages against one shared session. It
// never writes to the ledger; the caller persists the returned ItemResult.
type Pipeline struct {
	session    session.Session
	classifier *verify.Classifier
	trigger    *notify.Trigger
}

// New creates a Pipeline. A nil trigger disables notifications.
func New(s session.Session, classifier *verify.Classifier, trigger *notify.Trigger) *Pipeline {
	if classifier == nil {
		classifier = verify.NewClassifier()
	}
	return &Pipeline{session: s, classifier: classifier, trigger: trigger}
}

// Process runs the stages for id. An error is returned only for failures
// the session could not classify; everything else is reported as data in
// the result.
func (p *Pipeline) Process(ctx context.Context, id int) (model.ItemResult, error) {
	log := zap.L().With(zap.Int("mc_mx", id))
	res := model.ItemResult{Identifier: id}

	ready, err := p.session.Submit(ctx, id)
	if err != nil {
		return res, eris.Wrapf(err, "pipeline: submit %d", id)
	}
	if !ready {
		res.Outcome = model.SessionFailure(StageSubmit, ReasonSearchNotFound)
		res.Failure = &model.FailureEntry{Identifier: id, Reason: ReasonSearchNotFound}
		log.Warn("pipeline: search form not ready", zap.String("stage", StageSubmit))
		return res, nil
	}

	res.Outcome = p.classifier.Classify(ctx, p.session)
	log = log.With(zap.String("outcome", res.Outcome.String()))

	switch res.Outcome.Kind {
	case model.OutcomeVerified:
	case model.OutcomeSessionFailure:
		res.Failure = &model.FailureEntry{
			Identifier: id,
			Reason:     res.Outcome.Stage + ": " + res.Outcome.Reason,
		}
		log.Warn("pipeline: result page unreadable")
		return res, nil
	default:
		log.Info("pipeline: skipped, verification failed", zap.String("reason", res.Outcome.Reason))
		return res, nil
	}

	record := p.fetchRecord(ctx, log)
	followup := p.trigger.Notify(ctx, record)

	res.Row = &model.LedgerRow{Identifier: id, Record: record, Followup: followup}
	log.Info("pipeline: carrier extracted",
		zap.Int("fields_found", record.FieldsFound()),
		zap.String("followup", string(followup)),
	)
	return res, nil
}

// fetchRecord reads the registration detail view. A view that cannot be
// reached yields the all-unavailable record.
func (p *Pipeline) fetchRecord(ctx context.Context, log *zap.Logger) model.CarrierRecord {
	text, err := p.session.FetchDetailText(ctx)
	if err != nil {
		log.Warn("pipeline: detail view unreachable", zap.String("stage", "extract"), zap.Error(err))
		return extract.Unreachable()
	}
	return extract.Extract(text)
}
