// Package session drives the lookup against the SAFER company snapshot.
//
// A Session is a single owned remote resource: one browser tab whose
// implicit state (current page, open popups) belongs to exactly one caller at
// a time. Every interactive step is bounded by a randomized wait budget so a
// stuck page degrades into ready=false or a failed field read instead of
// hanging the sweep.
package session

import (
	"context"

	"github.com/sells-group/safer-cli/internal/verify"
)

// Session is the lookup adapter used by the item pipeline.
type Session interface {
	verify.Surface

	// Submit places the session on the result page for id. ready is false
	// when the search form never became interactable within its budget; err
	// is reserved for failures the caller cannot classify, such as losing
	// the browser transport.
	Submit(ctx context.Context, id int) (ready bool, err error)

	// FetchDetailText navigates from a verified result to the carrier
	// registration detail view and returns its visible text.
	FetchDetailText(ctx context.Context) (string, error)

	Close() error
}
