// Package notify decides whether a verified carrier gets an outreach email,
// renders the message, and hands delivery to a Notifier.
package notify

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/sells-group/safer-cli/internal/model"
)

// Notifier delivers one message. Implementations must not retry.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NameToken is the placeholder replaced with the carrier's display name.
const NameToken = "{{customer_name}}"

// legalSuffixRe matches trailing legal-entity designators, including
// combinations like ", LLC." or "CO INC".
var legalSuffixRe = regexp.MustCompile(`(?i)(?:[\s,]+(?:L\.?L\.?C\.?|INC\.?|INCORPORATED|CORP\.?|CORPORATION|CO\.?|COMPANY|LTD\.?|LIMITED|L\.?P\.?|P\.?C\.?))+\s*$`)

// DisplayName strips legal-entity suffixes from a legal name.
func DisplayName(legalName string) string {
	name := strings.TrimSpace(legalName)
	stripped := strings.TrimSpace(legalSuffixRe.ReplaceAllString(name, ""))
	stripped = strings.TrimRight(stripped, ", ")
	if stripped == "" {
		return name
	}
	return stripped
}

// outsideBMP removes runes the webmail editor cannot accept.
var outsideBMP = runes.Remove(runes.Predicate(func(r rune) bool { return r > 0xFFFF }))

// StripNonBMP drops every character outside the basic multilingual plane.
func StripNonBMP(s string) string {
	out, _, err := transform.String(outsideBMP, s)
	if err != nil {
		return s
	}
	return out
}

// Render substitutes the display name into the template and returns the
// recipient-independent subject and body.
func Render(record model.CarrierRecord, tmpl Template) (subject, body string) {
	name := DisplayName(record.LegalName)
	// A missing legal name falls back to a generic greeting.
	if record.LegalName == model.Unavailable {
		name = "there"
	}
	body = strings.ReplaceAll(tmpl.Body, NameToken, name)
	subject = strings.ReplaceAll(tmpl.Subject, NameToken, name)
	return strings.TrimSpace(StripNonBMP(subject)), strings.TrimSpace(StripNonBMP(body))
}

// MaybeNotify sends the outreach email for record when it carries a usable
// address. It never retries and never returns an error: delivery failures
// become SendFailed.
func MaybeNotify(ctx context.Context, record model.CarrierRecord, tmpl Template, n Notifier) model.FollowupStatus {
	if !record.HasEmail() || n == nil {
		return model.FollowupNotAttempted
	}

	subject, body := Render(record, tmpl)
	log := zap.L().With(zap.String("stage", "notify"), zap.String("to", record.Email))

	if err := n.Send(ctx, record.Email, subject, body); err != nil {
		log.Warn("notify: send failed", zap.Error(err))
		return model.FollowupSendFailed
	}
	log.Info("notify: email sent")
	return model.FollowupEmailSent
}

// Trigger binds a template and notifier so the pipeline can call it per
// record.
type Trigger struct {
	Template Template
	Notifier Notifier
}

// Notify runs MaybeNotify with the bound template and notifier. A nil
// Trigger never notifies.
func (t *Trigger) Notify(ctx context.Context, record model.CarrierRecord) model.FollowupStatus {
	if t == nil {
		return model.FollowupNotAttempted
	}
	return MaybeNotify(ctx, record, t.Template, t.Notifier)
}

// Redirect wraps a Notifier so every message goes to a fixed recipient,
// for dry runs against a test inbox.
func Redirect(n Notifier, to string) Notifier {
	if to == "" {
		return n
	}
	return redirect{next: n, to: to}
}

type redirect struct {
	next Notifier
	to   string
}

func (r redirect) Send(ctx context.Context, original, subject, body string) error {
	zap.L().Debug("notify: redirecting recipient",
		zap.String("original", original),
		zap.String("to", r.to),
	)
	return r.next.Send(ctx, r.to, subject, body)
}
