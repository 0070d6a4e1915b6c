package notify

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Roundcube element IDs used by the hosted webmail.
const (
	rcLoginUser    = "#rcmloginuser"
	rcLoginPass    = "#rcmloginpwd"
	rcLoginSubmit  = "#rcmloginsubmit"
	rcMailboxReady = "#rcmbtn101"
	rcRecipient    = `//input[@type='text' and @role='combobox']`
	rcSubject      = "#compose-subject"
	rcBodyFrame    = "#composebody_ifr"
	rcBodyEditor   = "#tinymce"
	rcSendButton   = "#rcmbtn110"
)

// WebmailOptions configures the Roundcube notifier.
type WebmailOptions struct {
	LoginURL   string
	ComposeURL string
	Username   string
	Password   string
	// StepTimeout bounds each login/compose step.
	StepTimeout time.Duration
}

// WebmailNotifier sends mail by driving a Roundcube web UI in its own tab of
// the sweep's browser. The lookup tab is never touched.
type WebmailNotifier struct {
	browser *rod.Browser
	opts    WebmailOptions
}

// NewWebmailNotifier creates a WebmailNotifier on browser.
func NewWebmailNotifier(browser *rod.Browser, opts WebmailOptions) *WebmailNotifier {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 10 * time.Second
	}
	return &WebmailNotifier{browser: browser, opts: opts}
}

// Send logs in when the login form is shown, composes, and clicks send.
func (w *WebmailNotifier) Send(ctx context.Context, to, subject, body string) error {
	page, err := w.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return eris.Wrap(err, "webmail: open tab")
	}
	defer func() { _ = page.Close() }()

	if err := w.login(ctx, page); err != nil {
		return err
	}

	if err := w.step(ctx, page, "compose", func(p *rod.Page) error {
		if err := p.Navigate(w.opts.ComposeURL); err != nil {
			return err
		}
		_, err := p.ElementX(rcRecipient)
		return err
	}); err != nil {
		return err
	}

	return w.step(ctx, page, "fill and send", func(p *rod.Page) error {
		recipient, err := p.ElementX(rcRecipient)
		if err != nil {
			return err
		}
		if err := recipient.Input(to); err != nil {
			return err
		}
		subj, err := p.Element(rcSubject)
		if err != nil {
			return err
		}
		if err := subj.Input(subject); err != nil {
			return err
		}
		frameEl, err := p.Element(rcBodyFrame)
		if err != nil {
			return err
		}
		frame, err := frameEl.Frame()
		if err != nil {
			return err
		}
		editor, err := frame.Element(rcBodyEditor)
		if err != nil {
			return err
		}
		if err := editor.Input(body); err != nil {
			return err
		}
		send, err := p.Element(rcSendButton)
		if err != nil {
			return err
		}
		return send.Click(proto.InputMouseButtonLeft, 1)
	})
}

func (w *WebmailNotifier) login(ctx context.Context, page *rod.Page) error {
	if err := page.Context(ctx).Navigate(w.opts.LoginURL); err != nil {
		return eris.Wrapf(err, "webmail: navigate to %s", w.opts.LoginURL)
	}

	// The login form is absent when the browser profile already holds a
	// session cookie.
	err := w.step(ctx, page, "login", func(p *rod.Page) error {
		user, err := p.Element(rcLoginUser)
		if err != nil {
			return err
		}
		if err := user.Input(w.opts.Username); err != nil {
			return err
		}
		pass, err := p.Element(rcLoginPass)
		if err != nil {
			return err
		}
		if err := pass.Input(w.opts.Password); err != nil {
			return err
		}
		submit, err := p.Element(rcLoginSubmit)
		if err != nil {
			return err
		}
		return submit.Click(proto.InputMouseButtonLeft, 1)
	})
	if err != nil {
		zap.L().Debug("webmail: login form not shown", zap.Error(err))
	}

	return w.step(ctx, page, "mailbox ready", func(p *rod.Page) error {
		_, err := p.Element(rcMailboxReady)
		return err
	})
}

func (w *WebmailNotifier) step(ctx context.Context, page *rod.Page, name string, fn func(p *rod.Page) error) error {
	p := page.Context(ctx).Timeout(w.opts.StepTimeout)
	defer p.CancelTimeout()
	if err := fn(p); err != nil {
		return eris.Wrapf(err, "webmail: %s", name)
	}
	return nil
}
