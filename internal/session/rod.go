package session

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/safer-cli/internal/resilience"
	"github.com/sells-group/safer-cli/internal/verify"
)

// RodOptions configures the Chromium-backed session.
type RodOptions struct {
	SearchURL   string
	Headless    bool
	BrowserBin  string
	Wait        resilience.WaitPolicy // per presence check / click
	SubmitWait  resilience.WaitPolicy // search form steps
	PopupSettle time.Duration
	Launch      resilience.RetryConfig
}

// Rod is a Session backed by a single Chromium tab driven over the devtools
// protocol.
type Rod struct {
	opts     RodOptions
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

var _ Session = (*Rod)(nil)

// OpenRod launches a browser and opens the search page. Launch failures are
// retried according to opts.Launch; a failure after that is process-fatal.
func OpenRod(ctx context.Context, opts RodOptions) (*Rod, error) {
	r := &Rod{opts: opts}

	err := resilience.Do(ctx, opts.Launch, func(ctx context.Context) error {
		return r.launch(ctx)
	})
	if err != nil {
		return nil, eris.Wrap(err, "session: open browser")
	}

	zap.L().Info("session: browser ready",
		zap.String("search_url", opts.SearchURL),
		zap.Bool("headless", opts.Headless),
	)
	return r, nil
}

func (r *Rod) launch(ctx context.Context) error {
	l := launcher.New().Context(ctx).Headless(r.opts.Headless)
	if r.opts.BrowserBin != "" {
		l = l.Bin(r.opts.BrowserBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "session: launch chromium"))
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return resilience.NewTransientError(eris.Wrap(err, "session: connect devtools"))
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Cleanup()
		return resilience.NewTransientError(eris.Wrap(err, "session: create page"))
	}

	r.launcher = l
	r.browser = browser
	r.page = page
	return nil
}

// Browser exposes the underlying browser so collaborators that need their
// own tab (the webmail notifier) share the same process.
func (r *Rod) Browser() *rod.Browser {
	return r.browser
}

// Submit navigates to the search page, selects MC/MX, enters id and presses
// Search.
func (r *Rod) Submit(ctx context.Context, id int) (bool, error) {
	log := zap.L().With(zap.Int("mc_mx", id), zap.String("stage", "submit"))

	if err := r.page.Context(ctx).Navigate(r.opts.SearchURL); err != nil {
		return false, eris.Wrapf(err, "session: navigate to %s", r.opts.SearchURL)
	}

	steps := []struct {
		name string
		do   func(p *rod.Page) error
	}{
		{"mc/mx radio", func(p *rod.Page) error {
			el, err := p.ElementX(xpathMCMXRadio)
			if err != nil {
				return err
			}
			if err := el.ScrollIntoView(); err != nil {
				return err
			}
			return el.Click(proto.InputMouseButtonLeft, 1)
		}},
		{"search box", func(p *rod.Page) error {
			el, err := p.ElementX(xpathQueryString)
			if err != nil {
				return err
			}
			if err := el.SelectAllText(); err != nil {
				return err
			}
			return el.Input(strconv.Itoa(id))
		}},
		{"search button", func(p *rod.Page) error {
			el, err := p.ElementX(xpathSearchButton)
			if err != nil {
				return err
			}
			if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
				return err
			}
			return p.WaitLoad()
		}},
	}

	for _, step := range steps {
		if err := r.bounded(ctx, r.opts.SubmitWait, step.do); err != nil {
			if ctx.Err() != nil {
				return false, eris.Wrap(ctx.Err(), "session: submit cancelled")
			}
			log.Warn("session: search step not interactable",
				zap.String("step", step.name),
				zap.Error(err),
			)
			return false, nil
		}
	}
	return true, nil
}

// HasMarker reports whether the italic marker m appears within one wait
// budget.
func (r *Rod) HasMarker(ctx context.Context, m verify.Marker) bool {
	err := r.bounded(ctx, r.opts.Wait, func(p *rod.Page) error {
		_, err := p.ElementX(markerXPath(m))
		return err
	})
	return err == nil
}

// ReadField returns the trimmed cell next to the labeled header.
func (r *Rod) ReadField(ctx context.Context, f verify.Field) (string, bool) {
	var text string
	err := r.bounded(ctx, r.opts.Wait, func(p *rod.Page) error {
		el, err := p.ElementX(fieldXPath(f))
		if err != nil {
			return err
		}
		text, err = el.Text()
		return err
	})
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(text), true
}

// FetchDetailText follows SMS Results -> Carrier Registration Details, reads
// the popup body and closes the popup.
func (r *Rod) FetchDetailText(ctx context.Context) (string, error) {
	err := r.bounded(ctx, r.opts.Wait, func(p *rod.Page) error {
		el, err := p.ElementR("a", exactText(linkSMSResults))
		if err != nil {
			return err
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		return p.WaitLoad()
	})
	if err != nil {
		return "", eris.Wrap(err, "session: open sms results")
	}

	var popup *rod.Page
	err = r.bounded(ctx, r.opts.Wait, func(p *rod.Page) error {
		el, err := p.ElementR("a", exactText(linkRegistrationDetails))
		if err != nil {
			return err
		}
		if err := el.ScrollIntoView(); err != nil {
			return err
		}
		if err := el.Hover(); err != nil {
			return err
		}
		wait := p.WaitOpen()
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		popup, err = wait()
		return err
	})
	if err != nil {
		return "", eris.Wrap(err, "session: open registration details")
	}
	defer func() { _ = popup.Close() }()

	if err := resilience.Sleep(ctx, r.opts.PopupSettle); err != nil {
		return "", eris.Wrap(err, "session: wait for popup")
	}

	var text string
	budget := r.opts.Wait.Budget()
	pp := popup.Context(ctx).Timeout(budget)
	defer pp.CancelTimeout()
	if err := pp.WaitLoad(); err != nil {
		return "", eris.Wrap(err, "session: load popup")
	}
	body, err := pp.Element("body")
	if err != nil {
		return "", eris.Wrap(err, "session: popup body")
	}
	if text, err = body.Text(); err != nil {
		return "", eris.Wrap(err, "session: popup text")
	}
	return text, nil
}

// bounded runs fn against the tab with a fresh randomized timeout.
func (r *Rod) bounded(ctx context.Context, w resilience.WaitPolicy, fn func(p *rod.Page) error) error {
	p := r.page.Context(ctx).Timeout(w.Budget())
	defer p.CancelTimeout()
	return fn(p)
}

// Close tears down the tab, the browser and the launcher's profile dir.
func (r *Rod) Close() error {
	var firstErr error
	if r.page != nil {
		_ = r.page.Close()
	}
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			firstErr = eris.Wrap(err, "session: close browser")
		}
	}
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher.Cleanup()
	}
	zap.L().Info("session: browser closed")
	return firstErr
}
