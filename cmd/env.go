package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/safer-cli/internal/config"
	"github.com/sells-group/safer-cli/internal/notify"
	"github.com/sells-group/safer-cli/internal/resilience"
	"github.com/sells-group/safer-cli/internal/session"
	"github.com/sells-group/safer-cli/internal/store"
)

// initStore opens the optional run journal. It returns a nil Store when no
// driver is configured.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// requireStore is initStore for commands that only read the journal.
func requireStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("no run journal configured (set store.driver to sqlite or postgres)")
	}
	return st, nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// sessionOptions maps the session config onto the browser session.
func sessionOptions(c *config.Config) session.RodOptions {
	launch := resilience.DefaultRetryConfig()
	launch.MaxAttempts = c.Session.LaunchAttempts
	launch.OnRetry = resilience.RetryLogger("browser launch")

	return session.RodOptions{
		SearchURL:   c.Session.SearchURL,
		Headless:    c.Session.Headless,
		BrowserBin:  c.Session.BrowserBin,
		Wait:        resilience.NewWaitPolicy(c.Session.WaitMinMs, c.Session.WaitMaxMs),
		SubmitWait:  resilience.NewWaitPolicy(c.Session.SubmitWaitMinMs, c.Session.SubmitWaitMaxMs),
		PopupSettle: ms(c.Session.PopupSettleMs),
		Launch:      launch,
	}
}

// initPacing builds the inter-item pacer and the session-failure cooldown.
func initPacing(c *config.Config) (*resilience.Pacer, *resilience.Cooldown) {
	pacer := resilience.NewPacer(ms(c.Pacing.IntervalMs), c.Pacing.JitterFraction, c.Pacing.MaxPerMinute)
	cooldown := resilience.NewCooldown(c.Pacing.CooldownThreshold, time.Duration(c.Pacing.CooldownSecs)*time.Second)
	return pacer, cooldown
}

// initNotifier builds the notification trigger, or nil when notifications
// are disabled. The webmail channel drives its own tab of the sweep browser.
func initNotifier(c *config.Config, browser *session.Rod) (*notify.Trigger, error) {
	if !c.Notify.Enabled {
		return nil, nil
	}

	tmpl, err := notify.LoadTemplate(c.Notify.TemplatePath)
	if err != nil {
		return nil, eris.Wrap(err, "init notifier")
	}

	var n notify.Notifier
	switch c.Notify.Channel {
	case config.ChannelWebmail:
		if browser == nil {
			return nil, eris.New("init notifier: webmail channel needs a browser session")
		}
		n = notify.NewWebmailNotifier(browser.Browser(), notify.WebmailOptions{
			LoginURL:    c.Notify.Webmail.LoginURL,
			ComposeURL:  c.Notify.Webmail.ComposeURL,
			Username:    c.Notify.Webmail.Username,
			Password:    c.Notify.Webmail.Password,
			StepTimeout: ms(c.Session.SubmitWaitMaxMs),
		})
	case config.ChannelWebhook:
		n = notify.NewWebhookNotifier(c.Notify.Webhook.URL, tmpl.Sender, time.Duration(c.Notify.Webhook.TimeoutSecs)*time.Second)
	default:
		return nil, eris.Errorf("init notifier: unsupported channel %q", c.Notify.Channel)
	}

	return &notify.Trigger{
		Template: tmpl,
		Notifier: notify.Redirect(n, c.Notify.OverrideRecipient),
	}, nil
}
