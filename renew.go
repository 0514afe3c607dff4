package leaserenew

import (
	"context"
	"errors"
	"fmt"
	"log"
	"unicode/utf8"
)

// pageExcerpt bounds the page source logged when no renew control is found.
const pageExcerpt = 5000

// Renewer clicks the renew control on a server's dashboard page.
type Renewer struct {
	ServerURL string
	Auth      *Authenticator
	Locators  Locators
	// FallbackClick enables clicking the first visible, enabled button when no
	// renew control is recognised. This may click an unrelated control.
	FallbackClick bool

	timings timings
}

// NewRenewer returns a Renewer with the default locators and waits and the
// first-button fallback enabled.
func NewRenewer(serverURL string, auth *Authenticator) *Renewer {
	return &Renewer{
		ServerURL:     serverURL,
		Auth:          auth,
		Locators:      DefaultLocators(),
		FallbackClick: true,
		timings:       defaultTimings,
	}
}

// renewCascade is the ordered search for a renew control, without the last resort fallback
func (r *Renewer) renewCascade() Cascade {
	c := Selectors(Clickable, r.Locators.Renew...)
	return append(c,
		Strategy{Name: "button text", Selector: "button", Match: VisibleWithText("renew")},
		Strategy{Name: "link text", Selector: "a", Match: VisibleWithText("renew")},
	)
}

var fallbackCascade = Cascade{{Name: "first visible button", Selector: "button", Match: Clickable}}

// RenewOnce logs in if needed and clicks the renew control once. Success
// means a plausible control was clicked; the renewal itself is not verified.
// Errors match ErrRenewalFailed.
func (r *Renewer) RenewOnce(ctx context.Context, s *Session) error {
	if err := r.renewOnce(ctx, s); err != nil {
		return fmt.Errorf("%w: %w", ErrRenewalFailed, err)
	}
	return nil
}

func (r *Renewer) renewOnce(ctx context.Context, s *Session) error {
	b, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		if err := r.Auth.Login(ctx, s); err != nil {
			return err
		}
	}

	if err := r.openDashboard(ctx, b); err != nil {
		log.Printf("Error navigating to server dashboard: %s", err)
		s.Invalidate(err)
		if err := r.Auth.Login(ctx, s); err != nil {
			return err
		}
		if err := r.openDashboard(ctx, b); err != nil {
			return fmt.Errorf("navigating to server dashboard after login: %w", err)
		}
	}

	log.Print("Looking for renew button")
	button, err := r.find(ctx, b)
	if err != nil {
		if html, herr := b.HTML(ctx); herr == nil {
			log.Printf("Page source preview: %s", truncate(html, pageExcerpt))
		}
		s.Invalidate(err)
		return fmt.Errorf("renew button: %w", err)
	}

	if err := button.ScrollIntoView(ctx); err != nil {
		log.Printf("Error scrolling to renew button: %s", err)
	}
	if err := sleep(ctx, r.timings.scrollPause); err != nil {
		return err
	}
	if err := click(ctx, button, "renew button"); err != nil {
		s.Invalidate(err)
		return err
	}

	log.Print("Waiting for confirmation")
	if err := sleep(ctx, r.timings.confirm); err != nil {
		return err
	}
	log.Print("Server renewal completed")
	return nil
}

func (r *Renewer) openDashboard(ctx context.Context, b Browser) error {
	log.Printf("Navigating to server dashboard %s", r.ServerURL)
	if err := navigate(ctx, b, r.ServerURL, r.timings.navigate); err != nil {
		return err
	}
	if err := sleep(ctx, r.timings.serverSettle); err != nil {
		return err
	}
	location, _ := b.Location(ctx)
	title, _ := b.Title(ctx)
	log.Printf("Dashboard loaded, URL %s, title %q", location, title)
	return nil
}

// find runs the renew cascade, then lists the page's controls and applies the fallback
func (r *Renewer) find(ctx context.Context, b Browser) (Element, error) {
	el, s, err := r.renewCascade().First(ctx, b, 0, r.timings.poll)
	if err == nil {
		log.Printf("Found renew button with %s", s.Name)
		return el, nil
	}
	if !errors.Is(err, ErrElementNotFound) {
		return nil, err
	}

	r.logControls(ctx, b)
	if !r.FallbackClick {
		return nil, err
	}
	el, _, err = fallbackCascade.First(ctx, b, 0, r.timings.poll)
	if err != nil {
		return nil, err
	}
	log.Printf("Using first visible button as renew button: %s", describe(ctx, el))
	return el, nil
}

// logControls prints the visible buttons and links to help update the locators
func (r *Renewer) logControls(ctx context.Context, b Browser) {
	log.Print("No renew button matched, visible controls:")
	buttons, _ := b.Elements(ctx, "button")
	for i, btn := range buttons {
		if visible, _ := btn.Visible(ctx); visible {
			log.Printf("  button %d: %s", i, describe(ctx, btn, "class", "title"))
		}
	}
	links, _ := b.Elements(ctx, "a")
	for i, link := range links {
		visible, _ := link.Visible(ctx)
		text, _ := link.Text(ctx)
		if visible && text != "" {
			log.Printf("  link %d: %s", i, describe(ctx, link, "class", "href"))
		}
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
