package leaserenew

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Authenticator logs a Session into the dashboard.
type Authenticator struct {
	LoginURL string
	Username string
	Password string
	Locators Locators
	// OnCaptcha is called when a CAPTCHA is found on the login page, before
	// the wait for a human to solve it.
	OnCaptcha func(b Browser)
	Metrics   *Metrics

	timings timings
}

// NewAuthenticator returns an Authenticator with the default locators and waits.
func NewAuthenticator(loginURL, username, password string) *Authenticator {
	return &Authenticator{
		LoginURL: loginURL,
		Username: username,
		Password: password,
		Locators: DefaultLocators(),
		timings:  defaultTimings,
	}
}

// Login signs in unless s is already authenticated. Errors match ErrLoginFailed
// and leave s unauthenticated.
func (a *Authenticator) Login(ctx context.Context, s *Session) error {
	if s.Authenticated() {
		return nil
	}
	err := a.login(ctx, s)
	a.Metrics.observeLogin(err)
	if err != nil {
		log.Printf("Error logging in: %s", err)
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	s.markAuthenticated()
	return nil
}

func (a *Authenticator) login(ctx context.Context, s *Session) error {
	b, err := s.Acquire(ctx)
	if err != nil {
		return err
	}

	log.Printf("Navigating to login page %s", a.LoginURL)
	if err := navigate(ctx, b, a.LoginURL, a.timings.navigate); err != nil {
		return fmt.Errorf("navigating to login page: %w", err)
	}
	if err := sleep(ctx, a.timings.loginSettle); err != nil {
		return err
	}

	_, _, err = Selectors(Any, a.Locators.LoginForm...).First(ctx, b, a.timings.formWait, a.timings.poll)
	switch {
	case errors.Is(err, ErrElementNotFound):
		log.Print("Login form container not found, continuing anyway")
	case err != nil:
		return err
	}

	username, err := a.field(ctx, b, "username", a.Locators.Username)
	if err != nil {
		return err
	}
	password, err := a.field(ctx, b, "password", a.Locators.Password)
	if err != nil {
		return err
	}
	if err := username.SendKeys(ctx, a.Username); err != nil {
		return fmt.Errorf("entering username: %w", err)
	}
	if err := password.SendKeys(ctx, a.Password); err != nil {
		return fmt.Errorf("entering password: %w", err)
	}

	if err := a.awaitCaptcha(ctx, b); err != nil {
		return err
	}

	submit, err := a.submitControl(ctx, b)
	if err != nil {
		return err
	}
	if err := click(ctx, submit, "login button"); err != nil {
		return err
	}

	log.Print("Waiting for login to complete")
	landed, err := a.awaitLanding(ctx, b)
	if err != nil {
		return err
	}
	if !landed {
		location, _ := b.Location(ctx)
		log.Printf("Login wait completed without reaching the dashboard, current URL %s", location)
		if err := sleep(ctx, a.timings.landingGrace); err != nil {
			return err
		}
	}
	log.Print("Logged in")
	return nil
}

// field locates a login form input, waiting on each strategy in turn
func (a *Authenticator) field(ctx context.Context, b Browser, name string, selectors []string) (Element, error) {
	el, s, err := Selectors(Clickable, selectors...).First(ctx, b, a.timings.fieldWait, a.timings.poll)
	if err != nil {
		return nil, fmt.Errorf("%s field: %w", name, err)
	}
	log.Printf("Found %s field with %s", name, s.Name)
	return el, nil
}

// awaitCaptcha gives a human the CAPTCHA wait window if the page shows one.
// The CAPTCHA is not checked again afterwards.
func (a *Authenticator) awaitCaptcha(ctx context.Context, b Browser) error {
	_, _, err := Selectors(Any, a.Locators.Captcha...).First(ctx, b, 0, a.timings.poll)
	if errors.Is(err, ErrElementNotFound) {
		log.Print("No CAPTCHA detected")
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("CAPTCHA detected, waiting %s for it to be solved", a.timings.captchaWait)
	if a.OnCaptcha != nil {
		a.OnCaptcha(b)
	}
	return sleep(ctx, a.timings.captchaWait)
}

// submitControl finds the login button, falling back to the first button on the page
func (a *Authenticator) submitControl(ctx context.Context, b Browser) (Element, error) {
	el, s, err := Selectors(Clickable, a.Locators.Submit...).First(ctx, b, a.timings.fieldWait, a.timings.poll)
	if err == nil {
		log.Printf("Found login button with %s", s.Name)
		return el, nil
	}
	if !errors.Is(err, ErrElementNotFound) {
		return nil, err
	}

	buttons, err := b.Elements(ctx, "button")
	if err != nil {
		return nil, err
	}
	log.Printf("No login button matched, found %d buttons:", len(buttons))
	for i, btn := range buttons {
		log.Printf("  %d: %s", i, describe(ctx, btn, "type", "class"))
	}
	if len(buttons) == 0 {
		return nil, fmt.Errorf("login button: %w", ErrElementNotFound)
	}
	log.Print("Using first button as login button")
	return buttons[0], nil
}

// awaitLanding polls for signs of a logged in page, reporting false on timeout
func (a *Authenticator) awaitLanding(ctx context.Context, b Browser) (bool, error) {
	ticker := time.NewTicker(a.timings.poll)
	defer ticker.Stop()
	timeout := time.NewTimer(a.timings.landingWait)
	defer timeout.Stop()

	for {
		if landed(ctx, b) {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timeout.C:
			return false, nil
		case <-ticker.C:
		}
	}
}

func landed(ctx context.Context, b Browser) bool {
	if location, err := b.Location(ctx); err == nil {
		if strings.Contains(location, "/dashboard") || strings.Contains(location, "servers") {
			return true
		}
	}
	if title, err := b.Title(ctx); err == nil {
		title = strings.ToLower(title)
		if strings.Contains(title, "dashboard") || strings.Contains(title, "panel") {
			return true
		}
	}
	windows, err := b.Windows(ctx)
	return err == nil && windows == 0
}

// navigate loads url, bounded by timeout
func navigate(ctx context.Context, b Browser, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return b.Navigate(ctx, url)
}

// click tries a mouse click, then a script click
func click(ctx context.Context, el Element, what string) error {
	err := el.Click(ctx)
	if err == nil {
		log.Printf("Clicked %s", what)
		return nil
	}
	log.Printf("Error clicking %s: %s, retrying from script", what, err)
	if err := el.ScriptClick(ctx); err != nil {
		return fmt.Errorf("clicking %s: %w", what, err)
	}
	log.Printf("Clicked %s from script", what)
	return nil
}

// describe renders an element's text and attributes for diagnostics
func describe(ctx context.Context, el Element, attrs ...string) string {
	text, _ := el.Text(ctx)
	var sb strings.Builder
	fmt.Fprintf(&sb, "text=%q", text)
	for _, name := range attrs {
		value, _ := el.Attribute(ctx, name)
		fmt.Fprintf(&sb, " %s=%q", name, value)
	}
	return sb.String()
}
