package leaserenew

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"
)

// fastTimings shrinks every wait so tests exercise the same code paths quickly
var fastTimings = timings{
	poll:         time.Millisecond,
	navigate:     time.Second,
	loginSettle:  time.Millisecond,
	formWait:     5 * time.Millisecond,
	fieldWait:    5 * time.Millisecond,
	captchaWait:  50 * time.Millisecond,
	landingWait:  20 * time.Millisecond,
	landingGrace: time.Millisecond,
	serverSettle: time.Millisecond,
	scrollPause:  time.Millisecond,
	confirm:      time.Millisecond,
}

var errBoom = errors.New("boom")

type fakeElement struct {
	text     string
	attrs    map[string]string
	hidden   bool
	disabled bool

	clickErr       error
	scriptClickErr error
	onClick        func()

	mutex        sync.Mutex
	keys         string
	clicks       int
	scriptClicks int
	scrolls      int
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, nil }

func (e *fakeElement) Attribute(_ context.Context, name string) (string, error) {
	return e.attrs[name], nil
}

func (e *fakeElement) Visible(context.Context) (bool, error) { return !e.hidden, nil }
func (e *fakeElement) Enabled(context.Context) (bool, error) { return !e.disabled, nil }

func (e *fakeElement) SendKeys(_ context.Context, text string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.keys += text
	return nil
}

func (e *fakeElement) ScrollIntoView(context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.scrolls++
	return nil
}

func (e *fakeElement) Click(context.Context) error {
	e.mutex.Lock()
	e.clicks++
	e.mutex.Unlock()
	if e.clickErr != nil {
		return e.clickErr
	}
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) ScriptClick(context.Context) error {
	e.mutex.Lock()
	e.scriptClicks++
	e.mutex.Unlock()
	if e.scriptClickErr != nil {
		return e.scriptClickErr
	}
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

// totalClicks counts click attempts of either kind
func (e *fakeElement) totalClicks() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.clicks + e.scriptClicks
}

// fakePage is the DOM of one URL, keyed by selector
type fakePage struct {
	title    string
	html     string
	elements map[string][]*fakeElement
}

type fakeBrowser struct {
	mutex    sync.Mutex
	pages    map[string]*fakePage
	location string
	windows  int
	navErrs  map[string][]error
	navs     []string
	queries  []string
	closeErr error
	closed   int
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		pages:   map[string]*fakePage{},
		windows: 1,
		navErrs: map[string][]error{},
	}
}

// page returns the DOM of url, creating it if needed
func (b *fakeBrowser) page(url string) *fakePage {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	p, ok := b.pages[url]
	if !ok {
		p = &fakePage{elements: map[string][]*fakeElement{}}
		b.pages[url] = p
	}
	return p
}

func (b *fakeBrowser) add(url, selector string, elements ...*fakeElement) {
	p := b.page(url)
	b.mutex.Lock()
	defer b.mutex.Unlock()
	p.elements[selector] = append(p.elements[selector], elements...)
}

// failNavigation queues errors returned by successive navigations to url
func (b *fakeBrowser) failNavigation(url string, errs ...error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.navErrs[url] = append(b.navErrs[url], errs...)
}

func (b *fakeBrowser) goTo(url string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.location = url
}

func (b *fakeBrowser) navigations(url string) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	n := 0
	for _, u := range b.navs {
		if u == url {
			n++
		}
	}
	return n
}

func (b *fakeBrowser) queried() []string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]string(nil), b.queries...)
}

func (b *fakeBrowser) ID() string { return "fake-target" }

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.navs = append(b.navs, url)
	if errs := b.navErrs[url]; len(errs) > 0 {
		b.navErrs[url] = errs[1:]
		return errs[0]
	}
	b.location = url
	return ctx.Err()
}

func (b *fakeBrowser) Location(context.Context) (string, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.location, nil
}

func (b *fakeBrowser) Title(context.Context) (string, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if p, ok := b.pages[b.location]; ok {
		return p.title, nil
	}
	return "", nil
}

func (b *fakeBrowser) Windows(context.Context) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.windows, nil
}

func (b *fakeBrowser) Elements(_ context.Context, selector string) ([]Element, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.queries = append(b.queries, selector)
	p, ok := b.pages[b.location]
	if !ok {
		return nil, nil
	}
	var out []Element
	for _, el := range p.elements[selector] {
		out = append(out, el)
	}
	return out, nil
}

func (b *fakeBrowser) HTML(context.Context) (string, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if p, ok := b.pages[b.location]; ok {
		return p.html, nil
	}
	return "", nil
}

func (b *fakeBrowser) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.closed++
	return b.closeErr
}

// fakeLauncher hands out b and counts launches
type fakeLauncher struct {
	mutex    sync.Mutex
	browser  *fakeBrowser
	err      error
	launches int
}

func (l *fakeLauncher) launch(context.Context) (Browser, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}

const (
	testLoginURL  = "https://dash.example/login"
	testLandedURL = "https://dash.example/dashboard"
	testServerURL = "https://dash.example/servers/abc/dashboard"
)

// loginPage populates a login form whose submit button lands on the dashboard
func loginPage(b *fakeBrowser) (username, password, submit *fakeElement) {
	username = &fakeElement{}
	password = &fakeElement{}
	submit = &fakeElement{text: "Sign in", onClick: func() { b.goTo(testLandedURL) }}
	b.page(testLoginURL).title = "Login"
	b.add(testLoginURL, "form, .login-form, #login-form", &fakeElement{})
	b.add(testLoginURL, "#auth-username", username)
	b.add(testLoginURL, "#auth-password", password)
	b.add(testLoginURL, "button[type='submit']", submit)
	return username, password, submit
}

func newTestAuthenticator() *Authenticator {
	a := NewAuthenticator(testLoginURL, "user@example.com", "hunter2")
	a.timings = fastTimings
	return a
}

func newTestRenewer(a *Authenticator) *Renewer {
	r := NewRenewer(testServerURL, a)
	r.timings = fastTimings
	return r
}

// captureLog sends the standard logger to a buffer, without prefixes, until the test ends
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	out, flags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(out)
		log.SetFlags(flags)
	})
	return &buf
}
