package leaserenew

import "context"

// Browser is a live automation session bound to a single page target.
type Browser interface {
	// ID returns the DevTools target ID of the page.
	ID() string
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	// Windows returns the number of open page targets.
	Windows(ctx context.Context) (int, error)
	// Elements returns every element currently matching a CSS selector. No
	// match is not an error.
	Elements(ctx context.Context, selector string) ([]Element, error)
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Element is a handle to a DOM element returned by Browser.Elements.
type Element interface {
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	SendKeys(ctx context.Context, text string) error
	ScrollIntoView(ctx context.Context) error
	// Click dispatches a real mouse click at the element's center.
	Click(ctx context.Context) error
	// ScriptClick calls the element's click() from page script.
	ScriptClick(ctx context.Context) error
}

// Launcher starts a new Browser.
type Launcher func(ctx context.Context) (Browser, error)
