package leaserenew

import (
	"context"
	"fmt"
	chromedpundetected "github.com/Davincible/chromedp-undetected"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"log"
	"net"
	"strconv"
)

// ChromeOptions configures the Chrome instance started by ChromeLauncher.
type ChromeOptions struct {
	// DebugAddr is the host:port Chrome exposes remote debugging on, which the
	// CAPTCHA console relays to. The host defaults to 127.0.0.1.
	DebugAddr string
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
	// Extra options are appended after the defaults.
	Extra []chromedp.ExecAllocatorOption
	// Undetected launches through chromedp-undetected instead of a plain
	// headless allocator, for login pages that block automated browsers.
	Undetected bool
}

// splitDebugAddr splits up the debugging address, defaulting host to 127.0.0.1 if not specified
func splitDebugAddr(addr string) (string, string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", "", err
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return host, port, nil
}

// allocatorOptions returns the fixed headless configuration plus any custom options
func (o ChromeOptions) allocatorOptions() ([]chromedp.ExecAllocatorOption, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
	)
	if o.DebugAddr != "" {
		host, port, err := splitDebugAddr(o.DebugAddr)
		if err != nil {
			return nil, fmt.Errorf("invalid debug address %q: %w", o.DebugAddr, err)
		}
		opts = append(opts,
			chromedp.Flag("remote-debugging-address", host),
			chromedp.Flag("remote-debugging-port", port),
		)
	}
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	return append(opts, o.Extra...), nil
}

// undetectedConfig builds the chromedp-undetected launch configuration. It runs
// a headful Chrome inside an Xvfb frame buffer, which Linux hosts must provide.
func (o ChromeOptions) undetectedConfig() (chromedpundetected.Config, error) {
	flags := []chromedp.ExecAllocatorOption{chromedp.Flag("disable-extensions", true)}
	opts := []chromedpundetected.Option{chromedpundetected.WithHeadless()}
	if o.DebugAddr != "" {
		host, port, err := splitDebugAddr(o.DebugAddr)
		if err != nil {
			return chromedpundetected.Config{}, fmt.Errorf("invalid debug address %q: %w", o.DebugAddr, err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return chromedpundetected.Config{}, fmt.Errorf("invalid debug port %q: %w", port, err)
		}
		flags = append(flags, chromedp.Flag("remote-debugging-address", host))
		opts = append(opts, chromedpundetected.WithPort(p))
	}
	if o.ExecPath != "" {
		flags = append(flags, chromedp.ExecPath(o.ExecPath))
	}
	opts = append(opts, chromedpundetected.WithChromeFlags(append(flags, o.Extra...)...))

	c := chromedpundetected.NewConfig(opts...)
	c.ContextOptions = []chromedp.ContextOption{chromedp.WithErrorf(log.Printf)}
	return c, nil
}

// newContext roots a new browser in its own context, since the browser
// outlives the cycle that created it. The returned cancel kills the process.
func (o ChromeOptions) newContext() (context.Context, context.CancelFunc, error) {
	if o.Undetected {
		config, err := o.undetectedConfig()
		if err != nil {
			return nil, nil, err
		}
		return chromedpundetected.New(config)
	}

	opts, err := o.allocatorOptions()
	if err != nil {
		return nil, nil, err
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(log.Printf))
	return browserCtx, func() {
		browserCancel()
		allocCancel()
	}, nil
}

// ChromeLauncher returns a Launcher that starts a local Chrome, headless by
// default or through chromedp-undetected when o.Undetected is set.
func ChromeLauncher(o ChromeOptions) Launcher {
	return func(ctx context.Context) (Browser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		browserCtx, cancel, err := o.newContext()
		if err != nil {
			return nil, err
		}

		// an empty run starts the browser and opens the first tab; chromedp ties
		// the process to the context of this first run, so it is browserCtx itself
		if err := chromedp.Run(browserCtx); err != nil {
			cancel()
			return nil, err
		}
		return &chromeBrowser{
			ctx:    browserCtx,
			cancel: cancel,
			id:     string(chromedp.FromContext(browserCtx).Target.TargetID),
		}, nil
	}
}

// chromeBrowser drives the single tab of a chromedp browser
type chromeBrowser struct {
	ctx    context.Context
	cancel context.CancelFunc
	id     string
}

// run executes actions on the browser's tab, aborting when either ctx or the browser is done
func (b *chromeBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// ID returns the page target ID of the browser tab
func (b *chromeBrowser) ID() string {
	return b.id
}

// Navigate loads url in the tab and waits for it to load
func (b *chromeBrowser) Navigate(ctx context.Context, url string) error {
	return b.run(ctx, chromedp.Navigate(url))
}

// Location returns the current URL of the tab
func (b *chromeBrowser) Location(ctx context.Context) (string, error) {
	var url string
	err := b.run(ctx, chromedp.Location(&url))
	return url, err
}

// Title returns the current document title
func (b *chromeBrowser) Title(ctx context.Context) (string, error) {
	var title string
	err := b.run(ctx, chromedp.Title(&title))
	return title, err
}

// Windows counts the open page targets
func (b *chromeBrowser) Windows(ctx context.Context) (int, error) {
	var count int
	err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		infos, err := chromedp.Targets(ctx)
		if err != nil {
			return err
		}
		for _, info := range infos {
			if info.Type == "page" {
				count++
			}
		}
		return nil
	}))
	return count, err
}

// Elements returns every node currently matching selector, possibly none
func (b *chromeBrowser) Elements(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := b.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	elements := make([]Element, len(nodes))
	for i, n := range nodes {
		elements[i] = &chromeElement{browser: b, node: n}
	}
	return elements, nil
}

// HTML returns the outer HTML of the document
func (b *chromeBrowser) HTML(ctx context.Context) (string, error) {
	var html string
	err := b.run(ctx, chromedp.Evaluate(`document.documentElement.outerHTML`, &html))
	return html, err
}

// Close closes the browser gracefully, then kills the process if needed
func (b *chromeBrowser) Close() error {
	defer b.cancel()
	return chromedp.Cancel(b.ctx)
}

// chromeElement is a DOM node handle of a chromeBrowser tab
type chromeElement struct {
	browser *chromeBrowser
	node    *cdp.Node
}

// call runs a function declaration with the element bound to this
func (e *chromeElement) call(ctx context.Context, function string, res any, args ...any) error {
	return e.browser.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		// fails if the page has navigated away, which is fine
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		return chromedp.CallFunctionOn(function, res,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			},
			args...,
		).Do(ctx)
	}))
}

// Text returns the trimmed rendered text of the element
func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.call(ctx, `function() { return (this.innerText || this.textContent || '').trim(); }`, &text)
	return text, err
}

// Attribute returns an attribute value, empty if unset
func (e *chromeElement) Attribute(ctx context.Context, name string) (string, error) {
	var value string
	err := e.call(ctx, `function(name) { return this.getAttribute(name) || ''; }`, &value, name)
	return value, err
}

// Visible reports whether the element has a box and is not hidden by style
func (e *chromeElement) Visible(ctx context.Context) (bool, error) {
	var visible bool
	err := e.call(ctx, `function() {
		if (!(this.offsetWidth || this.offsetHeight || this.getClientRects().length)) {
			return false;
		}
		const style = window.getComputedStyle(this);
		return style.visibility !== 'hidden' && style.display !== 'none';
	}`, &visible)
	return visible, err
}

// Enabled reports whether the element is not disabled
func (e *chromeElement) Enabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := e.call(ctx, `function() { return !this.disabled; }`, &enabled)
	return enabled, err
}

// SendKeys types text into the element
func (e *chromeElement) SendKeys(ctx context.Context, text string) error {
	return e.browser.run(ctx, chromedp.SendKeys([]cdp.NodeID{e.node.NodeID}, text, chromedp.ByNodeID))
}

// ScrollIntoView scrolls the element to the top of the viewport
func (e *chromeElement) ScrollIntoView(ctx context.Context) error {
	return e.call(ctx, `function() { this.scrollIntoView(true); }`, nil)
}

// Click dispatches a mouse click at the centre of the element
func (e *chromeElement) Click(ctx context.Context) error {
	return e.browser.run(ctx, chromedp.MouseClickNode(e.node))
}

// ScriptClick calls the element's click() from JavaScript
func (e *chromeElement) ScriptClick(ctx context.Context) error {
	return e.call(ctx, `function() { this.click(); }`, nil)
}
