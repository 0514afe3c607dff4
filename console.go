package leaserenew

import (
	"context"
	_ "embed"
	"fmt"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
	"log"
	"net"
	"net/url"
	"time"
)

// consoleHTML is the screencast page used to solve CAPTCHAs in the headless browser
//
//go:embed console.html
var consoleHTML string

var shutdownTimeout = 15 * time.Second

// Console serves a remote view of the session's browser, so a human can solve
// a CAPTCHA in a headless Chrome, along with the bot's status and metrics.
type Console struct {
	addr      string
	debugAddr string
	session   *Session
	app       *fiber.App
}

// NewConsole builds the console for s. debugAddr is Chrome's remote debugging
// address; m may be nil.
func NewConsole(addr, debugAddr string, s *Session, m *Metrics) *Console {
	c := &Console{addr: addr, debugAddr: debugAddr, session: s}
	c.app = fiber.New(fiber.Config{
		ReduceMemoryUsage:     true,
		DisableStartupMessage: true,
	})

	c.app.Get("/", c.index)
	c.app.Get("/status", c.status)
	if m != nil {
		c.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}
	c.app.Use("/ws", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	c.app.Get("/ws/:id", websocket.New(c.proxy))
	return c
}

// URL returns the console link for the current browser target.
func (c *Console) URL() string {
	host, port, err := splitDebugAddr(c.addr)
	if err != nil {
		return c.addr
	}
	u := "http://" + net.JoinHostPort(host, port) + "/"
	if id, ok := c.session.TargetID(); ok {
		u += "?id=" + url.QueryEscape(id)
	}
	return u
}

// NotifyCaptcha is an Authenticator.OnCaptcha hook logging the console link.
func (c *Console) NotifyCaptcha(Browser) {
	log.Printf("CAPTCHA detected, please solve it here: %s", c.URL())
}

// Run serves until ctx is done, then shuts down gracefully.
func (c *Console) Run(ctx context.Context) error {
	errs := make(chan error, 1)
	go func() {
		errs <- c.app.Listen(c.addr)
	}()
	log.Printf("Console listening on %s", c.addr)

	select {
	case err := <-errs:
		return fmt.Errorf("console: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error shutting down console: %s", err)
	}
	return nil
}

func (c *Console) index(ctx *fiber.Ctx) error {
	if ctx.Query("id") == "" {
		if id, ok := c.session.TargetID(); ok {
			return ctx.Redirect("/?id=" + url.QueryEscape(id))
		}
	}
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.SendString(consoleHTML)
}

type consoleStatus struct {
	Authenticated bool   `json:"authenticated"`
	Target        string `json:"target,omitempty"`
}

func (c *Console) status(ctx *fiber.Ctx) error {
	id, _ := c.session.TargetID()
	return ctx.JSON(consoleStatus{Authenticated: c.session.Authenticated(), Target: id})
}

func (c *Console) proxy(conn *websocket.Conn) {
	upstream, err := dialDevtools(c.debugAddr, conn.Params("id"))
	if err != nil {
		log.Printf("Error starting websocket proxy: %s", err)
		return
	}
	relay(conn, upstream)
}
