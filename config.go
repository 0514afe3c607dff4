package leaserenew

import (
	"errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"io/fs"
	"os"
	"strconv"
)

// Config is the runtime configuration of the renewal bot.
type Config struct {
	Username      string
	Password      string
	ServerURL     string
	LoginURL      string
	ChromeAddr    string
	ChromePath    string
	Undetected    bool
	ConsoleAddr   string
	LocatorsFile  string
	FallbackClick bool
	EnvFile       string
}

// fallback values used when neither the environment nor a flag sets one
const (
	defaultUsername  = "changeme@example.com"
	defaultPassword  = "changeme"
	defaultServerURL = "https://www.mcserverhost.com/servers/00000000/dashboard"
	defaultLoginURL  = "https://www.mcserverhost.com/login"
)

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

// LoadConfig loads the env file named by --env-file (default .env) if it
// exists, without overriding variables already set, then parses args.
// Flags take precedence over the environment.
func LoadConfig(args []string) (Config, error) {
	var c Config

	pre := pflag.NewFlagSet("leaserenew", pflag.ContinueOnError)
	pre.ParseErrorsAllowlist.UnknownFlags = true
	pre.Usage = func() {}
	pre.StringVar(&c.EnvFile, "env-file", ".env", "")
	_ = pre.Parse(args)

	if err := godotenv.Load(c.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return c, err
	}

	flags := pflag.NewFlagSet("leaserenew", pflag.ContinueOnError)
	flags.StringVar(&c.EnvFile, "env-file", ".env", "File of KEY=value lines loaded into the environment")
	flags.StringVar(&c.Username, "username", env("USERNAME", defaultUsername), "Dashboard account email or username [USERNAME]")
	flags.StringVar(&c.Password, "password", env("PASSWORD", defaultPassword), "Dashboard account password [PASSWORD]")
	flags.StringVar(&c.ServerURL, "server-url", env("SERVER_URL", defaultServerURL), "Dashboard page of the server to renew [SERVER_URL]")
	flags.StringVar(&c.LoginURL, "login-url", env("LOGIN_URL", defaultLoginURL), "Dashboard login page [LOGIN_URL]")
	flags.StringVar(&c.ChromeAddr, "chrome-debug-addr", env("CHROME_DEBUG_ADDR", ":9222"), "Chrome remote debugging address [CHROME_DEBUG_ADDR]")
	flags.StringVar(&c.ChromePath, "chrome-path", env("CHROME_PATH", ""), "Chrome binary, looked up if empty [CHROME_PATH]")
	flags.BoolVar(&c.Undetected, "chrome-undetected", envBool("CHROME_UNDETECTED", false), "Launch Chrome through chromedp-undetected inside Xvfb [CHROME_UNDETECTED]")
	flags.StringVar(&c.ConsoleAddr, "console-addr", env("CONSOLE_ADDR", "127.0.0.1:9221"), "CAPTCHA console listen address, empty to disable [CONSOLE_ADDR]")
	flags.StringVar(&c.LocatorsFile, "locators", env("LOCATORS_FILE", ""), "YAML file overriding the element selectors [LOCATORS_FILE]")
	flags.BoolVar(&c.FallbackClick, "fallback-click", envBool("RENEW_FALLBACK_CLICK", true), "Click the first visible button when no renew button is recognised [RENEW_FALLBACK_CLICK]")
	if err := flags.Parse(args); err != nil {
		return c, err
	}
	return c, nil
}
