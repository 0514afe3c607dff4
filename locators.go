package leaserenew

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
)

// Locators holds the selector lists tried, in order, against the dashboard.
type Locators struct {
	LoginForm []string `yaml:"login_form"`
	Username  []string `yaml:"username"`
	Password  []string `yaml:"password"`
	Captcha   []string `yaml:"captcha"`
	Submit    []string `yaml:"submit"`
	Renew     []string `yaml:"renew"`
}

// DefaultLocators returns the selectors known to match the mcserverhost.com dashboard.
func DefaultLocators() Locators {
	return Locators{
		LoginForm: []string{"form, .login-form, #login-form"},
		Username: []string{
			"#auth-username",
			"#auth-email",
			"input[name='username']",
			"input[type='email']",
			"input#username",
			"input.form-control",
		},
		Password: []string{
			"#auth-password",
			"input[name='password']",
			"input[type='password']",
			"input#password",
			"input.form-control[type='password']",
		},
		Captcha: []string{".g-recaptcha, [id*='captcha'], [class*='captcha']"},
		Submit: []string{
			"button[type='submit']",
			"input[type='submit']",
			".btn-login",
			"#login-button",
			"button.btn-primary",
			"button.btn",
		},
		Renew: []string{
			"button[title*='Renew']",
			"button[data-action='renew']",
			"[data-action='renew']",
			"button.btn-renew",
			"a[title*='Renew']",
			".renew-button",
			// renew buttons are usually green or primary
			".btn-success",
			".btn-primary",
		},
	}
}

// LoadLocators reads a YAML document of selector lists. Lists present in the
// file replace the defaults; omitted or empty lists keep them.
func LoadLocators(path string) (Locators, error) {
	l := DefaultLocators()
	if path == "" {
		return l, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return l, err
	}
	var override Locators
	if err := yaml.Unmarshal(data, &override); err != nil {
		return l, fmt.Errorf("parsing %s: %w", path, err)
	}
	overlay(&l.LoginForm, override.LoginForm)
	overlay(&l.Username, override.Username)
	overlay(&l.Password, override.Password)
	overlay(&l.Captcha, override.Captcha)
	overlay(&l.Submit, override.Submit)
	overlay(&l.Renew, override.Renew)
	return l, nil
}

func overlay(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}
