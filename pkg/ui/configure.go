package ui

import (
	"errors"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/jiraview/pkg/config"
)

// tokenPage is where the Kerberos auth plugin hands out API tokens.
const tokenPage = "/plugins/servlet/no.kantega.kerberosauth.kerberosauth-plugin/user/api-tokens"

// TokenHint tells the user where to create an access token.
func TokenHint(baseURL string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return "A Jira access token can be generated in your Jira profile."
	}
	return "A Jira access token can be generated at " + baseURL + tokenPage
}

// ConfigureForm builds the form behind "jv configure". Answers are written
// into cfg; its current values are the defaults.
func ConfigureForm(cfg *config.Config) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Jira base url").
				Placeholder("https://jira.example.com").
				Value(&cfg.JiraBaseURL).
				Validate(validateBaseURL),
			huh.NewInput().
				Title("Server cert path").
				Description("Optional PEM bundle trusted in addition to the system roots.").
				Value(&cfg.CertPath).
				Validate(validateCertPath),
			huh.NewInput().
				Title("Jira user").
				Value(&cfg.User).
				Validate(required("user")),
			huh.NewInput().
				Title("Jira token").
				DescriptionFunc(func() string { return TokenHint(cfg.JiraBaseURL) }, &cfg.JiraBaseURL).
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Token),
			huh.NewInput().
				Title("Default dashboard jql").
				Description("Optional.").
				Placeholder(config.DefaultJQL).
				Value(&cfg.Board.Filter.JQL),
		),
	)
}

func validateBaseURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("enter an http(s) URL")
	}
	return nil
}

func validateCertPath(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := os.Stat(config.Config{CertPath: s}.ResolvedCertPath()); err != nil {
		return errors.New("file not found")
	}
	return nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(name + " is required")
		}
		return nil
	}
}
