package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the application-level settings, registered alongside the
// go-core log, metrics, tracing and ops http configs.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	DatabaseURL           string
	TaxonomyPath          string
	Timezone              string
	SlackAPIURL           string
	TriggerOnStart        bool

	// Bootstrap seeds one workspace credential at startup, for single-team
	// installs that have no install flow.
	BootstrapWorkspaceID string
	BootstrapBotToken    string
	BootstrapBotID       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "comma-separated bearer tokens accepted by the API (empty = API unauthenticated)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for workspace credentials (empty = in-memory store)")
	fs.StringVar(&c.TaxonomyPath, "taxonomy-path", "", "path to the triage taxonomy YAML (empty = built-in default)")
	fs.StringVar(&c.Timezone, "timezone", "UTC", "IANA timezone scheduled job expressions are evaluated in")
	fs.StringVar(&c.SlackAPIURL, "slack-api-url", "", "override the Slack Web API base URL, must end with / (empty = slack.com)")
	fs.BoolVar(&c.TriggerOnStart, "trigger-on-start", false, "run every scheduled job once at startup")
	fs.StringVar(&c.BootstrapWorkspaceID, "bootstrap-workspace-id", "", "workspace ID to register at startup")
	fs.StringVar(&c.BootstrapBotToken, "bootstrap-bot-token", "", "bot token for the bootstrap workspace")
	fs.StringVar(&c.BootstrapBotID, "bootstrap-bot-id", "", "bot ID for the bootstrap workspace, used to skip the bot's own messages")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.DatabaseURL != "" {
		u, err := url.Parse(c.DatabaseURL)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errs = append(errs, errors.New("DATABASE_URL must be a postgres:// or postgresql:// URL"))
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
	}

	if c.SlackAPIURL != "" {
		u, err := url.Parse(c.SlackAPIURL)
		switch {
		case err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "":
			errs = append(errs, fmt.Errorf("invalid SLACK_API_URL %q (must be an http(s) URL)", c.SlackAPIURL))
		case !strings.HasSuffix(c.SlackAPIURL, "/"):
			errs = append(errs, fmt.Errorf("SLACK_API_URL %q must end with /", c.SlackAPIURL))
		}
	}

	// Bootstrap workspace needs both halves
	if (c.BootstrapWorkspaceID == "") != (c.BootstrapBotToken == "") {
		errs = append(errs, errors.New("BOOTSTRAP_WORKSPACE_ID and BOOTSTRAP_BOT_TOKEN must be set together"))
	}
	if c.BootstrapBotID != "" && c.BootstrapWorkspaceID == "" {
		errs = append(errs, errors.New("BOOTSTRAP_BOT_ID requires BOOTSTRAP_WORKSPACE_ID"))
	}
	if c.BootstrapBotToken != "" && c.BootstrapBotID == "" {
		errs = append(errs, errors.New("BOOTSTRAP_BOT_ID is required with BOOTSTRAP_BOT_TOKEN"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
