package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is the dotted config
// path (e.g. "db.driver"); Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// knownDrivers lists the warehouse backends compiled into the binaries.
var knownDrivers = map[string]struct{}{
	"postgres": {},
	"sqlite":   {},
	"mssql":    {},
	"mysql":    {},
}

// Validate performs static validation of c. It does not mutate c.
func Validate(c Config) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(c.Datasets) == "" {
		add(SeverityError, "datasets", "datasets location must not be empty")
	}
	if c.ReadWorkers <= 0 {
		add(SeverityError, "read_workers", "read_workers must be > 0 (got %d)", c.ReadWorkers)
	}
	if c.BatchSize <= 0 {
		add(SeverityError, "batch_size", "batch_size must be > 0 (got %d)", c.BatchSize)
	} else if c.BatchSize > 100000 {
		add(SeverityWarning, "batch_size", "batch_size %d is large; each batch is one transaction", c.BatchSize)
	}

	issues = append(issues, validateDB(c.DB)...)
	issues = append(issues, validateMetrics(c.Metrics)...)

	for name, file := range c.Files {
		if strings.TrimSpace(file) == "" {
			add(SeverityError, "files."+name, "file override must not be empty")
		}
	}
	return issues
}

func validateDB(db DBConfig) []Issue {
	var issues []Issue

	if _, ok := knownDrivers[db.Driver]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "db.driver",
			Message:  fmt.Sprintf("unsupported driver %q; want postgres, sqlite, mssql or mysql", db.Driver),
		})
		return issues
	}

	if db.ConnString() == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "db.dsn",
			Message:  fmt.Sprintf("driver %s requires a full DSN", db.Driver),
		})
	}
	if db.Driver == "postgres" && db.DSN == "" && db.Password == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "db.password",
			Message:  "no password configured; relying on trust auth or .pgpass",
		})
	}
	if db.Driver != "sqlite" && strings.TrimSpace(db.Schema) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "db.schema",
			Message:  "empty schema; tables resolve against the connection default",
		})
	}
	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if m.PushgatewayURL == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "pushgateway backend requires a URL"})
		}
	case "datadog":
		if m.DatadogAddr == "" {
			issues = append(issues, Issue{SeverityError, "metrics.datadog_addr", "datadog backend requires an address"})
		}
	default:
		issues = append(issues, Issue{SeverityWarning, "metrics.backend", fmt.Sprintf("unknown backend %q; metrics disabled", m.Backend)})
	}
	if strings.TrimSpace(m.Job) == "" {
		issues = append(issues, Issue{SeverityError, "metrics.job", "job must not be empty; it labels metrics and identifies runs"})
	}
	return issues
}
