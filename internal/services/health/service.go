package health

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const checkTimeout = 2 * time.Second

// Check is one named dependency probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Report is the health payload.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	checks []Check
}

// NewService constructs a new health service.
func NewService(checks ...Check) *Service {
	return &Service{checks: checks}
}

// Add registers another check.
func (s *Service) Add(c Check) {
	s.checks = append(s.checks, c)
}

// Status runs every check with a bounded wait and reports "ok" or the error text.
func (s *Service) Status(ctx context.Context) Report {
	report := Report{OK: true}
	if len(s.checks) == 0 {
		return report
	}
	report.Checks = make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Probe(checkCtx)
		cancel()
		if err != nil {
			report.OK = false
			report.Checks[c.Name] = err.Error()
			continue
		}
		report.Checks[c.Name] = "ok"
	}
	return report
}

// Database pings a SQL pool.
func Database(db *sql.DB) Check {
	return Check{Name: "database", Probe: db.PingContext}
}

// Redis pings a Redis client.
func Redis(client goredis.UniversalClient) Check {
	return Check{Name: "redis", Probe: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

// Broker reports whether a message broker connection is still open.
func Broker(conn interface{ Connected() bool }) Check {
	return Check{Name: "broker", Probe: func(ctx context.Context) error {
		if !conn.Connected() {
			return errors.New("connection closed")
		}
		return nil
	}}
}
