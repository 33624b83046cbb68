package health

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dishcovery/backend/internal/models"
)

// Service status values persisted to the system_health table.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

const checkTimeout = 5 * time.Second

// Check probes one dependency.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Report is the outcome of one full health sweep.
type Report struct {
	Overall  string
	Services map[string]string
}

// Checker probes all registered dependencies concurrently and records each
// outcome. A single failing dependency degrades the overall status; it does
// not abort the remaining probes.
type Checker struct {
	checks []Check
	repo   models.SystemHealthRepository
	logger *logrus.Logger
}

func NewChecker(repo models.SystemHealthRepository, logger *logrus.Logger, checks ...Check) *Checker {
	return &Checker{
		checks: checks,
		repo:   repo,
		logger: logger,
	}
}

// Run executes every probe and returns the aggregate report.
func (c *Checker) Run(ctx context.Context) Report {
	report := Report{
		Overall:  StatusHealthy,
		Services: make(map[string]string, len(c.checks)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, check := range c.checks {
		check := check
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, checkTimeout)
			defer cancel()

			start := time.Now()
			err := check.Probe(probeCtx)
			elapsed := int(time.Since(start).Milliseconds())

			status := StatusHealthy
			errMsg := ""
			if err != nil {
				status = StatusUnhealthy
				errMsg = err.Error()
				c.logger.WithError(err).WithField("service", check.Name).Warn("Health check failed")
			}

			mu.Lock()
			report.Services[check.Name] = status
			if status != StatusHealthy {
				report.Overall = StatusUnhealthy
			}
			mu.Unlock()

			c.persist(check.Name, status, elapsed, errMsg)
			return nil
		})
	}
	g.Wait()
	return report
}

// persist records one probe outcome. Recording failures are logged only; a
// broken health table must not make the health endpoint itself fail.
func (c *Checker) persist(service, status string, elapsed int, errMsg string) {
	if c.repo == nil {
		return
	}
	if err := c.repo.UpdateServiceHealth(service, status, elapsed, errMsg); err != nil {
		c.logger.WithError(err).WithField("service", service).Debug("Failed to record health check")
	}
}
