package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// CloseFunc is a shutdown step. It should give up once ctx is done.
type CloseFunc func(ctx context.Context) error

type namedCloser struct {
	name  string
	close CloseFunc
}

// shutdownList closes registered services in reverse order of registration,
// one at a time, so later services can still use earlier ones while closing.
type shutdownList struct {
	mu       sync.Mutex
	logger   *zap.Logger
	services []namedCloser
	done     bool
}

func newShutdownList(logger *zap.Logger) *shutdownList {
	return &shutdownList{logger: logger}
}

func (s *shutdownList) Add(name string, fn CloseFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = append(s.services, namedCloser{name: name, close: fn})
	s.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// Shutdown runs every step once; later calls are no-ops.
func (s *shutdownList) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.done = true
	services := append([]namedCloser(nil), s.services...)
	s.mu.Unlock()

	s.logger.Debug("Starting graceful shutdown", zap.Int("services", len(services)))

	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]
		if err := svc.close(ctx); err != nil {
			s.logger.Error("Failed to shutdown service",
				zap.String("service", svc.name),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", svc.name, err))
			continue
		}
		s.logger.Debug("Service shutdown complete", zap.String("service", svc.name))
	}
	return errors.Join(errs...)
}
