// Package kafka holds the franz-go producer and its readiness check.
package kafka

import (
	"context"
	"errors"
)

// Pinger reports broker reachability; *producer.Producer satisfies it.
type Pinger interface {
	Healthy(ctx context.Context) bool
}

// HealthChecker adapts a producer to the readiness probe.
type HealthChecker struct {
	pinger Pinger
}

func NewHealthChecker(p Pinger) *HealthChecker {
	return &HealthChecker{pinger: p}
}

// Check returns nil when at least one broker answers.
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.pinger == nil {
		return errors.New("kafka producer not configured")
	}
	if !h.pinger.Healthy(ctx) {
		return errors.New("no kafka brokers reachable")
	}
	return nil
}

// Name returns the check name for health reporting.
func (h *HealthChecker) Name() string {
	return "kafka"
}
