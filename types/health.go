package types

import (
	"context"
	"time"
)

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

type HealthChecker func(ctx context.Context) error

type HealthCheck struct {
	Name      string       `json:"name"`
	Status    HealthStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	CheckedAt time.Time    `json:"checked_at"`
}

type HealthManager interface {
	LifecycleManager
	RegisterChecker(name string, checker HealthChecker) error
	Status() map[string]HealthCheck
	Overall() HealthStatus
}
