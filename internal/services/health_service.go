package services

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"sheetlens/internal/infrastructure"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	startTime time.Time
	logger    *slog.Logger

	mu     sync.RWMutex
	checks map[string]HealthCheckFunc
}

// HealthCheckFunc reports the health of one component.
type HealthCheckFunc func(ctx context.Context) ServiceHealth

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Ready reports a healthy component.
func Ready(message string) ServiceHealth {
	return ServiceHealth{Status: "ready", Message: message}
}

// NewHealthService creates a new health service
func NewHealthService(version, buildTime string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
		checks:    make(map[string]HealthCheckFunc),
	}
}

// Register adds a readiness check under name, replacing any previous one.
func (hs *HealthService) Register(name string, check HealthCheckFunc) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.checks[name] = check
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck runs every registered check. The service is ready only
// when all of them are.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	hs.mu.RLock()
	names := make([]string, 0, len(hs.checks))
	for name := range hs.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheckFunc, len(hs.checks))
	for k, v := range hs.checks {
		checks[k] = v
	}
	hs.mu.RUnlock()
	sort.Strings(names)

	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]ServiceHealth, len(names)),
	}
	for _, name := range names {
		sh := checks[name](ctx)
		status.Services[name] = sh
		if sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "Component not ready",
				slog.String("service", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}
