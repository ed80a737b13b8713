package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"playlistpulse/pkg/contracts"
)

// ClientCounter reports connected live-update clients.
type ClientCounter interface {
	ClientCount() int
}

// CacheStatsProvider reports dataset cache statistics.
type CacheStatsProvider interface {
	CacheStats() map[string]interface{}
}

// HealthService provides health check functionality
type HealthService struct {
	info      contracts.VersionInfo
	cache     CacheStatsProvider
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// VersionStatus is the build description plus process uptime.
type VersionStatus struct {
	contracts.VersionInfo
	UptimeSeconds float64   `json:"uptime_seconds"`
	StartTime     time.Time `json:"start_time"`
}

// NewHealthService creates a health service. cache and hub may be nil.
func NewHealthService(info contracts.VersionInfo, cache CacheStatsProvider, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", info.Version),
		slog.String("build_time", info.BuildTime),
		slog.String("commit", info.GitCommit))

	return &HealthService{
		info:      info,
		cache:     cache,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.info.Version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.info.Version,
		Services:  make(map[string]interface{}),
	}

	status.Services["dataset_cache"] = hs.checkCacheHealth()
	status.Services["websocket"] = hs.checkWebSocketHealth()

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.info.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns build and runtime version information
func (hs *HealthService) Version() VersionStatus {
	return VersionStatus{
		VersionInfo:   hs.info,
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		StartTime:     hs.startTime,
	}
}

// Stats returns cache and connection statistics.
func (hs *HealthService) Stats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"uptime_seconds": time.Since(hs.startTime).Seconds(),
		"goroutines":     runtime.NumGoroutine(),
	}
	if hs.cache != nil {
		stats["dataset_cache"] = hs.cache.CacheStats()
	}
	if hs.hub != nil {
		stats["websocket_clients"] = hs.hub.ClientCount()
	}
	return stats
}

func (hs *HealthService) checkCacheHealth() ServiceHealth {
	if hs.cache == nil {
		return ServiceHealth{Status: "not_ready", Message: "dataset cache not initialized"}
	}
	return ServiceHealth{Status: "ready", Message: "dataset cache is healthy"}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "not_ready", Message: "websocket hub not initialized"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "websocket hub is healthy",
		Uptime:  time.Since(hs.startTime).String(),
	}
}
