// Package client provides the API client layer for the lockstepctl CLI.
//
// This package implements the HTTP client for communicating with a Lockstep
// daemon's REST API. It handles request/response serialization, error
// handling, retry logic, and structured logging for all CLI operations.
//
// The LockstepAPIClient wraps the Resty HTTP client:
//   - Connection management: timeout configuration and retry policies
//   - Request/response handling: JSON serialization and structured error parsing
//   - Fault tolerance: automatic retries on connection failures
//
// The package defines response structures mirroring the daemon API (health,
// metrics, sync groups, operation results) with JSON tags so all CLI commands
// and display functions share consistent data handling.
package client

import (
	"fmt"
	"time"

	"github.com/concave-dev/lockstep/internal/logging"
	"github.com/go-resty/resty/v2"
)

// HealthResponse mirrors the daemon's health endpoint payload.
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	Uptime       string    `json:"uptime"`
	QueueLength  int       `json:"queue_length"`
	ActiveGroups int       `json:"active_groups"`
}

// Metrics mirrors the engine's scheduler metrics snapshot.
type Metrics struct {
	TotalOperations     uint64  `json:"total_operations"`
	CompletedOperations uint64  `json:"completed_operations"`
	FailedOperations    uint64  `json:"failed_operations"`
	AverageLatency      int64   `json:"average_latency"` // Nanoseconds
	PeakLatency         int64   `json:"peak_latency"`    // Nanoseconds
	Throughput          float64 `json:"throughput"`
	QueueLength         int     `json:"queue_length"`
	ActiveGroups        int     `json:"active_groups"`
	ThrottledOperations uint64  `json:"throttled_operations"`
	BatchedOperations   uint64  `json:"batched_operations"`
}

// MetricsResponse wraps a metrics snapshot with its collection timestamp.
type MetricsResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Metrics   Metrics   `json:"metrics"`
}

// EngineConfig mirrors the engine's live tuning configuration.
type EngineConfig struct {
	MaxConcurrentOperations int   `json:"max_concurrent_operations"`
	OperationTimeout        int64 `json:"operation_timeout"` // Nanoseconds
	BatchDelay              int64 `json:"batch_delay"`       // Nanoseconds
	ThrottleThreshold       int64 `json:"throttle_threshold"`
	AdaptInterval           int64 `json:"adapt_interval"`
	ThrottleQuietPeriod     int64 `json:"throttle_quiet_period"`
}

// GroupConstraints mirrors a sync group's delivery policy.
type GroupConstraints struct {
	MaxLatency       int64 `json:"max_latency,omitempty"` // Nanoseconds
	TolerateFailures bool  `json:"tolerate_failures,omitempty"`
	RequireConsensus bool  `json:"require_consensus,omitempty"`
	BatchOperations  bool  `json:"batch_operations,omitempty"`
}

// Group mirrors a configured sync group.
type Group struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	ViewportIDs []string         `json:"viewport_ids"`
	SyncTypes   []string         `json:"sync_types"`
	Priority    int              `json:"priority"`
	IsActive    bool             `json:"is_active"`
	Constraints GroupConstraints `json:"constraints"`
}

// GroupPerformance mirrors a group's rolling performance snapshot.
type GroupPerformance struct {
	AverageLatency      int64     `json:"average_latency"` // Nanoseconds
	SuccessRate         float64   `json:"success_rate"`
	OperationsPerSecond float64   `json:"operations_per_second"`
	LastSyncTime        time.Time `json:"last_sync_time"`
}

// GroupListResponse mirrors the group listing payload.
type GroupListResponse struct {
	Groups []Group `json:"groups"`
	Count  int     `json:"count"`
}

// GroupInfoResponse mirrors the group detail payload.
type GroupInfoResponse struct {
	Group       Group            `json:"group"`
	Performance GroupPerformance `json:"performance"`
}

// OperationRequest is the submission payload for a sync operation.
type OperationRequest struct {
	Type              string         `json:"type"`
	SourceViewportID  string         `json:"source_viewport_id"`
	TargetViewportIDs []string       `json:"target_viewport_ids"`
	Priority          int            `json:"priority"`
	Data              map[string]any `json:"data,omitempty"`
	Constraints       struct {
		RequireExactMatch bool `json:"require_exact_match,omitempty"`
		AllowPartialSync  bool `json:"allow_partial_sync,omitempty"`
	} `json:"constraints"`
}

// OperationAccepted mirrors the asynchronous submission response.
type OperationAccepted struct {
	OperationID string `json:"operation_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

// OperationResult mirrors the synchronous (?wait=true) submission response.
type OperationResult struct {
	OperationID  string            `json:"operation_id"`
	Status       string            `json:"status"`
	LatencyMs    float64           `json:"latency_ms"`
	TargetErrors map[string]string `json:"target_errors,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// apiError mirrors the daemon's error payload.
type apiError struct {
	Error string `json:"error"`
}

// LockstepAPIClient communicates with a Lockstep daemon's REST API.
type LockstepAPIClient struct {
	client  *resty.Client
	baseURL string
}

// NewLockstepAPIClient creates an API client for the given daemon address
// with the given timeout in seconds.
func NewLockstepAPIClient(apiAddr string, timeout int, version string) *LockstepAPIClient {
	client := resty.New()

	baseURL := fmt.Sprintf("http://%s/api/v1", apiAddr)

	// Configure client with timeouts, headers, and retry logic
	client.
		SetTimeout(time.Duration(timeout)*time.Second).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", fmt.Sprintf("lockstepctl/%s", version))

	client.
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Only retry on connection errors, not HTTP errors
			return err != nil
		})

	// Request/response logging using structured logging
	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		logging.Debug("Making API request: %s %s", req.Method, req.URL)
		return nil
	})
	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logging.Debug("API response: %d %s (took %v)",
			resp.StatusCode(), resp.Status(), resp.Time())
		return nil
	})

	return &LockstepAPIClient{
		client:  client,
		baseURL: baseURL,
	}
}

// checkResponse converts a non-2xx response into a readable error, preferring
// the daemon's structured error message when present.
func (api *LockstepAPIClient) checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("failed to connect to API server at %s: %w", api.baseURL, err)
	}
	if resp.IsSuccess() {
		return nil
	}

	var apiErr apiError
	if jsonErr := resp.Error(); jsonErr != nil {
		if e, ok := jsonErr.(*apiError); ok && e.Error != "" {
			apiErr = *e
		}
	}
	if apiErr.Error != "" {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode(), apiErr.Error)
	}
	return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode(), resp.String())
}

// GetHealth fetches the daemon's health status.
func (api *LockstepAPIClient) GetHealth() (*HealthResponse, error) {
	var health HealthResponse
	resp, err := api.client.R().
		SetResult(&health).
		SetError(&apiError{}).
		Get("/health")
	if err := api.checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetMetrics fetches a scheduler metrics snapshot.
func (api *LockstepAPIClient) GetMetrics() (*MetricsResponse, error) {
	var metrics MetricsResponse
	resp, err := api.client.R().
		SetResult(&metrics).
		SetError(&apiError{}).
		Get("/metrics")
	if err := api.checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &metrics, nil
}

// GetConfig fetches the engine's current tuning configuration.
func (api *LockstepAPIClient) GetConfig() (*EngineConfig, error) {
	var cfg EngineConfig
	resp, err := api.client.R().
		SetResult(&cfg).
		SetError(&apiError{}).
		Get("/config")
	if err := api.checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateConfig applies operator overrides to the engine's tuning surface.
// Zero fields keep their current values. Returns the configuration as stored.
func (api *LockstepAPIClient) UpdateConfig(upd EngineConfig) (*EngineConfig, error) {
	var cfg EngineConfig
	resp, err := api.client.R().
		SetBody(upd).
		SetResult(&cfg).
		SetError(&apiError{}).
		Put("/config")
	if err := api.checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetGroups fetches all configured sync groups.
func (api *LockstepAPIClient) GetGroups() ([]Group, error) {
	var list GroupListResponse
	resp, err := api.client.R().
		SetResult(&list).
		SetError(&apiError{}).
		Get("/groups")
	if err := api.checkResponse(resp, err); err != nil {
		return nil, err
	}
	return list.Groups, nil
}

// GetGroupInfo fetches one group's configuration and rolling performance.
func (api *LockstepAPIClient) GetGroupInfo(groupID string) (*GroupInfoResponse, error) {
	var info GroupInfoResponse
	resp, err := api.client.R().
		SetResult(&info).
		SetError(&apiError{}).
		Get("/groups/" + groupID)
	if err := api.checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetGroupPerformance fetches one group's rolling performance snapshot.
func (api *LockstepAPIClient) GetGroupPerformance(groupID string) (*GroupPerformance, error) {
	var perf GroupPerformance
	resp, err := api.client.R().
		SetResult(&perf).
		SetError(&apiError{}).
		Get("/groups/" + groupID + "/performance")
	if err := api.checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &perf, nil
}

// ConfigureGroup registers or replaces a sync group.
func (api *LockstepAPIClient) ConfigureGroup(group Group) (*Group, error) {
	var stored Group
	resp, err := api.client.R().
		SetBody(group).
		SetResult(&stored).
		SetError(&apiError{}).
		Post("/groups")
	if err := api.checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &stored, nil
}

// SetGroupActive toggles a group's participation in synchronization.
func (api *LockstepAPIClient) SetGroupActive(groupID string, active bool) error {
	resp, err := api.client.R().
		SetBody(map[string]bool{"active": active}).
		SetError(&apiError{}).
		Put("/groups/" + groupID + "/active")
	return api.checkResponse(resp, err)
}

// SubmitOperation submits a sync operation asynchronously.
func (api *LockstepAPIClient) SubmitOperation(req OperationRequest) (*OperationAccepted, error) {
	var accepted OperationAccepted
	resp, err := api.client.R().
		SetBody(req).
		SetResult(&accepted).
		SetError(&apiError{}).
		Post("/operations")
	if err := api.checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &accepted, nil
}

// SubmitOperationWait submits a sync operation and waits for its terminal
// result.
func (api *LockstepAPIClient) SubmitOperationWait(req OperationRequest) (*OperationResult, error) {
	var result OperationResult
	resp, err := api.client.R().
		SetBody(req).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/operations?wait=true")
	if err := api.checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelOperation cancels a queued or batching operation by ID.
func (api *LockstepAPIClient) CancelOperation(operationID string) error {
	resp, err := api.client.R().
		SetError(&apiError{}).
		Delete("/operations/" + operationID)
	return api.checkResponse(resp, err)
}

// FlushOperations force-flushes all open batching windows.
func (api *LockstepAPIClient) FlushOperations() error {
	resp, err := api.client.R().
		SetError(&apiError{}).
		Post("/operations/flush")
	return api.checkResponse(resp, err)
}
