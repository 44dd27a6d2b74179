// Package ipcproto defines the JSON request/response envelope exchanged
// over the daemon's local IPC socket.
package ipcproto

// Action names the request's kind; the dispatcher switches on this tag
// rather than embedding per-action string comparisons throughout, per the
// "heterogeneous JSON envelopes" design note.
type Action string

const (
	ActionSendGPS          Action = "send_gps"
	ActionGetStats         Action = "get_stats"
	ActionGetMetrics       Action = "get_metrics"
	ActionCloseConnection  Action = "close_connection"
	ActionHealthCheck      Action = "health_check"
	ActionGetConfig        Action = "get_config"
)

// Request is the tagged union received from an IPC client. Only the
// fields relevant to Action are populated by the sender; unused fields
// are left zero.
type Request struct {
	Action Action `json:"action"`

	// send_gps
	Host      string      `json:"host,omitempty"`
	Port      int         `json:"port,omitempty"`
	Message   string      `json:"message,omitempty"`
	VehicleID string      `json:"vehicle_id,omitempty"`
	Options   interface{} `json:"options,omitempty"`
}

// Response is the envelope returned for every request. Success carries an
// action-specific payload in Data (see the dispatcher for exact shapes);
// failure carries Error.
type Response struct {
	Success          bool        `json:"success"`
	Error            string      `json:"error,omitempty"`
	RequestID        string      `json:"request_id"`
	ProcessingTimeMs float64     `json:"processing_time_ms"`
	Data             interface{} `json:"data,omitempty"`
}

// Error kinds, each a distinct wire value of Response.Error.
const (
	ErrInvalidRequest     = "invalid_request"
	ErrInvalidJSON        = "invalid_json"
	ErrUnknownAction      = "unknown_action"
	ErrSocketCreateFailed = "socket_create_failed"
	ErrConnectFailed      = "connect_failed"
	ErrWriteFailed        = "write_failed"
	ErrReadFailed         = "read_failed"
	ErrPoolFull           = "pool_full"
	ErrCircuitOpen        = "circuit_open"
	ErrInternal           = "internal"
)

// SendGPSResult is the success payload for action send_gps.
type SendGPSResult struct {
	Success     bool   `json:"success"`
	Response    string `json:"response"`
	HexResponse string `json:"hex_response"`
	BytesSent   int    `json:"bytes_sent"`
	VehicleID   string `json:"vehicle_id"`
	Timestamp   int64  `json:"timestamp"`
}

// ConnectionStatsEntry is one endpoint's counters in get_stats output.
type ConnectionStatsEntry struct {
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
	Total   int64 `json:"total"`
}

// StatsResult is the success payload for action get_stats.
type StatsResult struct {
	PoolSize           int                              `json:"pool_size"`
	MaxPoolSize        int                              `json:"max_pool_size"`
	ConnectionStats    map[string]ConnectionStatsEntry   `json:"connection_stats"`
	ActiveConnections  []string                          `json:"active_connections"`
	InstanceID         string                            `json:"instance_id"`
}

// MetricsResult is the success payload for action get_metrics.
type MetricsResult struct {
	PoolSize    int     `json:"pool_size"`
	MaxPoolSize int     `json:"max_pool_size"`
	InstanceID  string  `json:"instance_id"`
	UptimeS     float64 `json:"uptime_s"`
	MemoryUsage uint64  `json:"memory_usage"`
	PeakMemory  uint64  `json:"peak_memory"`
}

// HealthStatus is the health_check status enum.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// HealthChecks is the per-subsystem detail nested in HealthResult.
type HealthChecks struct {
	IPCSocket          bool `json:"ipc_socket"`
	ExternalCache      *bool `json:"external_cache,omitempty"`
	ActiveConnections  int  `json:"active_connections"`
}

// HealthResult is the success payload for action health_check.
type HealthResult struct {
	Status     HealthStatus `json:"status"`
	InstanceID string       `json:"instance_id"`
	Timestamp  int64        `json:"timestamp"`
	Checks     HealthChecks `json:"checks"`
}
