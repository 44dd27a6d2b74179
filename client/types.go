package client

// request and response mirror the daemon's IPC wire contract. They are
// duplicated here rather than imported because this package is a
// separate module, published independently of the daemon.
type request struct {
	Action    string      `json:"action"`
	Host      string      `json:"host,omitempty"`
	Port      int         `json:"port,omitempty"`
	Message   string      `json:"message,omitempty"`
	VehicleID string      `json:"vehicle_id,omitempty"`
	Options   interface{} `json:"options,omitempty"`
}

type response struct {
	Success          bool        `json:"success"`
	Error            string      `json:"error,omitempty"`
	RequestID        string      `json:"request_id"`
	ProcessingTimeMs float64     `json:"processing_time_ms"`
	Data             interface{} `json:"data,omitempty"`
}

// SendGPSResult is the success payload for a SendGPS call.
type SendGPSResult struct {
	Success     bool   `json:"success"`
	Response    string `json:"response"`
	HexResponse string `json:"hex_response"`
	BytesSent   int    `json:"bytes_sent"`
	VehicleID   string `json:"vehicle_id"`
	Timestamp   int64  `json:"timestamp"`
}

// ConnectionStatsEntry is one endpoint's counters within StatsResult.
type ConnectionStatsEntry struct {
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
	Total   int64 `json:"total"`
}

// StatsResult is the success payload for a GetStats call.
type StatsResult struct {
	PoolSize          int                             `json:"pool_size"`
	MaxPoolSize       int                             `json:"max_pool_size"`
	ConnectionStats   map[string]ConnectionStatsEntry `json:"connection_stats"`
	ActiveConnections []string                        `json:"active_connections"`
	InstanceID        string                          `json:"instance_id"`
}
