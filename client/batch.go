package client

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// BatchRequest is one entry in a batch send.
type BatchRequest struct {
	Host      string
	Port      int
	Message   string
	VehicleID string
}

// BatchEntryResult pairs a BatchRequest with its outcome.
type BatchEntryResult struct {
	Request BatchRequest
	Result  SendGPSResult
	Err     error
}

// BatchSummary aggregates a SendBatch call's outcome.
type BatchSummary struct {
	BatchID    string
	Total      int
	Successful int
	Failed     int
	DurationMs float64
	Entries    []BatchEntryResult
}

// SendBatch dispatches every request with bounded concurrency (up to
// maxGoroutines in flight at once), via sourcegraph/conc's worker pool —
// one goroutine per request up to the configured fan-out.
func (c *Client) SendBatch(requests []BatchRequest, maxGoroutines int) BatchSummary {
	if maxGoroutines <= 0 {
		maxGoroutines = 8
	}
	start := time.Now()

	entries := make([]BatchEntryResult, len(requests))
	p := pool.New().WithMaxGoroutines(maxGoroutines)
	for i, req := range requests {
		i, req := i, req
		p.Go(func() {
			result, err := c.SendGPS(req.Host, req.Port, req.Message, req.VehicleID)
			entries[i] = BatchEntryResult{Request: req, Result: result, Err: err}
		})
	}
	p.Wait()

	summary := BatchSummary{
		BatchID:    batchID(requests),
		Total:      len(entries),
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Entries:    entries,
	}
	for _, e := range entries {
		if e.Err == nil {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	return summary
}

func batchID(requests []BatchRequest) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%d:%d", len(requests), time.Now().UnixNano())))
	return hex.EncodeToString(sum[:])[:16]
}
