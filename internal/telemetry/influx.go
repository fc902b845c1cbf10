// Package telemetry records heartbeat activity as time series.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

const Measurement = "point_heartbeat"

var ErrDisabled = errors.New("telemetry disabled")

type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
	// BatchSize and FlushIntervalMs tune the non-blocking writer.
	BatchSize       uint
	FlushIntervalMs uint
}

type pointWriter interface {
	WritePoint(point *write.Point)
}

// InfluxSink writes one point per accepted heartbeat.  Writes are batched
// and never block the heartbeat path.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	writer   pointWriter
}

// Connect pings the server and starts the batching writer.  Async write
// failures go to logger.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*InfluxSink, error) {
	if cfg.URL == "" {
		return nil, ErrDisabled
	}
	opts := influxdb2.DefaultOptions()
	if cfg.BatchSize > 0 {
		opts.SetBatchSize(cfg.BatchSize)
	}
	if cfg.FlushIntervalMs > 0 {
		opts.SetFlushInterval(cfg.FlushIntervalMs)
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb ping: %w", err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("influxdb ping: server not healthy")
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			logger.Warn("influxdb write failed", zap.Error(err))
		}
	}()

	return &InfluxSink{client: client, writeAPI: writeAPI, writer: writeAPI}, nil
}

func newSink(w pointWriter) *InfluxSink {
	return &InfluxSink{writer: w}
}

func (s *InfluxSink) WriteHeartbeat(pointID int64, codeCount int, at time.Time) {
	s.writer.WritePoint(HeartbeatPoint(pointID, codeCount, at))
}

// HeartbeatPoint builds the series point for one heartbeat.
func HeartbeatPoint(pointID int64, codeCount int, at time.Time) *write.Point {
	return influxdb2.NewPoint(
		Measurement,
		map[string]string{"point_id": strconv.FormatInt(pointID, 10)},
		map[string]interface{}{"code_count": codeCount},
		at,
	)
}

// Close flushes pending points and closes the client.
func (s *InfluxSink) Close() {
	if s.client == nil {
		return
	}
	s.writeAPI.Flush()
	s.client.Close()
}

// Nop discards heartbeats.
type Nop struct{}

func (Nop) WriteHeartbeat(int64, int, time.Time) {}
