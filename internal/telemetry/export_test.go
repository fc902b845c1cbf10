package telemetry

import "github.com/influxdata/influxdb-client-go/v2/api/write"

func NewSinkForTest(w interface{ WritePoint(*write.Point) }) *InfluxSink {
	return newSink(w)
}
