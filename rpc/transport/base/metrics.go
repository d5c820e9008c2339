package base

import (
	"github.com/VictoriaMetrics/metrics"
	"io"
)

// serverMetrics holds the counters of one server. Every server owns its own
// metrics.Set so several servers can live in one process.
type serverMetrics struct {
	set *metrics.Set

	accepted       *metrics.Counter
	closed         *metrics.Counter
	forceClosed    *metrics.Counter
	acceptErrors   *metrics.Counter
	protocolErrors *metrics.Counter
	ioErrors       *metrics.Counter
	framesIn       *metrics.Counter
	framesOut      *metrics.Counter
	bytesIn        *metrics.Counter
	bytesOut       *metrics.Counter
	handleDuration *metrics.Histogram
}

func newServerMetrics(active func() float64) *serverMetrics {
	set := metrics.NewSet()
	set.NewGauge("dframe_connections_active", active)

	return &serverMetrics{
		set:            set,
		accepted:       set.NewCounter("dframe_connections_accepted_total"),
		closed:         set.NewCounter("dframe_connections_closed_total"),
		forceClosed:    set.NewCounter("dframe_connections_force_closed_total"),
		acceptErrors:   set.NewCounter("dframe_accept_errors_total"),
		protocolErrors: set.NewCounter("dframe_protocol_errors_total"),
		ioErrors:       set.NewCounter("dframe_io_errors_total"),
		framesIn:       set.NewCounter("dframe_frames_received_total"),
		framesOut:      set.NewCounter("dframe_frames_sent_total"),
		bytesIn:        set.NewCounter("dframe_bytes_received_total"),
		bytesOut:       set.NewCounter("dframe_bytes_sent_total"),
		handleDuration: set.NewHistogram("dframe_handle_duration_seconds"),
	}
}

func (m *serverMetrics) writePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}
