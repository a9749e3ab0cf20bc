package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QueueDepth reports how many items wait in a queue.
type QueueDepth interface {
	Pending() int
}

// queueCollector reads a queue depth at scrape time.
type queueCollector struct {
	desc  *prometheus.Desc
	queue QueueDepth
}

// NewQueueCollector creates a collector exporting the depth of queue as a gauge
// named snapcoord_<subsystem>_queue_depth.
func NewQueueCollector(subsystem string, queue QueueDepth) prometheus.Collector {
	return &queueCollector{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "queue_depth"),
			"Items waiting in the queue.",
			nil, nil,
		),
		queue: queue,
	}
}

// Describe implements prometheus.Collector.
func (c *queueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *queueCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(c.queue.Pending()))
}

// Register adds extra collectors to the registry.
func (r *Registry) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := r.reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
