package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/couchcryptid/eews-analyzer/internal/domain"
)

// Pusher sends the analyzer metrics to a Prometheus Pushgateway after each
// run. It implements pipeline.Publisher.
type Pusher struct {
	pusher *push.Pusher
}

// NewPusher creates a Pusher for the gateway at url, grouped by job.
func NewPusher(url, job string, metrics *Metrics) *Pusher {
	p := push.New(url, job)
	for _, c := range metrics.Collectors() {
		p = p.Collector(c)
	}
	return &Pusher{pusher: p}
}

// Name identifies the sink in logs and metrics.
func (p *Pusher) Name() string { return "pushgateway" }

// Publish pushes the current metric values, tagged with the run's source file.
func (p *Pusher) Publish(ctx context.Context, result domain.AnalysisResult) error {
	if err := p.pusher.Grouping("source", result.Source).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
