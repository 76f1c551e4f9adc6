package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

// PrometheusServer exposes a recorder on its own port for processes that do
// not already run an HTTP API
type PrometheusServer struct {
	server   *http.Server
	recorder *Recorder
	log      *logger.Logger
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(port int, recorder *Recorder) *PrometheusServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())

	return &PrometheusServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		recorder: recorder,
		log:      logger.GetLogger("metrics.prometheus"),
	}
}

// Start serves metrics until Stop is called
func (p *PrometheusServer) Start() error {
	p.log.Infof("Starting Prometheus metrics server on %s", p.server.Addr)
	if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the Prometheus metrics server
func (p *PrometheusServer) Stop(ctx context.Context) error {
	p.log.Info("Stopping Prometheus metrics server")
	return p.server.Shutdown(ctx)
}

// CollectSystemStats samples runtime stats every interval until ctx is done
func CollectSystemStats(ctx context.Context, recorder *Recorder, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	recorder.RecordSystemStats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			recorder.RecordSystemStats()
		}
	}
}
