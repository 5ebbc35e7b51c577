package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Handler serves the gathered metrics on /metrics and a liveness probe on
// /live.
func Handler(gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return func(rc *fasthttp.RequestCtx) {
		switch string(rc.Path()) {
		case "/metrics":
			metricsHandler(rc)
		case "/live":
			rc.SetContentType("application/json")
			rc.SetBodyString(`{"status":"up"}`)
		default:
			rc.NotFound()
		}
	}
}

func NewServer(gatherer prometheus.Gatherer) *fasthttp.Server {
	return &fasthttp.Server{
		Handler: Handler(gatherer),
		Name:    "llmdispatch-metrics",
	}
}
