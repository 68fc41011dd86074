// Package metrics holds the Prometheus collectors shared by the functions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "duediligence"

var (
	OCRChunks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ocr_chunks_total",
		Help:      "OCR chunks processed, by outcome.",
	}, []string{"outcome"})

	OCRChunkSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ocr_chunk_duration_seconds",
		Help:      "Wall-clock time spent on one OCR chunk including retries.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	ProviderRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_retries_total",
		Help:      "Retries of model provider calls, by retry policy.",
	}, []string{"policy"})

	Reports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_total",
		Help:      "Report requests, by report kind and outcome.",
	}, []string{"kind", "outcome"})

	ValidationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_validation_failures_total",
		Help:      "Rejected model responses, by top-level report field.",
	}, []string{"field"})
)

func init() {
	prometheus.MustRegister(OCRChunks, OCRChunkSeconds, ProviderRetries, Reports, ValidationFailures)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
