package metrics

import (
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    documentsProcessed = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "plaacpipe",
            Name:      "documents_processed_total",
            Help:      "Documents processed by result (hits, no_hits, error)",
        },
        []string{"result"},
    )

    pagesClassified = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "plaacpipe",
            Name:      "pages_classified_total",
            Help:      "Pages classified by result (positive, negative, decode_error)",
        },
        []string{"result"},
    )

    stageDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "plaacpipe",
            Name:      "stage_duration_seconds",
            Help:      "Duration of pipeline stages (analyze, plot, rasterize, classify, assemble)",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"stage"},
    )

    rasterPages = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "plaacpipe",
            Name:      "raster_pages_total",
            Help:      "Total page images produced by rasterization",
        },
    )
)

// Init registers collectors.
func Init() {
    prometheus.MustRegister(documentsProcessed, pagesClassified, stageDuration, rasterPages)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

// Serve starts a metrics listener on addr. Errors are returned to the caller;
// the pipeline runs fine without exposition.
func Serve(addr string) error {
    mux := http.NewServeMux()
    mux.Handle("/metrics", Handler())
    return http.ListenAndServe(addr, mux)
}

func IncDocument(result string)               { documentsProcessed.WithLabelValues(result).Inc() }
func IncPage(result string)                   { pagesClassified.WithLabelValues(result).Inc() }
func AddRasterPages(n int)                    { rasterPages.Add(float64(n)) }
func ObserveStage(stage string, d time.Duration) { stageDuration.WithLabelValues(stage).Observe(d.Seconds()) }
