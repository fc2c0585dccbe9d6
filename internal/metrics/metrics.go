package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rastreador"

var (
	// ScrapeTotal conta scrapes por loja e resultado (success|failed)
	ScrapeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrape_total",
		Help:      "Scrapes de produtos por loja e resultado.",
	}, []string{"platform", "status"})

	// BatchDuration mede a duração de cada passada do agendador
	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_duration_seconds",
		Help:      "Duração de uma passada completa de atualização de preços.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	// AlertsTotal conta alertas por estado final (Sent|Failed)
	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_total",
		Help:      "Alertas de preço por estado de entrega.",
	}, []string{"status"})

	// RateLimitWait mede a espera por um token do limitador
	RateLimitWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rate_limit_wait_seconds",
		Help:      "Tempo de espera por um token antes de uma requisição.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

var queueDepthOnce sync.Once

// RegisterQueueDepth expõe o tamanho da fila de atualização como gauge.
// Só a primeira chamada registra.
func RegisterQueueDepth(depth func() int) {
	queueDepthOnce.Do(func() {
		prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_queue_depth",
			Help:      "Tarefas de atualização aguardando um worker.",
		}, func() float64 { return float64(depth()) }))
	})
}
