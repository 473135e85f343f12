package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbforge_generations_total",
			Help: "Total number of generation requests by source kind and outcome code.",
		},
		[]string{"source", "code"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbforge_stage_duration_seconds",
			Help:    "Duration of orchestrator stages.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	styleDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thumbforge_style_degraded_total",
		Help: "Total number of requests whose style extraction degraded to the neutral descriptor.",
	})

	imagesGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thumbforge_images_generated_total",
		Help: "Total number of images returned to callers.",
	})
)

// ObserveGeneration - 요청 결과 기록 (성공은 code="ok")
func ObserveGeneration(source, code string) {
	if code == "" {
		code = "ok"
	}
	generationsTotal.WithLabelValues(source, code).Inc()
}

// ObserveStage - 단계 소요 시간 기록
func ObserveStage(stage string, elapsed time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// StyleDegraded - 스타일 분석 실패로 중립 디스크립터 사용
func StyleDegraded() {
	styleDegradedTotal.Inc()
}

// ImagesGenerated - 반환된 이미지 수
func ImagesGenerated(n int) {
	imagesGeneratedTotal.Add(float64(n))
}
