package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 游戏指标
	SubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_submissions_total",
			Help: "Challenge submissions by result",
		},
		[]string{"result"}, // correct | wrong | timeout | skipped
	)

	PotionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_potions_used_total",
			Help: "Potions consumed by type and outcome",
		},
		[]string{"type", "outcome"}, // applied | noop
	)

	LevelCompletedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "game_levels_completed_total",
			Help: "Levels completed with rewards granted",
		},
	)

	RealtimeEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_realtime_events_total",
			Help: "Realtime events published to players",
		},
		[]string{"type"},
	)

	OnlinePlayers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "game_online_players",
			Help: "Players connected to this instance over websocket",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(SubmissionCounter)
	prometheus.MustRegister(PotionCounter)
	prometheus.MustRegister(LevelCompletedCounter)
	prometheus.MustRegister(RealtimeEventCounter)
	prometheus.MustRegister(OnlinePlayers)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
