// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordCheckSuccess(itemID string)
	RecordCheckFailure(itemID string, reason string)
	RecordParseFailure(itemID string)
	RecordPriceChange(itemID string)
	RecordNotificationSent(notificationType string)
	RecordCheckLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	checkSuccess      prometheus.Counter
	checkFail         *prometheus.CounterVec
	parseFail         prometheus.Counter
	priceChanges      prometheus.Counter
	notificationsSent *prometheus.CounterVec
	checkLatency      prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checkSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricewatch_check_success_total",
			Help: "価格チェック成功の合計数",
		}),
		checkFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_check_fail_total",
			Help: "価格チェック失敗の合計数（失敗分類別）",
		}, []string{"reason"}),
		parseFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricewatch_parse_fail_total",
			Help: "価格パース失敗の合計数",
		}),
		priceChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricewatch_price_changes_total",
			Help: "検出した価格変動の合計数",
		}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_notifications_sent_total",
			Help: "送信した通知の合計数（種別別）",
		}, []string{"type"}),
		checkLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricewatch_check_latency_seconds",
			Help:    "価格チェックのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.checkSuccess,
		c.checkFail,
		c.parseFail,
		c.priceChanges,
		c.notificationsSent,
		c.checkLatency,
	)

	return c
}

// RecordCheckSuccess はチェック成功を記録する。
func (c *Collector) RecordCheckSuccess(itemID string) {
	c.checkSuccess.Inc()
}

// RecordCheckFailure はチェック失敗を記録する。
func (c *Collector) RecordCheckFailure(itemID string, reason string) {
	c.checkFail.WithLabelValues(reason).Inc()
}

// RecordParseFailure は価格パース失敗を記録する。
func (c *Collector) RecordParseFailure(itemID string) {
	c.parseFail.Inc()
}

// RecordPriceChange は価格変動の検出を記録する。
func (c *Collector) RecordPriceChange(itemID string) {
	c.priceChanges.Inc()
}

// RecordNotificationSent は通知送信を記録する。
func (c *Collector) RecordNotificationSent(notificationType string) {
	c.notificationsSent.WithLabelValues(notificationType).Inc()
}

// RecordCheckLatency はチェックのレイテンシを記録する。
func (c *Collector) RecordCheckLatency(duration time.Duration) {
	c.checkLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
