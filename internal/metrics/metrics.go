// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 外部API呼び出しの結果ラベル
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 外部APIクライアント、ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordUpstreamRequest(endpoint, outcome string)
	RecordUpstreamLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordCollectionMutation(operation string)
	RecordSessionsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamRequests  *prometheus.CounterVec
	upstreamLatency   prometheus.Histogram
	httpStatus        *prometheus.CounterVec
	collectionMutated *prometheus.CounterVec
	sessionsPurged    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countryexplorer_upstream_requests_total",
			Help: "国情報プロバイダーへのリクエスト数（エンドポイント・結果別）",
		}, []string{"endpoint", "outcome"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "countryexplorer_upstream_latency_seconds",
			Help:    "国情報プロバイダー呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countryexplorer_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		collectionMutated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countryexplorer_collection_mutations_total",
			Help: "お気に入り・リストの変更操作数",
		}, []string{"operation"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "countryexplorer_sessions_purged_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.httpStatus,
		c.collectionMutated,
		c.sessionsPurged,
	)

	return c
}

// RecordUpstreamRequest は外部API呼び出し1回の結果を記録する。
func (c *Collector) RecordUpstreamRequest(endpoint, outcome string) {
	c.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
}

// RecordUpstreamLatency は外部API呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(duration time.Duration) {
	c.upstreamLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCollectionMutation はお気に入り・リストの変更操作を記録する。
func (c *Collector) RecordCollectionMutation(operation string) {
	c.collectionMutated.WithLabelValues(operation).Inc()
}

// RecordSessionsPurged は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordUpstreamRequest(string, string) {}
func (NopCollector) RecordUpstreamLatency(time.Duration) {}
func (NopCollector) RecordHTTPStatus(int) {}
func (NopCollector) RecordCollectionMutation(string) {}
func (NopCollector) RecordSessionsPurged(int64) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
