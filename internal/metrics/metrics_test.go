package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordCheckSuccess_IncrementsCounter はチェック成功カウンタが増加することを検証する。
func TestRecordCheckSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCheckSuccess("item-1")
	c.RecordCheckSuccess("item-1")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "pricewatch_check_success_total" {
			found = true
			if len(mf.GetMetric()) != 1 {
				t.Fatalf("expected 1 metric, got %d", len(mf.GetMetric()))
			}
			val := mf.GetMetric()[0].GetCounter().GetValue()
			if val != 2 {
				t.Errorf("check_success_total = %v, want 2", val)
			}
		}
	}
	if !found {
		t.Error("pricewatch_check_success_total metric not found")
	}
}

// TestRecordCheckFailure_IncrementsCounterWithLabel はチェック失敗カウンタが分類ラベル付きで増加することを検証する。
func TestRecordCheckFailure_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCheckFailure("item-2", "timeout")
	c.RecordCheckFailure("item-2", "timeout")
	c.RecordCheckFailure("item-3", "selector_not_found")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "pricewatch_check_fail_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "timeout":
					if val != 2 {
						t.Errorf("check_fail_total{reason=timeout} = %v, want 2", val)
					}
				case "selector_not_found":
					if val != 1 {
						t.Errorf("check_fail_total{reason=selector_not_found} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("pricewatch_check_fail_total metric not found")
	}
}

// TestRecordParseFailure_IncrementsCounter はパース失敗カウンタが増加することを検証する。
func TestRecordParseFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordParseFailure("item-3")
	c.RecordParseFailure("item-3")
	c.RecordParseFailure("item-3")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "pricewatch_parse_fail_total" {
			found = true
			val := mf.GetMetric()[0].GetCounter().GetValue()
			if val != 3 {
				t.Errorf("parse_fail_total = %v, want 3", val)
			}
		}
	}
	if !found {
		t.Error("pricewatch_parse_fail_total metric not found")
	}
}

// TestRecordPriceChange_IncrementsCounter は価格変動カウンタが増加することを検証する。
func TestRecordPriceChange_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPriceChange("item-4")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "pricewatch_price_changes_total" {
			found = true
			val := mf.GetMetric()[0].GetCounter().GetValue()
			if val != 1 {
				t.Errorf("price_changes_total = %v, want 1", val)
			}
		}
	}
	if !found {
		t.Error("pricewatch_price_changes_total metric not found")
	}
}

// TestRecordNotificationSent_IncrementsCounterWithLabel は通知送信カウンタが種別ラベル付きで増加することを検証する。
func TestRecordNotificationSent_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordNotificationSent("price_change")
	c.RecordNotificationSent("price_change")
	c.RecordNotificationSent("scrape_error")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "pricewatch_notifications_sent_total" {
			found = true
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "price_change":
					if val != 2 {
						t.Errorf("notifications_sent_total{type=price_change} = %v, want 2", val)
					}
				case "scrape_error":
					if val != 1 {
						t.Errorf("notifications_sent_total{type=scrape_error} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("pricewatch_notifications_sent_total metric not found")
	}
}

// TestRecordCheckLatency_ObservesHistogram はチェックレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordCheckLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCheckLatency(100 * time.Millisecond)
	c.RecordCheckLatency(2 * time.Second)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "pricewatch_check_latency_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("pricewatch_check_latency_seconds metric not found")
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// いくつかのメトリクスを記録
	c.RecordCheckSuccess("item-test")
	c.RecordCheckFailure("item-test", "network")
	c.RecordPriceChange("item-test")
	c.RecordCheckLatency(500 * time.Millisecond)
	c.RecordNotificationSent("price_change")

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	// Prometheus形式のメトリクスが含まれていることを確認
	expectedMetrics := []string{
		"pricewatch_check_success_total",
		"pricewatch_check_fail_total",
		"pricewatch_price_changes_total",
		"pricewatch_check_latency_seconds",
		"pricewatch_notifications_sent_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordCheckSuccess("item-a")
	c2.RecordCheckSuccess("item-b")
	c2.RecordCheckSuccess("item-b")

	metrics1, _ := reg1.Gather()
	metrics2, _ := reg2.Gather()

	var val1, val2 float64
	for _, mf := range metrics1 {
		if mf.GetName() == "pricewatch_check_success_total" {
			val1 = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	for _, mf := range metrics2 {
		if mf.GetName() == "pricewatch_check_success_total" {
			val2 = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}

	if val1 != 1 {
		t.Errorf("reg1 check_success = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 check_success = %v, want 2", val2)
	}
}
