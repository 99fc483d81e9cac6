package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body, err := io.ReadAll(w.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(body)
}

func TestHandler_ExposesRecordedSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamRequest("all", OutcomeSuccess)
	c.RecordUpstreamRequest("name", OutcomeNotFound)
	c.RecordHTTPStatus(http.StatusConflict)
	c.RecordCollectionMutation("create_list")
	c.RecordSessionsPurged(3)

	body := scrape(t, reg)

	for _, want := range []string{
		`countryexplorer_upstream_requests_total{endpoint="all",outcome="success"} 1`,
		`countryexplorer_upstream_requests_total{endpoint="name",outcome="not_found"} 1`,
		`countryexplorer_http_status_total{status_code="409"} 1`,
		`countryexplorer_collection_mutations_total{operation="create_list"} 1`,
		`countryexplorer_sessions_purged_total 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestHandler_EmptyRegistry(t *testing.T) {
	body := scrape(t, prometheus.NewRegistry())
	if strings.Contains(body, "countryexplorer_") {
		t.Errorf("unexpected series in empty registry:\n%s", body)
	}
}
