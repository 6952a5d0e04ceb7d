package observability

import (
	"testing"
	"time"

	"github.com/danmuck/trctl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("mockd", "POST", "/transmission/rpc", 409, 3*time.Millisecond)
	RecordRPC("torrent-start", "ok", 12*time.Millisecond)
	RecordNegotiation("http://127.0.0.1:9091/transmission/rpc", true)

	before := testutil.ToFloat64(sessionRefreshes.WithLabelValues("http://node-a/rpc"))
	RecordSessionRefresh("http://node-a/rpc")
	RecordSessionRefresh("http://node-a/rpc")
	after := testutil.ToFloat64(sessionRefreshes.WithLabelValues("http://node-a/rpc"))
	if after-before != 2 {
		t.Fatalf("expected 2 recorded refreshes, got %v", after-before)
	}
}
