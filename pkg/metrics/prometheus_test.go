package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecorderRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	r.RecordAttempt("success")
	r.RecordAttempt("success")
	r.RecordAttempt("error")
	r.RecordError("record")
	r.RecordLatency("predict", 0.2)
	r.SetActiveSessions(3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "heartform_prediction_attempts_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	if got["success"] != 2 || got["error"] != 1 {
		t.Fatalf("unexpected attempt counters %v", got)
	}
}
