package metrics

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorders(t *testing.T) {
	reg, m := NewRegistry()

	m.RecordBootstrap("cache")
	m.RecordBootstrap("cache")
	m.RecordLogin("password", nil)
	m.RecordLogin("password", errors.New("bad credentials"))
	m.RecordLogout()
	m.RecordFormSubmission("succeeded")
	m.RecordAPIRequest("/user", 200, 120*time.Millisecond)
	m.RecordAPIRequest("/user", 0, time.Second)

	if got := testutil.ToFloat64(m.SessionBootstraps.WithLabelValues("cache")); got != 2 {
		t.Errorf("bootstrap cache = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Logins.WithLabelValues("password", "failure")); got != 1 {
		t.Errorf("login failure = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Logouts); got != 1 {
		t.Errorf("logouts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.APIRequests.WithLabelValues("/user", "error")); got != 1 {
		t.Errorf("api error = %v, want 1", got)
	}

	count, err := testutil.GatherAndCount(reg, "adminconsole_api_request_duration_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("duration series = %d, want 1", count)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordBootstrap("cache")
	m.RecordLogin("demo", nil)
	m.RecordLogout()
	m.RecordFormSubmission("failed")
	m.RecordAPIRequest("/login", 500, time.Millisecond)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{0: "error", 200: "2xx", 204: "2xx", 401: "4xx", 503: "5xx", 700: "error"}
	for status, want := range tests {
		if got := StatusClass(status); got != want {
			t.Errorf("StatusClass(%d) = %q, want %q", status, got, want)
		}
	}
}

func TestWriteText(t *testing.T) {
	reg, m := NewRegistry()
	m.RecordLogout()

	var buf bytes.Buffer
	if err := WriteText(&buf, reg); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "adminconsole_logout_total 1") {
		t.Errorf("missing logout counter in:\n%s", buf.String())
	}
}
