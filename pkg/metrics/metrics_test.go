package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kralicky/streamrelay/pkg/events"
	"github.com/kralicky/streamrelay/pkg/metrics"
)

var _ = Describe("Collectors", func() {
	var (
		reg *prometheus.Registry
		bus *events.Bus
	)
	BeforeEach(func() {
		reg = prometheus.NewRegistry()
		bus = events.NewBus()
		c := metrics.NewCollectors()
		Expect(c.Register(reg)).To(Succeed())
		DeferCleanup(c.Subscribe(bus))
	})

	expect := func(text string, names ...string) {
		Eventually(func() error {
			return testutil.GatherAndCompare(reg, strings.NewReader(text), names...)
		}).Should(Succeed())
	}

	It("should refuse to register twice", func() {
		Expect(metrics.NewCollectors().Register(reg)).NotTo(Succeed())
	})

	It("should count stream lifecycle events", func() {
		events.Publish(bus, events.StreamStarted{ID: "a"})
		events.Publish(bus, events.StreamStarted{ID: "b"})
		events.Publish(bus, events.StreamStarted{ID: "c"})
		events.Publish(bus, events.StreamStartFailed{Source: "http://x"})
		expect(`
# HELP streamrelay_streams_started_total Number of streams started.
# TYPE streamrelay_streams_started_total counter
streamrelay_streams_started_total 3
# HELP streamrelay_streams_start_failures_total Number of streams whose transcoder failed to launch.
# TYPE streamrelay_streams_start_failures_total counter
streamrelay_streams_start_failures_total 1
`, "streamrelay_streams_started_total", "streamrelay_streams_start_failures_total")

		events.Publish(bus, events.StreamStopped{ID: "a", Outcome: "graceful", Duration: time.Minute})
		events.Publish(bus, events.StreamStopped{ID: "b", Outcome: "forced", Duration: time.Minute})
		events.Publish(bus, events.StreamSelfTerminated{ID: "c", ExitCode: 1, Duration: time.Hour})
		expect(`
# HELP streamrelay_streams_stopped_total Number of streams stopped on request, by termination outcome.
# TYPE streamrelay_streams_stopped_total counter
streamrelay_streams_stopped_total{outcome="forced"} 1
streamrelay_streams_stopped_total{outcome="graceful"} 1
# HELP streamrelay_streams_self_terminated_total Number of streams whose transcoder exited without being stopped.
# TYPE streamrelay_streams_self_terminated_total counter
streamrelay_streams_self_terminated_total 1
# HELP streamrelay_streams_active Number of streams currently running.
# TYPE streamrelay_streams_active gauge
streamrelay_streams_active 0
`, "streamrelay_streams_stopped_total", "streamrelay_streams_self_terminated_total", "streamrelay_streams_active")
	})

	It("should serve metrics over http", func() {
		events.Publish(bus, events.StreamStarted{ID: "a"})
		srv := httptest.NewServer(metrics.Handler(reg))
		DeferCleanup(srv.Close)

		Eventually(func() string {
			resp, err := http.Get(srv.URL + "/metrics")
			if err != nil {
				return ""
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			return string(body)
		}).Should(ContainSubstring("streamrelay_streams_active 1"))
	})
})
