package app_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/onsi/gomega/gbytes"

	"code.cloudfoundry.org/sysmon-agent/cmd/sysmon-agent/app"
	"code.cloudfoundry.org/sysmon-agent/internal/platform/log"
	"code.cloudfoundry.org/sysmon-agent/internal/testhelper"
	"code.cloudfoundry.org/sysmon-agent/pkg/collector"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SysmonAgent", func() {
	var (
		db     *spyInfluxDB
		stdout *gbytes.Buffer
		logger *log.Logger
		cfg    app.Config
		ticks  chan time.Time
		waits  chan time.Duration
	)

	BeforeEach(func() {
		db = newSpyInfluxDB()
		stdout = gbytes.NewBuffer()
		logger = log.NewWithWriters(stdout, GinkgoWriter)
		ticks = make(chan time.Time)
		waits = make(chan time.Duration, 10)

		cfg = app.Config{
			DumpInterval: app.DumpInterval(30 * time.Second),
			Bucket:       "host-metrics",
			Org:          "acme",
			Token:        "s3cr3t",
			URI:          db.URL + "/api/v2/write",
		}
	})

	AfterEach(func() {
		db.Close()
	})

	timer := func(d time.Duration) <-chan time.Time {
		waits <- d
		return ticks
	}

	sources := func() []collector.Source {
		return []collector.Source{
			&fixedSource{name: "disks", lines: []string{"disk_usage,name=sda1 total_space=200i 1"}},
			&fixedSource{name: "networks", lines: []string{"network_usage,interface=eth0 received=1i 1"}},
			&fixedSource{name: "sensors", err: fmt.Errorf("no sensors")},
			&fixedSource{name: "system", lines: []string{"system_usage,host_name=h free_memory=1i 1"}},
		}
	}

	start := func(a *app.SysmonAgent) (context.CancelFunc, chan struct{}) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			a.Run(ctx)
		}()
		return cancel, done
	}

	It("delivers a batch immediately and then once per interval", func() {
		agent := app.NewSysmonAgent(cfg, logger, app.WithSources(sources()...), app.WithTimer(timer))
		cancel, done := start(agent)
		defer cancel()

		Eventually(db.bodies).Should(Equal([]string{
			"disk_usage,name=sda1 total_space=200i 1\n" +
				"network_usage,interface=eth0 received=1i 1\n" +
				"system_usage,host_name=h free_memory=1i 1",
		}))
		Eventually(waits).Should(Receive(Equal(30 * time.Second)))

		ticks <- time.Now()
		Eventually(db.bodies).Should(HaveLen(2))

		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("reports the destination and interval at startup", func() {
		agent := app.NewSysmonAgent(cfg, logger, app.WithSources(sources()...), app.WithTimer(timer))
		cancel, done := start(agent)

		Eventually(stdout).Should(gbytes.Say(`sending host metrics to http://127\.0\.0\.1:\d+/api/v2/write\?bucket=host-metrics&org=acme&precision=ms every 30s`))
		Eventually(stdout).Should(gbytes.Say(`\[InfluxDB\] <204 No Content `))

		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("keeps running when the destination is down", func() {
		db.Close()
		agent := app.NewSysmonAgent(cfg, logger, app.WithSources(sources()...), app.WithTimer(timer))
		cancel, done := start(agent)

		Eventually(waits).Should(Receive())
		ticks <- time.Now()
		Eventually(waits).Should(Receive())

		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("has a prom exposition endpoint", func() {
		cfg.MetricsPort = testhelper.GetFreePort()
		agent := app.NewSysmonAgent(cfg, logger, app.WithSources(sources()...), app.WithTimer(timer))
		cancel, done := start(agent)

		Expect(agent.MetricsAddr()).To(Equal(fmt.Sprintf("127.0.0.1:%d", cfg.MetricsPort)))
		Eventually(db.bodies).Should(HaveLen(1))

		resp, err := http.Get("http://" + agent.MetricsAddr() + "/metrics")
		Expect(err).ToNot(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("cycles_total"))
		Expect(string(body)).To(ContainSubstring(`source_failures_total{origin="sysmon_agent",source="sensors",source_id="sysmon_agent"} 1`))

		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("has no metrics listener by default", func() {
		agent := app.NewSysmonAgent(cfg, logger, app.WithSources(sources()...))

		Expect(agent.MetricsAddr()).To(BeEmpty())
	})

	It("delivers with restricted cipher suites", func() {
		cfg.CipherSuites = []string{"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384"}
		agent := app.NewSysmonAgent(cfg, logger, app.WithSources(sources()...), app.WithTimer(timer))
		cancel, done := start(agent)

		Eventually(db.bodies).Should(HaveLen(1))

		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("panics when none of the cipher suites is known", func() {
		cfg.CipherSuites = []string{"TLS_RSA_WITH_RC4_128_SHA"}

		Expect(func() {
			app.NewSysmonAgent(cfg, logger, app.WithSources(sources()...))
		}).To(Panic())
	})

	It("panics on an unreadable CA file", func() {
		cfg.CAFile = "/does/not/exist.crt"

		Expect(func() {
			app.NewSysmonAgent(cfg, logger, app.WithSources(sources()...))
		}).To(Panic())
	})
})

type fixedSource struct {
	name  string
	lines []string
	err   error
}

func (s *fixedSource) Name() string { return s.name }

func (s *fixedSource) Refresh(context.Context) error { return s.err }

func (s *fixedSource) Collect() ([]string, error) { return s.lines, nil }

type spyInfluxDB struct {
	*httptest.Server

	mu   sync.Mutex
	body []string
}

func newSpyInfluxDB() *spyInfluxDB {
	db := &spyInfluxDB{}
	db.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)

		db.mu.Lock()
		db.body = append(db.body, string(b))
		db.mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	}))
	return db
}

func (db *spyInfluxDB) bodies() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]string(nil), db.body...)
}
