package app_test

import (
	"os"
	"time"

	"code.cloudfoundry.org/sysmon-agent/cmd/sysmon-agent/app"
	"code.cloudfoundry.org/sysmon-agent/internal/platform/log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	setenv := func(k, v string) {
		prev, ok := os.LookupEnv(k)
		Expect(os.Setenv(k, v)).To(Succeed())
		DeferCleanup(func() {
			if ok {
				os.Setenv(k, prev)
				return
			}
			os.Unsetenv(k)
		})
	}

	unsetenv := func(k string) {
		prev, ok := os.LookupEnv(k)
		Expect(os.Unsetenv(k)).To(Succeed())
		DeferCleanup(func() {
			if ok {
				os.Setenv(k, prev)
			}
		})
	}

	BeforeEach(func() {
		setenv("INFLUXDB_BUCKET", "host-metrics")
		setenv("INFLUXDB_ORG", "acme")
		setenv("INFLUXDB_TOKEN", "s3cr3t")
		setenv("INFLUXDB_URI", "https://influx.example.com:8086/api/v2/write")
		unsetenv("DUMP_INTERVAL_SECONDS")
		unsetenv("INFLUXDB_CA_FILE")
		unsetenv("INFLUXDB_SKIP_CERT_VERIFY")
		unsetenv("METRICS_PORT")
		unsetenv("LOG_LEVEL")
		unsetenv("INFLUXDB_CIPHER_SUITES")
		unsetenv("USE_RFC3339")
	})

	It("loads the destination from the environment", func() {
		cfg, err := app.Load()
		Expect(err).ToNot(HaveOccurred())

		Expect(cfg.Bucket).To(Equal("host-metrics"))
		Expect(cfg.Org).To(Equal("acme"))
		Expect(cfg.Token).To(Equal("s3cr3t"))
		Expect(cfg.URI).To(Equal("https://influx.example.com:8086/api/v2/write"))
	})

	It("defaults to an hourly dump at info level without a metrics listener", func() {
		cfg, err := app.Load()
		Expect(err).ToNot(HaveOccurred())

		Expect(cfg.DumpInterval.Duration()).To(Equal(time.Hour))
		Expect(cfg.LogLevel).To(Equal(log.InfoLevel))
		Expect(cfg.MetricsPort).To(BeZero())
		Expect(cfg.SkipCertVerify).To(BeFalse())
		Expect(cfg.CipherSuites).To(BeEmpty())
		Expect(cfg.UseRFC3339).To(BeFalse())
	})

	It("reads the optional settings", func() {
		setenv("INFLUXDB_CA_FILE", "/etc/ssl/influx-ca.crt")
		setenv("INFLUXDB_SKIP_CERT_VERIFY", "true")
		setenv("METRICS_PORT", "9100")
		setenv("LOG_LEVEL", "debug")
		setenv("INFLUXDB_CIPHER_SUITES", "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384")
		setenv("USE_RFC3339", "true")

		cfg, err := app.Load()
		Expect(err).ToNot(HaveOccurred())

		Expect(cfg.CipherSuites).To(Equal([]string{
			"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256",
			"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384",
		}))
		Expect(cfg.UseRFC3339).To(BeTrue())

		Expect(cfg.CAFile).To(Equal("/etc/ssl/influx-ca.crt"))
		Expect(cfg.SkipCertVerify).To(BeTrue())
		Expect(cfg.MetricsPort).To(Equal(uint16(9100)))
		Expect(cfg.LogLevel).To(Equal(log.DebugLevel))
	})

	DescribeTable("dump interval",
		func(v string, expected time.Duration) {
			setenv("DUMP_INTERVAL_SECONDS", v)

			cfg, err := app.Load()
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.DumpInterval.Duration()).To(Equal(expected))
		},
		Entry("whole seconds", "60", time.Minute),
		Entry("zero", "0", time.Hour),
		Entry("negative", "-5", time.Hour),
		Entry("not a number", "often", time.Hour),
		Entry("fractional", "1.5", time.Hour),
		Entry("too large", "18446744073709551615", time.Hour),
	)

	DescribeTable("rejects incomplete destinations",
		func(key string) {
			unsetenv(key)

			_, err := app.Load()
			Expect(err).To(HaveOccurred())
		},
		Entry("bucket", "INFLUXDB_BUCKET"),
		Entry("org", "INFLUXDB_ORG"),
		Entry("token", "INFLUXDB_TOKEN"),
		Entry("uri", "INFLUXDB_URI"),
	)

	It("rejects an invalid uri", func() {
		setenv("INFLUXDB_URI", "influx.example.com")

		_, err := app.Load()
		Expect(err).To(MatchError(ContainSubstring("invalid InfluxDB URI")))
	})

	It("rejects an unknown log level", func() {
		setenv("LOG_LEVEL", "loud")

		_, err := app.Load()
		Expect(err).To(HaveOccurred())
	})

	It("panics from LoadConfig on invalid configuration", func() {
		unsetenv("INFLUXDB_TOKEN")

		Expect(func() {
			app.LoadConfig(log.NewWithWriters(GinkgoWriter, GinkgoWriter))
		}).To(Panic())
	})
})
