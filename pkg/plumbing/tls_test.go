package plumbing_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"code.cloudfoundry.org/sysmon-agent/internal/testhelper"
	"code.cloudfoundry.org/sysmon-agent/pkg/plumbing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TLS", func() {
	var server *httptest.Server

	BeforeEach(func() {
		server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	get := func(c *tls.Config) error {
		client := &http.Client{Transport: &http.Transport{TLSClientConfig: c}}
		resp, err := client.Get(server.URL)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}

	Context("NewClientTLSConfig", func() {
		It("trusts the given authority", func() {
			ca := testhelper.WriteCA(GinkgoT().TempDir(), server.Certificate())

			c, err := plumbing.NewClientTLSConfig(ca)
			Expect(err).ToNot(HaveOccurred())
			Expect(get(c)).To(Succeed())
		})

		It("uses the system roots without an authority", func() {
			c, err := plumbing.NewClientTLSConfig("")
			Expect(err).ToNot(HaveOccurred())
			Expect(get(c)).ToNot(Succeed())
		})

		It("enforces at least TLS 1.2", func() {
			c, err := plumbing.NewClientTLSConfig("")
			Expect(err).ToNot(HaveOccurred())
			Expect(c.MinVersion).To(BeNumerically(">=", tls.VersionTLS12))
		})

		It("can skip verification", func() {
			c, err := plumbing.NewClientTLSConfig("", plumbing.WithInsecureSkipVerify(true))
			Expect(err).ToNot(HaveOccurred())
			Expect(get(c)).To(Succeed())
		})

		It("returns an error with a missing authority file", func() {
			_, err := plumbing.NewClientTLSConfig(filepath.Join(GinkgoT().TempDir(), "missing.crt"))
			Expect(err).To(HaveOccurred())
		})

		It("returns an error with an invalid authority file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "ca.crt")
			Expect(os.WriteFile(path, []byte("not a cert"), 0o600)).To(Succeed())

			_, err := plumbing.NewClientTLSConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("WithCipherSuites", func() {
		It("keeps the known suites", func() {
			c, err := plumbing.NewClientTLSConfig("", plumbing.WithCipherSuites([]string{
				"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384",
				"TLS_RSA_WITH_RC4_128_SHA",
			}))
			Expect(err).ToNot(HaveOccurred())
			Expect(c.CipherSuites).To(Equal([]uint16{tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384}))
		})

		It("returns an error when no suite is known", func() {
			_, err := plumbing.NewClientTLSConfig("", plumbing.WithCipherSuites([]string{"bogus"}))
			Expect(err).To(HaveOccurred())
		})
	})
})
