package plumbing

import (
	"crypto/tls"
	"fmt"

	"code.cloudfoundry.org/tlsconfig"
)

var cipherMap = map[string]uint16{
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":   tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":   tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256": tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384": tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
}

// ConfigOption is used when configuring a new tls.Config.
type ConfigOption func(*tls.Config) error

// WithCipherSuites is used to override the default cipher suites. Unknown
// names are ignored; an empty result is an error.
func WithCipherSuites(ciphers []string) ConfigOption {
	return func(c *tls.Config) error {
		var configured []uint16
		for _, name := range ciphers {
			cipher, ok := cipherMap[name]
			if !ok {
				continue
			}
			configured = append(configured, cipher)
		}
		if len(configured) == 0 {
			return fmt.Errorf("no valid ciphers provided for TLS configuration")
		}
		c.CipherSuites = configured
		return nil
	}
}

// WithInsecureSkipVerify disables server certificate verification.
func WithInsecureSkipVerify(skip bool) ConfigOption {
	return func(c *tls.Config) error {
		c.InsecureSkipVerify = skip //nolint:gosec
		return nil
	}
}

// NewClientTLSConfig builds a client config with the internal service
// defaults. When caFile is set, the server must present a certificate
// signed by that authority; otherwise the system roots are used.
func NewClientTLSConfig(caFile string, opts ...ConfigOption) (*tls.Config, error) {
	var clientOpts []tlsconfig.ClientOption
	if caFile != "" {
		clientOpts = append(clientOpts, tlsconfig.WithAuthorityFromFile(caFile))
	}

	c, err := tlsconfig.Build(
		tlsconfig.WithInternalServiceDefaults(),
	).Client(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build client TLS config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}
