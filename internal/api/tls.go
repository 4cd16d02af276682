package api

import (
	"crypto/tls"
	"fmt"
	"os"
	"sync"
)

// Both must be set to serve HTTPS.
const (
	EnvTLSCert = "SCENEBRIDGE_TLS_CERT"
	EnvTLSKey  = "SCENEBRIDGE_TLS_KEY"
)

// TLSConfig names the PEM certificate and key files.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

func (c *TLSConfig) complete() bool {
	return c != nil && c.CertFile != "" && c.KeyFile != ""
}

var (
	tlsMu  sync.RWMutex
	tlsCfg *TLSConfig
)

// InitTLS takes the certificate paths from the environment, replacing any
// earlier setting. A lone cert or key leaves TLS off.
func InitTLS() {
	c := &TLSConfig{CertFile: os.Getenv(EnvTLSCert), KeyFile: os.Getenv(EnvTLSKey)}
	if !c.complete() {
		c = nil
	}
	SetTLSConfigForTest(c)
}

func IsTLSEnabled() bool {
	return GetTLSConfig().complete()
}

// GetTLSConfig returns the configured paths, or nil.
func GetTLSConfig() *TLSConfig {
	tlsMu.RLock()
	defer tlsMu.RUnlock()
	return tlsCfg
}

// LoadTLSConfig reads the key pair into a server config requiring TLS 1.2
// or later. Without TLS configured it returns nil, nil.
func LoadTLSConfig() (*tls.Config, error) {
	c := GetTLSConfig()
	if !c.complete() {
		return nil, nil
	}
	pair, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS key pair %s: %w", c.CertFile, err)
	}
	return &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: tls.VersionTLS12}, nil
}

// SetTLSConfigForTest replaces the TLS paths.
func SetTLSConfigForTest(c *TLSConfig) {
	tlsMu.Lock()
	tlsCfg = c
	tlsMu.Unlock()
}
