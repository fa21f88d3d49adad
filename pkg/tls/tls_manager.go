// Package tls configures HTTPS for the vault server, either with Let's
// Encrypt certificates or with certificate files on disk.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/logger"

	"golang.org/x/crypto/acme/autocert"
)

// TLSManager handles TLS certificate management including Let's Encrypt
type TLSManager struct {
	config      *TLSConfig
	autocertMgr *autocert.Manager
	tlsConfig   *tls.Config
	initialized bool
}

// TLSConfig holds TLS configuration options
type TLSConfig struct {
	EnableTLS         bool
	EnableLetsEncrypt bool
	Domain            string
	LetsEncryptEmail  string
	CertCacheDir      string
	RedirectHTTP      bool
	CertFile          string
	KeyFile           string
	HTTPPort          string
	HTTPSPort         string
}

// LoadConfig reads the [TLS] section.
func LoadConfig() *TLSConfig {
	return &TLSConfig{
		EnableTLS:         configuration.GetBool("TLS", "enable_tls", false),
		EnableLetsEncrypt: configuration.GetBool("TLS", "enable_lets_encrypt", false),
		Domain:            configuration.GetString("TLS", "domain", ""),
		LetsEncryptEmail:  configuration.GetString("TLS", "lets_encrypt_email", ""),
		CertCacheDir:      configuration.GetString("TLS", "cert_cache_dir", "./certs"),
		RedirectHTTP:      configuration.GetBool("TLS", "redirect_http", true),
		CertFile:          configuration.GetString("TLS", "cert_file", ""),
		KeyFile:           configuration.GetString("TLS", "key_file", ""),
		HTTPPort:          configuration.GetString("TLS", "http_port", "8080"),
		HTTPSPort:         configuration.GetString("TLS", "https_port", "8443"),
	}
}

// NewTLSManager creates a TLS manager from the loaded configuration.
func NewTLSManager() (*TLSManager, error) {
	return NewTLSManagerWithConfig(LoadConfig())
}

// NewTLSManagerWithConfig creates a TLS manager for config.
func NewTLSManagerWithConfig(config *TLSConfig) (*TLSManager, error) {
	manager := &TLSManager{config: config}

	if err := manager.validateConfig(); err != nil {
		return nil, fmt.Errorf("TLS configuration validation failed: %w", err)
	}

	if config.EnableTLS {
		if err := manager.initializeTLS(); err != nil {
			return nil, fmt.Errorf("TLS initialization failed: %w", err)
		}
	}

	return manager, nil
}

// validateConfig validates the TLS configuration
func (tm *TLSManager) validateConfig() error {
	if !tm.config.EnableTLS {
		return nil
	}
	if tm.config.EnableLetsEncrypt {
		if strings.TrimSpace(tm.config.Domain) == "" {
			return fmt.Errorf("domain is required when Let's Encrypt is enabled")
		}
		if strings.TrimSpace(tm.config.LetsEncryptEmail) == "" {
			return fmt.Errorf("lets_encrypt_email is required when Let's Encrypt is enabled")
		}
		return nil
	}
	if (tm.config.CertFile == "") != (tm.config.KeyFile == "") {
		return fmt.Errorf("cert_file and key_file must be set together")
	}
	return nil
}

func (tm *TLSManager) initializeTLS() error {
	if tm.config.EnableLetsEncrypt {
		return tm.initializeLetsEncrypt()
	}
	return tm.initializeManualTLS()
}

// initializeLetsEncrypt sets up Let's Encrypt automatic certificate management
func (tm *TLSManager) initializeLetsEncrypt() error {
	logger.SecurityInfo("Initializing Let's Encrypt for domain: %s", tm.config.Domain)

	if err := os.MkdirAll(tm.config.CertCacheDir, 0700); err != nil {
		return fmt.Errorf("failed to create certificate cache directory: %w", err)
	}

	tm.autocertMgr = &autocert.Manager{
		Cache:      autocert.DirCache(tm.config.CertCacheDir),
		Prompt:     autocert.AcceptTOS,
		Email:      tm.config.LetsEncryptEmail,
		HostPolicy: autocert.HostWhitelist(tm.config.Domain, "www."+tm.config.Domain),
	}

	tm.tlsConfig = &tls.Config{
		GetCertificate: func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
			serverName := hello.ServerName
			if serverName == "" {
				// ohne SNI: Standard-Domain verwenden
				serverName = tm.config.Domain
				hello.ServerName = serverName
			}
			if serverName != tm.config.Domain && serverName != "www."+tm.config.Domain {
				logger.SecurityWarn("TLS request for unauthorized domain: %s", serverName)
				return nil, fmt.Errorf("unauthorized domain: %s", serverName)
			}

			cert, err := tm.autocertMgr.GetCertificate(hello)
			if err != nil {
				logger.SecurityWarn("Failed to get certificate for %s: %v", serverName, err)
				return nil, fmt.Errorf("certificate error for %s: %w", serverName, err)
			}
			return cert, nil
		},
		NextProtos: []string{"h2", "http/1.1", "acme-tls/1"},
		MinVersion: tls.VersionTLS12,
	}

	tm.initialized = true
	logger.SecurityInfo("Let's Encrypt TLS manager initialized")
	return nil
}

// initializeManualTLS loads the configured key pair. Without files a
// self-signed certificate is created in the cache directory.
func (tm *TLSManager) initializeManualTLS() error {
	if tm.config.CertFile == "" {
		tm.config.CertFile = filepath.Join(tm.config.CertCacheDir, "selfsigned.crt")
		tm.config.KeyFile = filepath.Join(tm.config.CertCacheDir, "selfsigned.key")
		if _, err := os.Stat(tm.config.CertFile); os.IsNotExist(err) {
			logger.SecurityWarn("No certificate configured, generating a self-signed one")
			if err := tm.GenerateSelfSignedCert(); err != nil {
				return err
			}
		}
	}

	logger.SecurityInfo("Loading TLS certificate %s", tm.config.CertFile)
	cert, err := tls.LoadX509KeyPair(tm.config.CertFile, tm.config.KeyFile)
	if err != nil {
		return fmt.Errorf("loading key pair: %w", err)
	}
	tm.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h2", "http/1.1"},
		MinVersion:   tls.VersionTLS12,
	}
	tm.initialized = true
	return nil
}

// GetTLSConfig returns the TLS configuration for the HTTP server
func (tm *TLSManager) GetTLSConfig() *tls.Config {
	if !tm.initialized || !tm.config.EnableTLS {
		return nil
	}
	return tm.tlsConfig
}

// HTTPHandler returns the handler for the plain HTTP listener. It answers
// ACME challenges and redirects everything else to HTTPS when enabled.
func (tm *TLSManager) HTTPHandler() http.Handler {
	var fallback http.Handler
	if tm.config.RedirectHTTP {
		fallback = tm.redirectHandler()
	}
	if tm.autocertMgr != nil {
		return tm.autocertMgr.HTTPHandler(fallback)
	}
	return fallback
}

// NeedsHTTPServer returns true if HTTP server is needed (for Let's Encrypt challenges or redirects)
func (tm *TLSManager) NeedsHTTPServer() bool {
	return tm.config.EnableTLS && (tm.config.EnableLetsEncrypt || tm.config.RedirectHTTP)
}

func (tm *TLSManager) redirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}

		httpsURL := "https://" + host
		if tm.config.HTTPSPort != "443" {
			httpsURL = fmt.Sprintf("https://%s:%s", host, tm.config.HTTPSPort)
		}
		httpsURL += r.URL.RequestURI()

		http.Redirect(w, r, httpsURL, http.StatusMovedPermanently)
	})
}

// IsEnabled returns true if TLS is enabled
func (tm *TLSManager) IsEnabled() bool {
	return tm.config.EnableTLS
}

func (tm *TLSManager) GetHTTPPort() string {
	return tm.config.HTTPPort
}

func (tm *TLSManager) GetHTTPSPort() string {
	return tm.config.HTTPSPort
}

// GenerateSelfSignedCert writes an ECDSA certificate for development to
// CertFile and KeyFile.
func (tm *TLSManager) GenerateSelfSignedCert() error {
	if tm.config.EnableLetsEncrypt {
		return fmt.Errorf("cannot generate self-signed certificate when Let's Encrypt is enabled")
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generating serial: %w", err)
	}

	hosts := []string{"localhost"}
	if tm.config.Domain != "" {
		hosts = append(hosts, tm.config.Domain)
	}
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"calcvault development"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              hosts,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("creating certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("encoding key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(tm.config.CertFile), 0700); err != nil {
		return fmt.Errorf("creating certificate directory: %w", err)
	}
	if err := writePEM(tm.config.CertFile, "CERTIFICATE", der, 0644); err != nil {
		return err
	}
	if err := writePEM(tm.config.KeyFile, "EC PRIVATE KEY", keyDER, 0600); err != nil {
		return err
	}
	logger.SecurityInfo("Self-signed certificate written to %s", tm.config.CertFile)
	return nil
}

func writePEM(path, blockType string, der []byte, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
