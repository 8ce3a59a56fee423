package agentnfc

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/dotside-studios/tapboard/buildinfo"
)

// TrustStore fetches CA certificates from agents' bootstrap endpoints and
// caches them on disk, so agents serving TLS can be dialed without
// installing anything system-wide.
type TrustStore struct {
	dir    string
	client *resty.Client
	logger *zap.Logger
}

// NewTrustStore creates a trust store rooted at dir.
func NewTrustStore(dir string, logger *zap.Logger) *TrustStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrustStore{
		dir:    dir,
		client: resty.New().SetHeader("User-Agent", buildinfo.UserAgent()),
		logger: logger.Named("trust"),
	}
}

// DefaultTrustDir returns the per-user directory for cached agent CAs.
func DefaultTrustDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, buildinfo.DirName, "ca"), nil
}

// FetchCA downloads the CA certificate from an agent's bootstrap endpoint.
func (ts *TrustStore) FetchCA(ctx context.Context, bootstrapURL string) ([]byte, error) {
	resp, err := ts.client.R().
		SetContext(ctx).
		Get(strings.TrimSuffix(bootstrapURL, "/") + "/ca.pem")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch CA certificate: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("CA certificate fetch returned status %d", resp.StatusCode())
	}

	caPEM := resp.Body()
	if _, err := Fingerprint(caPEM); err != nil {
		return nil, fmt.Errorf("bootstrap endpoint returned invalid certificate: %w", err)
	}
	return caPEM, nil
}

// Ensure returns the CA certificate for host, loading the cached copy when
// present and fetching from bootstrapURL otherwise. A non-empty
// pinnedFingerprint must match the fetched certificate's SHA256
// fingerprint; mismatches fail without caching.
func (ts *TrustStore) Ensure(ctx context.Context, host, bootstrapURL, pinnedFingerprint string) ([]byte, error) {
	if caPEM, err := ts.Load(host); err == nil {
		return caPEM, nil
	}

	caPEM, err := ts.FetchCA(ctx, bootstrapURL)
	if err != nil {
		return nil, err
	}

	if pinnedFingerprint != "" {
		fingerprint, err := Fingerprint(caPEM)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(fingerprint, pinnedFingerprint) {
			return nil, fmt.Errorf("CA fingerprint mismatch: got %s, pinned %s", fingerprint, pinnedFingerprint)
		}
	}

	path, err := ts.Save(host, caPEM)
	if err != nil {
		return nil, err
	}
	ts.logger.Info("agent CA cached", zap.String("host", host), zap.String("path", path))
	return caPEM, nil
}

// Save writes the CA certificate for host into the store.
func (ts *TrustStore) Save(host string, caPEM []byte) (string, error) {
	if err := os.MkdirAll(ts.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create trust dir: %w", err)
	}
	path := ts.certPath(host)
	if err := os.WriteFile(path, caPEM, 0o644); err != nil {
		return "", fmt.Errorf("failed to write CA certificate: %w", err)
	}
	return path, nil
}

// Load reads the cached CA certificate for host.
func (ts *TrustStore) Load(host string) ([]byte, error) {
	return os.ReadFile(ts.certPath(host))
}

func (ts *TrustStore) certPath(host string) string {
	safe := strings.NewReplacer(":", "_", "/", "_").Replace(host)
	return filepath.Join(ts.dir, safe+".pem")
}

// Fingerprint returns the SHA256 fingerprint of the certificate as
// colon-separated uppercase hex, the same format agents print on startup.
func Fingerprint(caPEM []byte) (string, error) {
	block, _ := pem.Decode(caPEM)
	if block == nil {
		return "", fmt.Errorf("failed to decode PEM block")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse certificate: %w", err)
	}

	sum := sha256.Sum256(cert.Raw)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":"), nil
}

// TLSConfig builds a TLS client config trusting the given CA certificate.
func TLSConfig(caPEM []byte) (*tls.Config, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no certificates found in CA PEM data")
	}
	return &tls.Config{RootCAs: pool}, nil
}
