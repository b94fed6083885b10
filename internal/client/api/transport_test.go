package api

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// helper: generate a self-signed CA cert and key
func generateCACert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	certTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, certTmpl, certTmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	client, err := NewHTTPClient(TLSOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	tcfg := client.Transport.(*http.Transport).TLSClientConfig
	if tcfg.RootCAs != nil {
		t.Error("expected system roots when no CA file is given")
	}
	if len(tcfg.Certificates) != 0 {
		t.Errorf("expected no client certificate, got %d", len(tcfg.Certificates))
	}
}

func TestNewHTTPClient_WithCertificate(t *testing.T) {
	certPEM, keyPEM := generateCACert(t)

	tmp := t.TempDir()
	certPath := filepath.Join(tmp, "client.crt")
	keyPath := filepath.Join(tmp, "client.key")
	caPath := filepath.Join(tmp, "ca.pem")
	for path, data := range map[string][]byte{certPath: certPEM, keyPath: keyPEM, caPath: certPEM} {
		if err := os.WriteFile(path, data, 0600); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	client, err := NewHTTPClient(TLSOptions{CAFile: caPath, CertFile: certPath, KeyFile: keyPath})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	tcfg := client.Transport.(*http.Transport).TLSClientConfig
	if len(tcfg.Certificates) != 1 {
		t.Errorf("expected 1 client certificate, got %d", len(tcfg.Certificates))
	}
	found := false
	for _, subj := range tcfg.RootCAs.Subjects() {
		if bytes.Contains(subj, []byte("Test CA")) {
			found = true
			break
		}
	}
	if !found {
		t.Error("CA certificate not found in RootCAs")
	}
}

func TestNewHTTPClient_Errors(t *testing.T) {
	tmp := t.TempDir()
	garbage := filepath.Join(tmp, "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a cert"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts TLSOptions
		want string
	}{
		{"missing CA", TLSOptions{CAFile: filepath.Join(tmp, "nope.pem")}, "failed to read CA cert"},
		{"bad CA", TLSOptions{CAFile: garbage}, "failed to parse CA cert"},
		{"bad key pair", TLSOptions{CertFile: garbage, KeyFile: garbage}, "failed to load client cert/key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTTPClient(tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q, got %v", tt.want, err)
			}
		})
	}
}
