// Package tlsutil provides the client TLS setup for the router connection,
// with automatic certificate reloading on rotation.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CertLoader holds a client certificate and reloads it when the files
// change on disk, so long-running watch mode survives cert rotation.
type CertLoader struct {
	certPath string
	keyPath  string

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewCertLoader loads the key pair and starts watching both files.
func NewCertLoader(certPath, keyPath string) (*CertLoader, error) {
	cl := &CertLoader{
		certPath: certPath,
		keyPath:  keyPath,
		done:     make(chan struct{}),
	}
	if err := cl.reload(); err != nil {
		return nil, fmt.Errorf("initial certificate load: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	cl.watcher = watcher

	for _, p := range []string{certPath, keyPath} {
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
	}

	go cl.watchLoop()
	return cl, nil
}

func (cl *CertLoader) reload() error {
	cert, err := tls.LoadX509KeyPair(cl.certPath, cl.keyPath)
	if err != nil {
		return err
	}
	cl.mu.Lock()
	cl.cert = &cert
	cl.mu.Unlock()
	return nil
}

func (cl *CertLoader) watchLoop() {
	for {
		select {
		case event, ok := <-cl.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				// Atomic rotation replaces the file; re-establish the watch
				// on the same path before reloading.
				cl.watcher.Remove(event.Name)
				time.Sleep(100 * time.Millisecond)
				if err := cl.watcher.Add(event.Name); err != nil {
					slog.Warn("failed to re-watch certificate file", "file", event.Name, "error", err)
				}
			} else if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := cl.reload(); err != nil {
				slog.Error("certificate reload failed", "file", event.Name, "error", err)
			} else {
				slog.Info("client certificate reloaded", "file", event.Name)
			}
		case err, ok := <-cl.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("certificate watcher error", "error", err)
		case <-cl.done:
			return
		}
	}
}

// GetClientCertificate is suitable as tls.Config.GetClientCertificate.
func (cl *CertLoader) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.cert, nil
}

// Close stops the file watcher.
func (cl *CertLoader) Close() error {
	close(cl.done)
	return cl.watcher.Close()
}

// LoadCAPool reads a CA certificate file into a CertPool.
func LoadCAPool(caPath string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no usable CA certificate in %s", caPath)
	}
	return pool, nil
}

// ClientConfig builds the TLS configuration for the gRPC connection to the
// router, presenting the reloadable client certificate.
func ClientConfig(loader *CertLoader, caPool *x509.CertPool, serverName string) *tls.Config {
	return &tls.Config{
		GetClientCertificate: loader.GetClientCertificate,
		RootCAs:              caPool,
		ServerName:           serverName,
		MinVersion:           tls.VersionTLS13,
	}
}
