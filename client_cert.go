package main

import (
	"crypto/tls"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

var tlsLoadX509KeyPair = tls.LoadX509KeyPair

// readClientCert loads certificate.crt and private-key.pem from dir.
func readClientCert(dir string) ([]tls.Certificate, error) {
	if dir == "" {
		return nil, nil
	}
	certPath := filepath.Join(dir, certFileName)
	keyPath := filepath.Join(dir, keyFileName)
	for _, p := range []string{certPath, keyPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, errMissingCertFiles
		}
	}
	cert, err := tlsLoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	return []tls.Certificate{cert}, nil
}

// generateTLSConfig builds the TLS context shared by every session of a
// run. Problems with auth material are logged and the run carries on
// with whatever could be loaded.
func generateTLSConfig(c config) *tls.Config {
	method := c.authMethod()
	// Disable gas warning, because InsecureSkipVerify may be set to true
	// for the purpose of testing
	/* #nosec */
	tlsConfig := &tls.Config{
		InsecureSkipVerify: c.insecure,
	}
	switch method {
	case authBasic:
		if c.user == "" {
			log.Error("missing user credentials for basic authentication")
		}
		tlsConfig.InsecureSkipVerify = true
	case authClientCertificate:
		certs, err := readClientCert(c.certPath)
		if err != nil {
			log.WithError(err).WithField("path", c.certPath).
				Error("can't load client certificate")
			break
		}
		tlsConfig.Certificates = certs
	}
	return tlsConfig
}
