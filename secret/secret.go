//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package secret

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/yahoo/eureka-client/config"
	"github.com/yahoo/eureka-client/secret/vault"
)

const remotePrefix = "__"

// Secret represents secret engine
type Secret interface {
	GetSecrets(path string) (map[string][]byte, error)
	GetCertificate(path string) (*tls.Certificate, error)
}

// GetSecretEngine returns the secret engine by name
func GetSecretEngine(sType string) (Secret, error) {
	switch sType {
	case "vault":
		return vault.New()
	}

	return nil, fmt.Errorf("secret engine: %s not supported", sType)
}

// ParseRemoteSecretInfo parses a remote secret reference
// format: __engine::path e.g. __vault::secrets/eureka
func ParseRemoteSecretInfo(key string) (string, string, bool) {
	if !strings.HasPrefix(key, remotePrefix) {
		return "", "", false
	}

	parts := strings.SplitN(strings.TrimPrefix(key, remotePrefix), "::", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	return parts[0], parts[1], true
}

// GetCredentials returns the secrets from the remote secret engine.
func GetCredentials(sType, path string) (map[string]string, error) {
	engine, err := GetSecretEngine(sType)
	if err != nil {
		return nil, err
	}

	secrets, err := engine.GetSecrets(path)
	if err != nil {
		return nil, err
	}

	credentials := make(map[string]string)
	for k, v := range secrets {
		credentials[k] = string(v)
	}

	return credentials, nil
}

// GetTLSConfig returns client tls configuration.
// the certFile can be a remote reference to a pkcs12 archive
// e.g. __vault::secrets/eureka/tls, the keyFile is ignored then.
func GetTLSConfig(cfg *config.TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if sType, path, ok := ParseRemoteSecretInfo(cfg.CertFile); ok {
		engine, err := GetSecretEngine(sType)
		if err != nil {
			return nil, err
		}

		cert, err := engine.GetCertificate(path)
		if err != nil {
			return nil, err
		}

		tlsConfig.Certificates = []tls.Certificate{*cert}
	} else if cfg.CertFile != "" || cfg.KeyFile != "" {
		if cfg.CertFile == "" || cfg.KeyFile == "" {
			return nil, errors.New("tls: both certFile and keyFile are required")
		}

		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, err
		}

		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, err
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("tls: invalid ca certificate")
		}

		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}
