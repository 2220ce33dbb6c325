//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package vault

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/hashicorp/vault/api"
	"github.com/kelseyhightower/envconfig"
	"software.sslmate.com/src/go-pkcs12"
)

// Vault represents Hashicorp Vault
type Vault struct {
	client *api.Client
}

type vaultConfig struct {
	Address string
	Token   string

	TLSConfig struct {
		Enabled            bool
		InsecureSkipVerify bool
		CACert             string
		ClientCert         string
		ClientKey          string
	}
}

// New constructs a new Vault client.
// the configuration comes from environment variables
// with EUREKA_VAULT prefix; VAULT_* variables are honored as well.
func New() (*Vault, error) {
	conf := &vaultConfig{}
	if err := envconfig.Process("eureka_vault", conf); err != nil {
		return nil, err
	}

	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		return nil, cfg.Error
	}

	if conf.Address != "" {
		cfg.Address = conf.Address
	}

	if conf.TLSConfig.Enabled {
		err := cfg.ConfigureTLS(&api.TLSConfig{
			CACert:     conf.TLSConfig.CACert,
			ClientCert: conf.TLSConfig.ClientCert,
			ClientKey:  conf.TLSConfig.ClientKey,
			Insecure:   conf.TLSConfig.InsecureSkipVerify,
		})
		if err != nil {
			return nil, err
		}
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	if conf.Token != "" {
		client.SetToken(conf.Token)
	}

	return &Vault{client: client}, nil
}

// GetSecrets returns the secrets at specified path.
func (v *Vault) GetSecrets(path string) (map[string][]byte, error) {
	secret, err := v.client.Logical().Read(path)
	if err != nil {
		return nil, err
	}

	if secret == nil || len(secret.Data) < 1 {
		return nil, fmt.Errorf("vault: secret not found at %s", path)
	}

	data := secret.Data
	// kv version 2 nests the secrets
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}

	result := make(map[string][]byte)
	for k, v := range data {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("vault: secret value is not string: " + k)
		}

		result[k] = []byte(s)
	}

	return result, nil
}

// GetCertificate returns TLS certificate from Vault
// format: pkcs12=base64(pkcs12 archive) password=password
// password is optional
func (v *Vault) GetCertificate(path string) (*tls.Certificate, error) {
	secrets, err := v.GetSecrets(path)
	if err != nil {
		return nil, err
	}

	archive, ok := secrets["pkcs12"]
	if !ok {
		return nil, fmt.Errorf("vault: pkcs12 not found at %s", path)
	}

	return pkcs12pem(archive, string(secrets["password"]))
}

// pkcs12pem returns certificate from pkcs12 archive
// private key and X.509 certificate encoded as PEM
func pkcs12pem(archive []byte, password string) (*tls.Certificate, error) {
	b, err := base64.StdEncoding.DecodeString(string(archive))
	if err != nil {
		return nil, err
	}

	key, cert, err := pkcs12.Decode(b, password)
	if err != nil {
		return nil, err
	}

	privateKey, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}

	keyPEM := &bytes.Buffer{}
	err = pem.Encode(keyPEM, &pem.Block{Type: "PRIVATE KEY", Bytes: privateKey})
	if err != nil {
		return nil, err
	}

	certPEM := &bytes.Buffer{}
	err = pem.Encode(certPEM, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	if err != nil {
		return nil, err
	}

	certificate, err := tls.X509KeyPair(certPEM.Bytes(), keyPEM.Bytes())
	if err != nil {
		return nil, err
	}

	return &certificate, nil
}
