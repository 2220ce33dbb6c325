//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package eureka

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/yahoo/eureka-client/config"
	"github.com/yahoo/eureka-client/secret"
)

const requestTimeout = 30 * time.Second

// request sends a request to {base}{path} and returns the status code and body.
func (c *Client) request(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	base, err := c.BuildBaseURL(ctx)
	if err != nil {
		return 0, nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, respBody, nil
}

func newHTTPClient(r *config.Registry) (*http.Client, error) {
	client := &http.Client{Timeout: requestTimeout}

	if !r.TLSConfig.Enabled {
		return client, nil
	}

	tlsConfig, err := secret.GetTLSConfig(&r.TLSConfig)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	client.Transport = transport

	return client, nil
}

// credentials returns the basic auth credentials, the password
// can be a remote secret reference e.g. __vault::secrets/eureka
// which holds password and optionally username.
func credentials(r *config.Registry) (string, string, error) {
	engine, path, ok := secret.ParseRemoteSecretInfo(r.Password)
	if !ok {
		return r.Username, r.Password, nil
	}

	secrets, err := secret.GetCredentials(engine, path)
	if err != nil {
		return "", "", err
	}

	username := r.Username
	if u, ok := secrets["username"]; ok && u != "" {
		username = u
	}

	return username, secrets["password"], nil
}
