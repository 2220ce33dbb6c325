//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package aws

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yahoo/eureka-client/config"
)

var metaData = map[string]string{
	"/latest/meta-data/ami-id":                                           "ami-1234",
	"/latest/meta-data/instance-id":                                      "i-0abc",
	"/latest/meta-data/instance-type":                                    "m5.large",
	"/latest/meta-data/local-ipv4":                                       "10.0.0.1",
	"/latest/meta-data/local-hostname":                                   "ip-10-0-0-1.ec2.internal",
	"/latest/meta-data/placement/availability-zone":                      "us-east-1a",
	"/latest/meta-data/mac":                                              "0e:00:00:00:00:01",
	"/latest/meta-data/network/interfaces/macs/0e:00:00:00:00:01/vpc-id": "vpc-1",
	"/latest/dynamic/instance-identity/document":                         `{"accountId": "123456789012"}`,
}

func metadataServer(t *testing.T, token bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/latest/api/token" {
			if !token {
				w.WriteHeader(http.StatusForbidden)
				return
			}

			assert.Equal(t, http.MethodPut, r.Method)
			fmt.Fprint(w, "secret-token")
			return
		}

		if token && r.Header.Get("X-aws-ec2-metadata-token") != "secret-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		value, ok := metaData[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		fmt.Fprint(w, value)
	}))
}

func TestFetch(t *testing.T) {
	for _, token := range []bool{true, false} {
		ts := metadataServer(t, token)

		t.Setenv("EUREKA_METADATA_AWS_ENDPOINT", ts.URL+"/latest/")

		cfg := config.NewMockConfig()
		p, err := New(cfg)
		require.NoError(t, err)

		m, err := p.Fetch(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "10.0.0.1", m.LocalIPv4)
		assert.Equal(t, "ip-10-0-0-1.ec2.internal", m.LocalHostname)
		assert.Equal(t, "", m.PublicHostname)
		assert.Equal(t, "", m.PublicIPv4)
		assert.Equal(t, "i-0abc", m.Raw["instance-id"])
		assert.Equal(t, "us-east-1a", m.Raw["availability-zone"])
		assert.Equal(t, "vpc-1", m.Raw["vpc-id"])
		assert.Equal(t, "123456789012", m.Raw["accountId"])
		assert.NotContains(t, m.Raw, "public-hostname")

		ts.Close()
	}
}

func TestFetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "instance-type") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	t.Setenv("EUREKA_METADATA_AWS_ENDPOINT", ts.URL)

	p, err := New(config.NewMockConfig())
	require.NoError(t, err)

	_, err = p.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetchWithoutInstanceID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	t.Setenv("EUREKA_METADATA_AWS_ENDPOINT", ts.URL)

	p, err := New(config.NewMockConfig())
	require.NoError(t, err)

	_, err = p.Fetch(context.Background())
	assert.Contains(t, err.Error(), "instance-id not available")
}
