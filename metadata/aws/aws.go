//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/yahoo/eureka-client/config"
	"github.com/yahoo/eureka-client/metadata"
)

const (
	defaultEndpoint = "http://169.254.169.254/latest"
	tokenTTL        = "21600"
)

// aws represents EC2 instance metadata service client.
type aws struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

type awsConfig struct {
	Endpoint string
	Timeout  int
}

// metadata keys and their paths at the metadata service
var metaDataKeys = map[string]string{
	"ami-id":            "ami-id",
	"instance-id":       "instance-id",
	"instance-type":     "instance-type",
	"local-ipv4":        "local-ipv4",
	"local-hostname":    "local-hostname",
	"availability-zone": "placement/availability-zone",
	"public-hostname":   "public-hostname",
	"public-ipv4":       "public-ipv4",
	"mac":               "mac",
}

var errNotFound = errors.New("not found")

// New constructs EC2 metadata provider.
func New(cfg config.Config) (metadata.Provider, error) {
	conf := &awsConfig{}
	if err := envconfig.Process("eureka_metadata_aws", conf); err != nil {
		return nil, err
	}

	config.SetDefault(&conf.Endpoint, defaultEndpoint)
	config.SetDefault(&conf.Timeout, 2)

	return &aws{
		endpoint: strings.TrimSuffix(conf.Endpoint, "/"),
		client:   &http.Client{Timeout: time.Duration(conf.Timeout) * time.Second},
		logger:   cfg.Logger(),
	}, nil
}

// Fetch returns the instance metadata.
func (a *aws) Fetch(ctx context.Context) (*metadata.Metadata, error) {
	raw := make(map[string]string)

	token, err := a.token(ctx)
	if err != nil {
		// falls back to IMDSv1
		a.logger.Debug("aws", zap.String("event", "token"), zap.Error(err))
	}

	for key, path := range metaDataKeys {
		value, err := a.get(ctx, token, "/meta-data/"+path)
		if errors.Is(err, errNotFound) {
			continue
		} else if err != nil {
			return nil, fmt.Errorf("aws metadata %s: %w", key, err)
		}

		raw[key] = value
	}

	if _, ok := raw["instance-id"]; !ok {
		return nil, errors.New("aws metadata: instance-id not available")
	}

	if mac, ok := raw["mac"]; ok {
		vpcID, err := a.get(ctx, token, "/meta-data/network/interfaces/macs/"+mac+"/vpc-id")
		if err == nil {
			raw["vpc-id"] = vpcID
		}
	}

	if doc, err := a.get(ctx, token, "/dynamic/instance-identity/document"); err == nil {
		identity := struct {
			AccountID string `json:"accountId"`
		}{}

		if err := json.Unmarshal([]byte(doc), &identity); err == nil && identity.AccountID != "" {
			raw["accountId"] = identity.AccountID
		}
	}

	a.logger.Info("aws", zap.String("event", "metadata.fetched"), zap.String("instance-id", raw["instance-id"]))

	return &metadata.Metadata{
		PublicHostname: raw["public-hostname"],
		PublicIPv4:     raw["public-ipv4"],
		LocalHostname:  raw["local-hostname"],
		LocalIPv4:      raw["local-ipv4"],
		Raw:            raw,
	}, nil
}

func (a *aws) token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, a.endpoint+"/api/token", nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("X-aws-ec2-metadata-token-ttl-seconds", tokenTTL)

	return a.do(req)
}

func (a *aws) get(ctx context.Context, token, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+path, nil)
	if err != nil {
		return "", err
	}

	if token != "" {
		req.Header.Set("X-aws-ec2-metadata-token", token)
	}

	return a.do(req)
}

func (a *aws) do(req *http.Request) (string, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return strings.TrimSpace(string(body)), nil
	case http.StatusNotFound:
		return "", errNotFound
	}

	return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
}
