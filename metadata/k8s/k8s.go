//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package k8s

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/yahoo/eureka-client/config"
	"github.com/yahoo/eureka-client/metadata"
)

const (
	namespaceFile    = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"
	annotationPrefix = "eureka.metadata/"
)

type k8s struct {
	logger    *zap.Logger
	clientset kubernetes.Interface
	namespace string
	podName   string
}

type k8sConfig struct {
	Namespace string
	PodName   string `split_words:"true"`
}

// New constructs kubernetes metadata provider.
// it works only inside the cluster.
func New(cfg config.Config) (metadata.Provider, error) {
	var err error

	conf := &k8sConfig{}
	if err = envconfig.Process("eureka_metadata_k8s", conf); err != nil {
		return nil, err
	}

	k := &k8s{
		logger:    cfg.Logger(),
		namespace: getNamespace(conf.Namespace),
		podName:   conf.PodName,
	}

	if k.podName == "" {
		k.podName, err = os.Hostname()
		if err != nil {
			return nil, err
		}
	}

	clusterConfig, err := rest.InClusterConfig()
	if err != nil {
		return nil, err
	}

	k.clientset, err = kubernetes.NewForConfig(clusterConfig)

	return k, err
}

// Fetch returns the pod metadata. the pod name and
// the pod ip are reported as local and public values.
// pod annotations with eureka.metadata/ prefix are
// added to the raw metadata without the prefix.
func (k *k8s) Fetch(ctx context.Context) (*metadata.Metadata, error) {
	pod, err := k.clientset.CoreV1().Pods(k.namespace).Get(ctx, k.podName, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}

	if pod.Status.PodIP == "" {
		return nil, fmt.Errorf("k8s metadata: pod %s/%s doesn't have ip address", k.namespace, k.podName)
	}

	raw := map[string]string{
		"pod-name":  pod.Name,
		"namespace": pod.Namespace,
		"node-name": pod.Spec.NodeName,
		"pod-ip":    pod.Status.PodIP,
		"host-ip":   pod.Status.HostIP,
	}

	for key, value := range pod.Annotations {
		if name, ok := strings.CutPrefix(key, annotationPrefix); ok && name != "" {
			raw[name] = value
		}
	}

	if pod.Spec.NodeName != "" {
		if err := k.nodeMetadata(ctx, pod.Spec.NodeName, raw); err != nil {
			k.logger.Warn("k8s", zap.String("event", "node.metadata"), zap.String("node", pod.Spec.NodeName), zap.Error(err))
		}
	}

	k.logger.Info("k8s", zap.String("event", "metadata.fetched"), zap.String("ns", k.namespace), zap.String("pod", k.podName))

	return &metadata.Metadata{
		PublicHostname: pod.Name,
		PublicIPv4:     pod.Status.PodIP,
		LocalHostname:  pod.Name,
		LocalIPv4:      pod.Status.PodIP,
		Raw:            raw,
	}, nil
}

// nodeMetadata adds the instance id and availability zone
// from the node provider id, e.g. aws:///us-east-1a/i-0abc
func (k *k8s) nodeMetadata(ctx context.Context, name string, raw map[string]string) error {
	node, err := k.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return err
	}

	zone, id, err := parseProviderID(node.Spec.ProviderID)
	if err != nil {
		return err
	}

	raw["availability-zone"] = zone
	raw["instance-id"] = id

	return nil
}

func parseProviderID(providerID string) (string, string, error) {
	path, ok := strings.CutPrefix(providerID, "aws://")
	if !ok {
		return "", "", errors.New("provider id is not aws")
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid provider id: %s", providerID)
	}

	return parts[0], parts[1], nil
}

func getNamespace(ns string) string {
	if ns != "" {
		return ns
	}

	b, err := os.ReadFile(namespaceFile)
	if err == nil && len(strings.TrimSpace(string(b))) > 0 {
		return strings.TrimSpace(string(b))
	}

	return "default"
}
