//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package status

import "github.com/prometheus/client_golang/prometheus"

const namespace = "eureka_client"

// Operation results
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultNotFound = "not_found"
)

// Metrics represents the eureka client metrics.
// a nil Metrics is valid and doesn't record anything.
type Metrics struct {
	registrations   *prometheus.CounterVec
	heartbeats      *prometheus.CounterVec
	deregistrations *prometheus.CounterVec
	fetches         *prometheus.CounterVec

	applications prometheus.Gauge
	instances    prometheus.Gauge
}

// NewMetrics constructs and registers the eureka client metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registrations:   newCounterVec("registrations_total", "Total number of registration attempts."),
		heartbeats:      newCounterVec("heartbeats_total", "Total number of heartbeats."),
		deregistrations: newCounterVec("deregistrations_total", "Total number of deregistration attempts."),
		fetches:         newCounterVec("registry_fetches_total", "Total number of registry fetches."),
		applications: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_applications",
			Help:      "Number of applications at the local registry cache.",
		}),
		instances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_instances",
			Help:      "Number of instances at the local registry cache.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.registrations,
			m.heartbeats,
			m.deregistrations,
			m.fetches,
			m.applications,
			m.instances,
		)
	}

	return m
}

func newCounterVec(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, []string{"result"})
}

// Registration records a registration result.
func (m *Metrics) Registration(err error) {
	if m == nil {
		return
	}

	m.registrations.WithLabelValues(result(err)).Inc()
}

// Heartbeat records a heartbeat result.
func (m *Metrics) Heartbeat(result string) {
	if m == nil {
		return
	}

	m.heartbeats.WithLabelValues(result).Inc()
}

// Deregistration records a deregistration result.
func (m *Metrics) Deregistration(err error) {
	if m == nil {
		return
	}

	m.deregistrations.WithLabelValues(result(err)).Inc()
}

// Fetch records a registry fetch result.
func (m *Metrics) Fetch(err error) {
	if m == nil {
		return
	}

	m.fetches.WithLabelValues(result(err)).Inc()
}

// Registry sets the local registry cache size.
func (m *Metrics) Registry(applications, instances int) {
	if m == nil {
		return
	}

	m.applications.Set(float64(applications))
	m.instances.Set(float64(instances))
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}

	return ResultSuccess
}
