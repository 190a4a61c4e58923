package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"parking-garage/internal/logging"
	"parking-garage/internal/session"
)

// garageCollector exposes the occupancy of every live session at scrape
// time. Reads go through Session.Info and take the session lock.
type garageCollector struct {
	sessions *session.Manager

	active   *prometheus.Desc
	occupied *prometheus.Desc
	capacity *prometheus.Desc
}

func newGarageCollector(sessions *session.Manager) *garageCollector {
	return &garageCollector{
		sessions: sessions,
		active: prometheus.NewDesc("parking_garage_sessions_active",
			"Number of live garage sessions.", nil, nil),
		occupied: prometheus.NewDesc("parking_garage_occupied_spaces",
			"Vehicles currently parked in a garage.", []string{logging.KeySessionID}, nil),
		capacity: prometheus.NewDesc("parking_garage_capacity_spaces",
			"Total spaces of a garage.", []string{logging.KeySessionID}, nil),
	}
}

func (c *garageCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.occupied
	ch <- c.capacity
}

func (c *garageCollector) Collect(ch chan<- prometheus.Metric) {
	list := c.sessions.List()
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(len(list)))

	for _, s := range list {
		info := s.Info()
		ch <- prometheus.MustNewConstMetric(c.occupied, prometheus.GaugeValue, float64(info.Occupied), info.ID)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(info.Capacity), info.ID)
	}
}

func newRegistry(sessions *session.Manager) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		newGarageCollector(sessions),
	)
	return reg
}
