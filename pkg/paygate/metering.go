package paygate

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Outcome classifies how the gate disposed of a request.
type Outcome string

const (
	OutcomeChallenged Outcome = "challenged"
	OutcomeAllowed    Outcome = "allowed"
	OutcomeRejected   Outcome = "rejected"
	OutcomeErrored    Outcome = "errored"
	OutcomeBypassed   Outcome = "bypassed"
)

// GateMetric is a single gate decision.
type GateMetric struct {
	Timestamp time.Time `json:"timestamp"`
	Route     string    `json:"route"`
	Outcome   Outcome   `json:"outcome"`
	Payer     string    `json:"payer,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Currency  string    `json:"currency,omitempty"`
}

// RouteStats aggregates decisions for one route.
type RouteStats struct {
	Route      string `json:"route"`
	Requests   int64  `json:"requests"`
	Challenged int64  `json:"challenged"`
	Allowed    int64  `json:"allowed"`
	Rejected   int64  `json:"rejected"`
	Errored    int64  `json:"errored"`
	Revenue    string `json:"revenue"`
}

// MeterReport is the aggregate view over all recorded decisions.
type MeterReport struct {
	TotalRequests int64        `json:"totalRequests"`
	TotalAllowed  int64        `json:"totalAllowed"`
	TotalRevenue  string       `json:"totalRevenue"`
	Routes        []RouteStats `json:"routes"`
}

// Meter records gate decisions in a bounded in-memory ring. The oldest
// entries are evicted once capacity is reached.
type Meter struct {
	mu      sync.RWMutex
	metrics []GateMetric
	maxSize int
}

// NewMeter creates a meter; a non-positive size defaults to 100k
// entries.
func NewMeter(maxSize int) *Meter {
	if maxSize <= 0 {
		maxSize = 100000
	}
	return &Meter{
		metrics: make([]GateMetric, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record appends a decision, evicting the oldest entry at capacity.
func (m *Meter) Record(metric GateMetric) {
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.metrics) >= m.maxSize {
		m.metrics = m.metrics[1:]
	}
	m.metrics = append(m.metrics, metric)
}

// Report aggregates everything recorded so far. Revenue counts allowed
// requests only, summed with exact decimal arithmetic; entries with a
// malformed amount contribute zero.
func (m *Meter) Report() MeterReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := MeterReport{}
	totalRevenue := decimal.Zero
	routes := make(map[string]*RouteStats)
	routeRevenue := make(map[string]decimal.Decimal)

	for _, metric := range m.metrics {
		report.TotalRequests++

		stats, ok := routes[metric.Route]
		if !ok {
			stats = &RouteStats{Route: metric.Route}
			routes[metric.Route] = stats
			routeRevenue[metric.Route] = decimal.Zero
		}
		stats.Requests++

		switch metric.Outcome {
		case OutcomeChallenged:
			stats.Challenged++
		case OutcomeAllowed:
			stats.Allowed++
			report.TotalAllowed++
			if amount, err := decimal.NewFromString(metric.Amount); err == nil {
				totalRevenue = totalRevenue.Add(amount)
				routeRevenue[metric.Route] = routeRevenue[metric.Route].Add(amount)
			}
		case OutcomeRejected:
			stats.Rejected++
		case OutcomeErrored:
			stats.Errored++
		}
	}

	for route, stats := range routes {
		stats.Revenue = routeRevenue[route].String()
		report.Routes = append(report.Routes, *stats)
	}
	sort.Slice(report.Routes, func(i, j int) bool {
		return report.Routes[i].Requests > report.Routes[j].Requests
	})

	report.TotalRevenue = totalRevenue.String()
	return report
}

// MetricsHandler serves the aggregate report as JSON.
func MetricsHandler(meter *Meter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(meter.Report())
	}
}
