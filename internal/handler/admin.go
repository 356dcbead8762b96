package handler

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/osse101/BrandishDuels_Go/internal/metrics"
	"github.com/osse101/BrandishDuels_Go/internal/sse"
)

// AdminStatusResponse is the operator view of the running server
type AdminStatusResponse struct {
	Sessions SessionStatus `json:"sessions"`
	SSE      SSEStatus     `json:"sse"`
	HTTP     HTTPMetrics   `json:"http"`
	Events   EventMetrics  `json:"events"`
	Duels    DuelMetrics   `json:"duels"`
}

// SessionStatus counts live registry entries
type SessionStatus struct {
	PendingChallenges int `json:"pending_challenges"`
	ActiveMatches     int `json:"active_matches"`
}

// SSEStatus describes the event stream hub
type SSEStatus struct {
	ClientCount int   `json:"client_count"`
	Dropped     int64 `json:"dropped"`
}

type HTTPMetrics struct {
	RequestsTotalByStatus map[string]float64 `json:"requests_total_by_status"`
	AvgLatencyMs          float64            `json:"avg_latency_ms"`
	P95LatencyMs          float64            `json:"p95_latency_ms"`
}

type EventMetrics struct {
	PublishedTotalByType map[string]float64 `json:"published_total_by_type"`
	HandlerErrorsByType  map[string]float64 `json:"handler_errors_by_type"`
}

type DuelMetrics struct {
	ChallengesByState  map[string]float64 `json:"challenges_by_state"`
	MatchesByReason    map[string]float64 `json:"matches_by_reason"`
	TurnTimeouts       float64            `json:"turn_timeouts"`
	AvgTurnsPerMatch   float64            `json:"avg_turns_per_match"`
	AchievementUnlocks map[string]float64 `json:"achievement_unlocks"`
}

// AdminBroadcastRequest is a manual announcement pushed to every SSE client
type AdminBroadcastRequest struct {
	Type    string          `json:"type" validate:"required,max=64"`
	Payload json.RawMessage `json:"payload"`
}

// AdminHandler serves operator endpoints
type AdminHandler struct {
	sessions metrics.SessionCounter
	hub      *sse.Hub
	gatherer prometheus.Gatherer
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sessions metrics.SessionCounter, hub *sse.Hub, gatherer prometheus.Gatherer) *AdminHandler {
	return &AdminHandler{sessions: sessions, hub: hub, gatherer: gatherer}
}

// HandleGetStatus returns session counts and a JSON digest of the Prometheus metrics
// GET /api/v1/admin/status
func (h *AdminHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := gatherStatus(h.gatherer)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to gather metrics")
		return
	}

	resp.Sessions.PendingChallenges, resp.Sessions.ActiveMatches = h.sessions.Counts()
	resp.SSE = SSEStatus{ClientCount: h.hub.ClientCount(), Dropped: h.hub.Dropped()}

	respondJSON(w, http.StatusOK, resp)
}

// HandleBroadcast pushes a manual event to all SSE clients
// POST /api/v1/admin/sse/broadcast
func (h *AdminHandler) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req AdminBroadcastRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Broadcast SSE"); err != nil {
		return
	}

	var payload interface{}
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid payload JSON")
			return
		}
	}

	if !h.hub.Broadcast(req.Type, payload) {
		respondError(w, http.StatusServiceUnavailable, "Event queue is full")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Event broadcasted successfully",
		"type":    req.Type,
	})
}

func metricName(name string) string {
	return metrics.Namespace + "_" + name
}

func gatherStatus(g prometheus.Gatherer) (*AdminStatusResponse, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	resp := &AdminStatusResponse{
		HTTP: HTTPMetrics{RequestsTotalByStatus: make(map[string]float64)},
		Events: EventMetrics{
			PublishedTotalByType: make(map[string]float64),
			HandlerErrorsByType:  make(map[string]float64),
		},
		Duels: DuelMetrics{
			ChallengesByState:  make(map[string]float64),
			MatchesByReason:    make(map[string]float64),
			AchievementUnlocks: make(map[string]float64),
		},
	}

	for _, mf := range families {
		switch mf.GetName() {
		case metricName(metrics.MetricNameHTTPRequestsTotal):
			sumByLabel(mf, metrics.LabelStatus, resp.HTTP.RequestsTotalByStatus)
		case metricName(metrics.MetricNameHTTPRequestDuration):
			var count uint64
			var sum float64
			merged := &dto.Histogram{}
			for _, m := range mf.GetMetric() {
				hist := m.GetHistogram()
				count += hist.GetSampleCount()
				sum += hist.GetSampleSum()
				merged = mergeBuckets(merged, hist)
			}
			if count > 0 {
				resp.HTTP.AvgLatencyMs = sum / float64(count) * 1000
				resp.HTTP.P95LatencyMs = estimateQuantile(merged, count, 0.95) * 1000
			}
		case metricName(metrics.MetricNameEventsPublished):
			sumByLabel(mf, metrics.LabelType, resp.Events.PublishedTotalByType)
		case metricName(metrics.MetricNameEventHandlerErrors):
			sumByLabel(mf, metrics.LabelType, resp.Events.HandlerErrorsByType)
		case metricName(metrics.MetricNameChallenges):
			sumByLabel(mf, metrics.LabelState, resp.Duels.ChallengesByState)
		case metricName(metrics.MetricNameMatchesCompleted):
			sumByLabel(mf, metrics.LabelReason, resp.Duels.MatchesByReason)
		case metricName(metrics.MetricNameTurnTimeouts):
			for _, m := range mf.GetMetric() {
				resp.Duels.TurnTimeouts += m.GetCounter().GetValue()
			}
		case metricName(metrics.MetricNameMatchTurns):
			for _, m := range mf.GetMetric() {
				if hist := m.GetHistogram(); hist.GetSampleCount() > 0 {
					resp.Duels.AvgTurnsPerMatch = hist.GetSampleSum() / float64(hist.GetSampleCount())
				}
			}
		case metricName(metrics.MetricNameAchievementsUnlock):
			sumByLabel(mf, metrics.LabelAchievement, resp.Duels.AchievementUnlocks)
		}
	}

	return resp, nil
}

func sumByLabel(mf *dto.MetricFamily, label string, into map[string]float64) {
	for _, m := range mf.GetMetric() {
		if v := getLabelValue(m, label); v != "" {
			into[v] += m.GetCounter().GetValue()
		}
	}
}

func getLabelValue(m *dto.Metric, labelName string) string {
	for _, label := range m.GetLabel() {
		if label.GetName() == labelName {
			return label.GetValue()
		}
	}
	return ""
}

// mergeBuckets adds the cumulative counts of b into acc; all series share the same bucket layout
func mergeBuckets(acc, b *dto.Histogram) *dto.Histogram {
	if len(acc.GetBucket()) == 0 {
		for _, bucket := range b.GetBucket() {
			count, bound := bucket.GetCumulativeCount(), bucket.GetUpperBound()
			acc.Bucket = append(acc.Bucket, &dto.Bucket{CumulativeCount: &count, UpperBound: &bound})
		}
		return acc
	}
	for i, bucket := range b.GetBucket() {
		if i < len(acc.Bucket) {
			sum := acc.Bucket[i].GetCumulativeCount() + bucket.GetCumulativeCount()
			acc.Bucket[i].CumulativeCount = &sum
		}
	}
	return acc
}

// estimateQuantile approximates the quantile as the upper bound of the bucket containing it
func estimateQuantile(hist *dto.Histogram, total uint64, quantile float64) float64 {
	target := float64(total) * quantile
	buckets := hist.GetBucket()
	for _, bucket := range buckets {
		if float64(bucket.GetCumulativeCount()) >= target {
			return bucket.GetUpperBound()
		}
	}
	if len(buckets) > 0 {
		return buckets[len(buckets)-1].GetUpperBound()
	}
	return 0
}
