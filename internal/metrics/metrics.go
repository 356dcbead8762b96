package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricNameHTTPRequestsTotal,
			Help:      HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      MetricNameHTTPRequestDuration,
			Help:      HelpTextHTTPRequestDuration,
			Buckets:   HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      MetricNameHTTPRequestsInFlight,
			Help:      HelpTextHTTPRequestsInFlight,
		},
	)
)

// Event Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricNameEventsPublished,
			Help:      HelpTextEventsPublished,
		},
		[]string{LabelType},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricNameEventHandlerErrors,
			Help:      HelpTextEventHandlerErrors,
		},
		[]string{LabelType},
	)
)

// Duel Metrics
var (
	Challenges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricNameChallenges,
			Help:      HelpTextChallenges,
		},
		[]string{LabelState},
	)

	MatchesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricNameMatchesCompleted,
			Help:      HelpTextMatchesCompleted,
		},
		[]string{LabelReason},
	)

	MatchTurns = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      MetricNameMatchTurns,
			Help:      HelpTextMatchTurns,
			Buckets:   MatchTurnBuckets,
		},
	)

	RatingChangeMagnitude = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      MetricNameRatingChange,
			Help:      HelpTextRatingChangeMagnitude,
			Buckets:   RatingChangeBuckets,
		},
	)

	TurnTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricNameTurnTimeouts,
			Help:      HelpTextTurnTimeouts,
		},
		[]string{LabelForfeited},
	)

	TierChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricNameTierChanges,
			Help:      HelpTextTierChanges,
		},
		[]string{LabelDirection},
	)

	AchievementsUnlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricNameAchievementsUnlock,
			Help:      HelpTextAchievementsUnlock,
		},
		[]string{LabelAchievement},
	)

	RewardsGranted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricNameRewardsGranted,
			Help:      HelpTextRewardsGranted,
		},
		[]string{LabelResource},
	)
)

// SessionCounter reports live registry sizes
type SessionCounter interface {
	Counts() (challenges, matches int)
}

// RegisterSessionGauges exposes the pending challenge and active match counts of
// sessions as gauges. Registering twice is not an error.
func RegisterSessionGauges(reg prometheus.Registerer, sessions SessionCounter) error {
	pending := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      MetricNamePendingChallenges,
		Help:      HelpTextPendingChallenges,
	}, func() float64 {
		c, _ := sessions.Counts()
		return float64(c)
	})
	active := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      MetricNameActiveMatches,
		Help:      HelpTextActiveMatches,
	}, func() float64 {
		_, m := sessions.Counts()
		return float64(m)
	})

	for _, c := range []prometheus.Collector{pending, active} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}
