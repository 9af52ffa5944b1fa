package services

import (
	"math"
	"strings"
	"time"

	"github.com/leadwerk/leadwerk-engine/pkg/models"
)

// Top-level score weights. Region and wait-time are additionally multiplied
// by the router settings (weight/50, so 50 is neutral), and the performance
// composite is scaled to the configured performance weight.
const (
	weightBranchMatch     = 100.0
	weightBranchPartial   = 50.0
	weightRegionMatch     = 80.0
	weightRegionPartial   = 40.0
	weightWaitTime        = 60.0 // max 24 hours of waiting
	weightPerformance     = 40.0 // fallback when settings carry no performance weight
	weightCapacity        = 30.0
	weightUrgencyBonus    = 20.0
	weightRoutingPriority = 10.0
)

// Performance sub-factor weights. Must sum to 1.0.
const (
	subWeightResponseSpeed = 0.15
	subWeightAITrust       = 0.15
	subWeightDealRate      = 0.20
	subWeightFollowUp      = 0.10
	subWeightFeedback      = 0.15
	subWeightComplaints    = 0.10
	subWeightDealValue     = 0.05
	subWeightConsistency   = 0.10
)

// maxExpectedDealValue caps the log-normalized deal value bonus (EUR).
const maxExpectedDealValue = 10000.0

// ScoreFactors is the top-level factor breakdown of an assignment score.
type ScoreFactors struct {
	BranchMatch     float64 `json:"branchMatch"`
	RegionMatch     float64 `json:"regionMatch"`
	WaitTime        float64 `json:"waitTime"`
	Performance     float64 `json:"performance"`
	Capacity        float64 `json:"capacity"`
	UrgencyBonus    float64 `json:"urgencyBonus"`
	RoutingPriority float64 `json:"routingPriority"`
}

// PerformanceBreakdown holds the eight normalized performance sub-factors,
// each on a 0-100 scale except dealValue, which caps at 20.
type PerformanceBreakdown struct {
	ResponseSpeed float64 `json:"responseSpeed"`
	AITrust       float64 `json:"aiTrust"`
	DealRate      float64 `json:"dealRate"`
	FollowUp      float64 `json:"followUp"`
	Feedback      float64 `json:"feedback"`
	Complaints    float64 `json:"complaints"`
	DealValue     float64 `json:"dealValue"`
	Consistency   float64 `json:"consistency"`
}

// PerformanceScore is the blended 0-100 performance composite plus its
// sub-factor breakdown.
type PerformanceScore struct {
	Total     float64              `json:"totalScore"`
	Breakdown PerformanceBreakdown `json:"breakdown"`
}

// ScoreResult is a complete, explainable assignment score. It is persisted
// verbatim to the assignment log.
type ScoreResult struct {
	TotalScore  float64          `json:"totalScore"`
	Factors     ScoreFactors     `json:"factors"`
	Performance PerformanceScore `json:"performanceDetails"`
}

// FactorMap returns the breakdown in the shape stored on
// leads.assignment_factors and in the assignment log.
func (r ScoreResult) FactorMap() map[string]any {
	return map[string]any{
		"branchMatch":     r.Factors.BranchMatch,
		"regionMatch":     r.Factors.RegionMatch,
		"waitTime":        r.Factors.WaitTime,
		"performance":     r.Factors.Performance,
		"capacity":        r.Factors.Capacity,
		"urgencyBonus":    r.Factors.UrgencyBonus,
		"routingPriority": r.Factors.RoutingPriority,
	}
}

// CalculateScore computes the weighted match score for one (lead, partner)
// pair. It is a pure function: no I/O, and the clock is an explicit input so
// identical inputs always produce identical output. Missing stats fields are
// treated as "no signal" and contribute zero, never an error.
func CalculateScore(lead *models.Lead, industryName string, partner *models.Partner, stats *models.PerformanceStats, settings models.RouterSettings, now time.Time) ScoreResult {
	if stats == nil {
		stats = &models.PerformanceStats{}
	}

	var f ScoreFactors

	// 1. Branch/industry match.
	if industryName != "" {
		if partner.PrimaryBranch != "" && strings.EqualFold(partner.PrimaryBranch, industryName) {
			f.BranchMatch = weightBranchMatch
		} else if containsFold(partner.LeadIndustries, industryName) {
			f.BranchMatch = weightBranchPartial
		}
	}

	// 2. Region match. Falls back to lead_locations when no regions are set.
	if lead.Province != "" && len(partner.Regions) > 0 {
		if containsFold(partner.Regions, lead.Province) {
			f.RegionMatch = weightRegionMatch
		} else if overlapsFold(partner.Regions, lead.Province) {
			f.RegionMatch = weightRegionPartial
		}
	} else if lead.Province != "" && len(partner.LeadLocations) > 0 {
		if containsFold(partner.LeadLocations, lead.Province) {
			f.RegionMatch = weightRegionPartial
		}
	}

	// 3. Wait time since last assignment, for fair distribution. Partners
	// never assigned wait since profile creation; with neither timestamp the
	// full 24h applies.
	hoursWaiting := 24.0
	if stats.LastLeadAssignedAt != nil {
		hoursWaiting = now.Sub(*stats.LastLeadAssignedAt).Hours()
	} else if !partner.CreatedAt.IsZero() {
		hoursWaiting = now.Sub(partner.CreatedAt).Hours()
	}
	f.WaitTime = math.Min(24, math.Max(0, hoursWaiting)) / 24 * weightWaitTime

	// 4. Performance composite scaled to the configured weight.
	perf := CalculatePerformanceScore(stats)
	performanceWeight := float64(settings.PerformanceWeight)
	if performanceWeight == 0 {
		performanceWeight = weightPerformance
	}
	f.Performance = (perf.Total / 100) * performanceWeight

	// 5. Capacity headroom, shrinking as the partner fills up.
	maxLeads := partner.MaxOpenLeadsOrDefault()
	if stats.OpenLeadsCount < maxLeads {
		f.Capacity = float64(maxLeads-stats.OpenLeadsCount) / float64(maxLeads) * weightCapacity
	}

	// 6. Urgency bonus for fast responders.
	if lead.IsUrgent && stats.AvgFirstResponseTimeMinutes30d != nil && *stats.AvgFirstResponseTimeMinutes30d < 60 {
		f.UrgencyBonus = weightUrgencyBonus
	}

	// 7. Manual priority boost. Signed, so negative de-prioritizes.
	f.RoutingPriority = float64(partner.RoutingPriority) * weightRoutingPriority

	// Region and fairness weights are normalized around 50 = 1.0.
	f.RegionMatch = round2(f.RegionMatch * float64(settings.RegionWeight) / 50)
	f.WaitTime = round2(f.WaitTime * float64(settings.FairnessWeight) / 50)
	f.Performance = round2(f.Performance)
	f.Capacity = round2(f.Capacity)

	total := f.BranchMatch + f.RegionMatch + f.WaitTime + f.Performance +
		f.Capacity + f.UrgencyBonus + f.RoutingPriority

	return ScoreResult{
		TotalScore:  round2(total),
		Factors:     f,
		Performance: perf,
	}
}

// CalculatePerformanceScore blends the eight performance metrics into one
// 0-100 composite. Each sub-factor is independently normalized and clamped
// to its stated cap; missing metrics contribute zero.
func CalculatePerformanceScore(stats *models.PerformanceStats) PerformanceScore {
	if stats == nil {
		stats = &models.PerformanceStats{}
	}
	var b PerformanceBreakdown

	// Response speed: piecewise-linear over the average first response time,
	// then blended 70/20/10 with the 1h and 24h contact-rate percentages.
	if stats.AvgFirstResponseTimeMinutes30d != nil {
		m := *stats.AvgFirstResponseTimeMinutes30d
		switch {
		case m <= 30:
			b.ResponseSpeed = 100
		case m <= 120:
			b.ResponseSpeed = 100 - ((m-30)/90)*30
		case m <= 1440:
			b.ResponseSpeed = 70 - ((m-120)/1320)*30
		default:
			b.ResponseSpeed = math.Max(0, 40-((m-1440)/1440)*40)
		}
	}
	pct1h := floatOrZero(stats.PctContactedWithin1h30d)
	pct24h := floatOrZero(stats.PctContactedWithin24h30d)
	b.ResponseSpeed = math.Min(100, b.ResponseSpeed*0.7+pct1h*0.2+pct24h*0.1)

	// AI trust score, clamped and used as-is.
	if stats.AITrustScore != nil {
		b.AITrust = clamp(*stats.AITrustScore, 0, 100)
	}

	// Deal rate, capped at 90 before rescaling to temper outliers.
	if stats.DealRate30d != nil {
		b.DealRate = math.Min(90, *stats.DealRate30d) / 90 * 100
	}

	// Follow-up discipline: 2+ attempts percentage, bonus for an average in
	// the 2-3 sweet spot, penalty below one attempt per lead.
	b.FollowUp = clamp(floatOrZero(stats.PctLeadsMin2Attempts30d), 0, 100)
	avgAttempts := floatOrZero(stats.AvgContactAttemptsPerLead30d)
	if avgAttempts >= 2 && avgAttempts <= 3 {
		b.FollowUp = math.Min(100, b.FollowUp+10)
	} else if avgAttempts < 1 {
		b.FollowUp = math.Max(0, b.FollowUp-20)
	}

	// Customer feedback: 1-5 stars mapped linearly to 0-100, small bonus
	// when enough ratings exist to trust the average.
	if stats.AvgCustomerRating30d != nil {
		b.Feedback = ((*stats.AvgCustomerRating30d - 1) / 4) * 100
	}
	if stats.NumRatings30d >= 5 {
		b.Feedback = math.Min(100, b.Feedback+5)
	}

	// Complaints: rate penalty plus a per-complaint deduction, floored at 0.
	b.Complaints = math.Max(0, 100-floatOrZero(stats.ComplaintRate30d)*10)
	if stats.Complaints30d > 0 {
		b.Complaints = math.Max(0, b.Complaints-float64(stats.Complaints30d)*5)
	}

	// Deal value: log-normalized bonus capped at 20 points.
	if stats.AvgDealValue30d != nil && *stats.AvgDealValue30d > 0 {
		normalized := math.Log(1+*stats.AvgDealValue30d) / math.Log(1+maxExpectedDealValue)
		b.DealValue = math.Min(20, normalized*20)
	}

	// Consistency: 7-day vs 30-day stability, supplied pre-computed.
	if stats.ConsistencyScore != nil {
		b.Consistency = clamp(*stats.ConsistencyScore, 0, 100)
	}

	total := b.ResponseSpeed*subWeightResponseSpeed +
		b.AITrust*subWeightAITrust +
		b.DealRate*subWeightDealRate +
		b.FollowUp*subWeightFollowUp +
		b.Feedback*subWeightFeedback +
		b.Complaints*subWeightComplaints +
		b.DealValue*subWeightDealValue +
		b.Consistency*subWeightConsistency

	b.ResponseSpeed = round2(b.ResponseSpeed)
	b.AITrust = round2(b.AITrust)
	b.DealRate = round2(b.DealRate)
	b.FollowUp = round2(b.FollowUp)
	b.Feedback = round2(b.Feedback)
	b.Complaints = round2(b.Complaints)
	b.DealValue = round2(b.DealValue)
	b.Consistency = round2(b.Consistency)

	return PerformanceScore{
		Total:     round2(total),
		Breakdown: b,
	}
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if v != "" && strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

// overlapsFold reports whether any entry substring-matches target in either
// direction, case-insensitively ("Noord-Holland" overlaps "Holland").
func overlapsFold(values []string, target string) bool {
	t := strings.ToLower(target)
	for _, v := range values {
		if v == "" {
			continue
		}
		lv := strings.ToLower(v)
		if strings.Contains(lv, t) || strings.Contains(t, lv) {
			return true
		}
	}
	return false
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
