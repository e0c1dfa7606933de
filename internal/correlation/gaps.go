package correlation

import (
	"fmt"
	"time"

	"github.com/casetrace/casetrace-go/internal/models"
)

// detectGaps finds stretches of at least thresholdDays with no events
// between two material events. An event is material when it carries risk
// flags or at least high significance; quiet periods between routine
// events are not forensic findings.
func detectGaps(events []models.TimelineEvent, thresholdDays int) []models.TimelineGap {
	var gaps []models.TimelineGap
	threshold := time.Duration(thresholdDays) * 24 * time.Hour

	for i := 0; i+1 < len(events); i++ {
		a, b := events[i], events[i+1]
		span := b.Timestamp.Sub(a.Timestamp)
		if span < threshold {
			continue
		}
		if !material(a) || !material(b) {
			continue
		}

		days := int(span.Hours() / 24)
		gaps = append(gaps, models.TimelineGap{
			Start:        a.Timestamp,
			End:          b.Timestamp,
			Days:         days,
			BeforeSHA256: a.SHA256,
			AfterSHA256:  b.SHA256,
			Significance: gradeGap(days, a, b),
			Rationale: fmt.Sprintf(
				"no recorded activity for %d days between %s (%s) and %s (%s)",
				days, formatDay(a.Timestamp), describeEvent(a), formatDay(b.Timestamp), describeEvent(b),
			),
		})
	}
	return gaps
}

func material(e models.TimelineEvent) bool {
	if len(e.RiskFlags) > 0 {
		return true
	}
	return e.Significance == models.SignificanceCritical || e.Significance == models.SignificanceHigh
}

// gradeGap grades on span length and on the criticality of the events
// bounding the gap.
func gradeGap(days int, a, b models.TimelineEvent) models.GapSignificance {
	critical := a.Significance == models.SignificanceCritical || b.Significance == models.SignificanceCritical
	switch {
	case critical && days >= 30:
		return models.GapHigh
	case critical || days >= 60:
		return models.GapHigh
	case days >= 30:
		return models.GapMedium
	default:
		return models.GapLow
	}
}

func describeEvent(e models.TimelineEvent) string {
	if e.Description != "" {
		return e.Description
	}
	return "event in " + models.ShortSHA(e.SHA256)
}
