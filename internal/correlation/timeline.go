package correlation

import (
	"fmt"
	"sort"
	"time"

	"github.com/casetrace/casetrace-go/internal/models"
)

// buildTimeline merges three timestamp sources into one ordered event list:
// filesystem timestamps from metadata, email header dates, and semantic
// dates extracted by the analyzers. Ordering is timestamp ascending with
// ties broken by SHA-256 then event id, so identical inputs always produce
// identical timelines.
func buildTimeline(inputs []evidenceInput) []models.TimelineEvent {
	var events []models.TimelineEvent

	for _, in := range inputs {
		counter := 0
		nextID := func(source models.TimelineSource) string {
			counter++
			return fmt.Sprintf("%s:%s:%03d", models.ShortSHA(in.SHA256), source, counter)
		}

		flags := in.Analysis.RiskFlags()
		sig := in.Analysis.Significance()

		if in.Metadata != nil && in.Metadata.ModifiedAt != nil {
			events = append(events, models.TimelineEvent{
				ID:           nextID(models.SourceFilesystem),
				Timestamp:    in.Metadata.ModifiedAt.UTC(),
				SHA256:       in.SHA256,
				Source:       models.SourceFilesystem,
				Description:  fmt.Sprintf("file %s last modified", in.Metadata.Filename),
				RiskFlags:    flags,
				Significance: sig,
			})
		}

		if in.Analysis.Email != nil {
			for _, p := range in.Analysis.Email.Participants {
				if p.Role == models.RoleSender && p.FirstInteraction != nil {
					events = append(events, models.TimelineEvent{
						ID:           nextID(models.SourceEmail),
						Timestamp:    p.FirstInteraction.UTC(),
						SHA256:       in.SHA256,
						Source:       models.SourceEmail,
						Description:  fmt.Sprintf("email sent by %s", participantLabel(p)),
						RiskFlags:    flags,
						Significance: sig,
					})
					break
				}
			}
		}

		for _, entity := range in.Analysis.Entities() {
			if entity.Type != models.EntityDate {
				continue
			}
			ts, ok := parseSemanticDate(entity.Name)
			if !ok {
				continue
			}
			desc := entity.AssociatedEvent
			if desc == "" {
				desc = entity.Context
			}
			events = append(events, models.TimelineEvent{
				ID:           nextID(models.SourceSemantic),
				Timestamp:    ts,
				SHA256:       in.SHA256,
				Source:       models.SourceSemantic,
				Description:  desc,
				RiskFlags:    flags,
				Significance: sig,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		if events[i].SHA256 != events[j].SHA256 {
			return events[i].SHA256 < events[j].SHA256
		}
		return events[i].ID < events[j].ID
	})
	return events
}

func participantLabel(p models.Participant) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Address
}

// parseSemanticDate accepts ISO, UK and US date forms. Ambiguous
// day/month values resolve UK-first (dd/mm), which matters for evidence
// corpora using UK conventions; an unambiguous mm/dd (day > 12 in the
// second slot read UK-style) falls through to the US layout.
func parseSemanticDate(s string) (time.Time, bool) {
	isoLayouts := []string{
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	slashLayouts := []string{
		"02/01/2006", // UK
		"01/02/2006", // US
		"2/1/2006",
		"02 January 2006",
		"2 January 2006",
		"January 2, 2006",
	}
	for _, layout := range slashLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// formatDay renders a timestamp for report text.
func formatDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
