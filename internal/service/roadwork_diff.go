package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/roads-authority/roadworks-api/internal/dto"
	"github.com/roads-authority/roadworks-api/internal/models"
)

const noCoordinates = "none"

// diffRoadwork compares the tracked fields present in the payload against the
// stored record. Absent fields are skipped; values are compared as strings.
func diffRoadwork(existing *models.Roadwork, fields dto.RoadworkFields, dates roadworkDates) []models.FieldChange {
	changes := []models.FieldChange{}
	track := func(field, oldValue, newValue string) {
		if oldValue != newValue {
			changes = append(changes, models.FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
		}
	}

	if fields.Status != nil {
		track("status", string(existing.Status), strings.TrimSpace(*fields.Status))
	}
	if fields.Published != nil {
		track("published", strconv.FormatBool(existing.Published), strconv.FormatBool(*fields.Published))
	}
	if fields.Title != nil {
		track("title", existing.Title, trimmed(fields.Title))
	}
	if fields.Road != nil {
		track("road", existing.Road, trimmed(fields.Road))
	}
	if fields.Section != nil {
		track("section", existing.Section, trimmed(fields.Section))
	}
	if fields.Area != nil {
		track("area", existing.Area, trimmed(fields.Area))
	}
	if fields.Region != nil {
		track("region", existing.Region, trimmed(fields.Region))
	}
	if dates.start.set {
		track("startDate", formatDate(existing.StartDate), formatDate(dates.start.value))
	}
	if dates.expectedCompletion.set {
		track("expectedCompletion", formatDate(existing.ExpectedCompletion), formatDate(dates.expectedCompletion.value))
	}
	if fields.Priority != nil {
		track("priority", string(existing.Priority), strings.TrimSpace(*fields.Priority))
	}
	if fields.Contractor != nil {
		track("contractor", existing.Contractor, trimmed(fields.Contractor))
	}
	if fields.Coordinates != nil {
		track("coordinates", formatCoordinates(existing.Coordinates), formatCoordinates(fields.Coordinates))
	}
	return changes
}

// deriveAction picks the history action: a status change wins over a publish
// toggle, which wins over a plain update.
func deriveAction(changes []models.FieldChange, published *bool) models.ChangeAction {
	for _, c := range changes {
		if c.Field == "status" {
			return models.ChangeActionStatusChanged
		}
	}
	for _, c := range changes {
		if c.Field == "published" {
			if published != nil && *published {
				return models.ChangeActionPublished
			}
			return models.ChangeActionUnpublished
		}
	}
	return models.ChangeActionUpdated
}

// applyFields copies every supplied field onto the record.
func applyFields(rw *models.Roadwork, fields dto.RoadworkFields, dates roadworkDates) {
	if fields.Title != nil {
		rw.Title = trimmed(fields.Title)
	}
	if fields.Road != nil {
		rw.Road = trimmed(fields.Road)
	}
	if fields.Section != nil {
		rw.Section = trimmed(fields.Section)
	}
	if fields.Area != nil {
		rw.Area = trimmed(fields.Area)
	}
	if fields.Region != nil {
		rw.Region = trimmed(fields.Region)
	}
	if fields.Status != nil {
		rw.Status = models.RoadworkStatus(strings.TrimSpace(*fields.Status))
	}
	if fields.Description != nil {
		rw.Description = trimmed(fields.Description)
	}
	if dates.start.set {
		rw.StartDate = dates.start.value
	}
	if dates.end.set {
		rw.EndDate = dates.end.value
	}
	if dates.expectedCompletion.set {
		rw.ExpectedCompletion = dates.expectedCompletion.value
	}
	if dates.completedAt.set {
		rw.CompletedAt = dates.completedAt.value
	}
	if fields.AlternativeRoute != nil {
		rw.AlternativeRoute = trimmed(fields.AlternativeRoute)
	}
	if fields.Coordinates != nil {
		c := *fields.Coordinates
		rw.Coordinates = &c
	}
	if fields.AffectedLanes != nil {
		rw.AffectedLanes = trimmed(fields.AffectedLanes)
	}
	if fields.Contractor != nil {
		rw.Contractor = trimmed(fields.Contractor)
	}
	if fields.EstimatedDuration != nil {
		rw.EstimatedDuration = trimmed(fields.EstimatedDuration)
	}
	if fields.ExpectedDelayMinutes != nil {
		delay := *fields.ExpectedDelayMinutes
		rw.ExpectedDelayMinutes = &delay
	}
	if fields.TrafficControl != nil {
		rw.TrafficControl = trimmed(fields.TrafficControl)
	}
	if fields.Published != nil {
		rw.Published = *fields.Published
	}
	if fields.Priority != nil {
		rw.Priority = models.RoadworkPriority(strings.TrimSpace(*fields.Priority))
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatCoordinates(c *models.Coordinate) string {
	if c == nil {
		return noCoordinates
	}
	return c.String()
}
