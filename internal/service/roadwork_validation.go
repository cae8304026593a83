package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/roads-authority/roadworks-api/internal/dto"
	"github.com/roads-authority/roadworks-api/internal/models"
	"github.com/roads-authority/roadworks-api/pkg/geo"
)

const (
	maxDescriptionLength = 1000
	regionToleranceRatio = 1.5
)

type regionBoundary struct {
	center   geo.Coordinate
	radiusKm float64
}

// namibianRegions holds approximate region centres used for the soft location check.
var namibianRegions = map[string]regionBoundary{
	"Erongo":       {center: geo.Coordinate{Latitude: -22.35, Longitude: 14.97}, radiusKm: 200},
	"Hardap":       {center: geo.Coordinate{Latitude: -24.63, Longitude: 17.91}, radiusKm: 200},
	"ǁKaras":       {center: geo.Coordinate{Latitude: -26.64, Longitude: 17.09}, radiusKm: 250},
	"Kavango East": {center: geo.Coordinate{Latitude: -18.08, Longitude: 20.52}, radiusKm: 150},
	"Kavango West": {center: geo.Coordinate{Latitude: -18.42, Longitude: 18.65}, radiusKm: 150},
	"Khomas":       {center: geo.Coordinate{Latitude: -22.57, Longitude: 17.08}, radiusKm: 150},
	"Kunene":       {center: geo.Coordinate{Latitude: -19.57, Longitude: 14.52}, radiusKm: 250},
	"Ohangwena":    {center: geo.Coordinate{Latitude: -17.60, Longitude: 16.23}, radiusKm: 100},
	"Omaheke":      {center: geo.Coordinate{Latitude: -21.70, Longitude: 19.50}, radiusKm: 200},
	"Omusati":      {center: geo.Coordinate{Latitude: -18.25, Longitude: 14.98}, radiusKm: 100},
	"Oshana":       {center: geo.Coordinate{Latitude: -18.42, Longitude: 15.92}, radiusKm: 80},
	"Oshikoto":     {center: geo.Coordinate{Latitude: -18.85, Longitude: 17.05}, radiusKm: 120},
	"Otjozondjupa": {center: geo.Coordinate{Latitude: -20.46, Longitude: 17.42}, radiusKm: 250},
	"Zambezi":      {center: geo.Coordinate{Latitude: -17.80, Longitude: 24.27}, radiusKm: 150},
}

var (
	errorTracePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ERROR\s+\[Error:`),
		regexp.MustCompile(`(?i)TransformError`),
		regexp.MustCompile(`(?i)SyntaxError`),
		regexp.MustCompile(`(?i)ValidationError`),
		regexp.MustCompile(`(?i)at\s+\w+\.\w+\(`),
		regexp.MustCompile(`(?i)at\s+file://`),
		regexp.MustCompile(`(?i)node_modules`),
		regexp.MustCompile(`(?i)\.js:\d+:\d+`),
		regexp.MustCompile(`(?i)\.go:\d+`),
		regexp.MustCompile(`goroutine \d+ \[`),
	}
	errorTraceMarkers = []string{"TransformError", "SyntaxError", "ValidationError", "panic:"}
)

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parsedDate is a date field from a payload. set is false when the field was absent.
type parsedDate struct {
	set   bool
	value *time.Time
}

type roadworkDates struct {
	start              parsedDate
	end                parsedDate
	expectedCompletion parsedDate
	completedAt        parsedDate
}

// roadworkValidation collects blocking errors and advisory warnings.
type roadworkValidation struct {
	errors   []string
	warnings []string
	dates    roadworkDates
}

func (v *roadworkValidation) fail(format string, args ...interface{}) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *roadworkValidation) warn(format string, args ...interface{}) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validateRoadwork checks a payload. existing is nil in create mode, where the
// core identity fields are required; in update mode every field is optional and
// cross-field rules fall back to stored values.
func validateRoadwork(validate *validator.Validate, fields dto.RoadworkFields, existing *models.Roadwork, now time.Time) *roadworkValidation {
	result := &roadworkValidation{}

	if err := validate.Struct(fields); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				result.errors = append(result.errors, fieldErrorMessage(fe))
			}
		} else {
			result.fail("invalid payload: %v", err)
		}
	}

	if existing == nil {
		requireText(result, fields.Title, "Title is required")
		requireText(result, fields.Road, "Road is required")
		requireText(result, fields.Section, "Section is required")
		requireText(result, fields.Region, "Region is required")
	}

	if region := trimmed(fields.Region); region != "" {
		if _, ok := namibianRegions[region]; !ok {
			result.fail("Region %q is not a recognised Namibian region", region)
		}
	}
	if fields.Status != nil {
		if !models.RoadworkStatus(*fields.Status).Valid() {
			result.fail("Status %q is not supported", *fields.Status)
		}
	}
	if fields.Priority != nil {
		if !models.RoadworkPriority(*fields.Priority).Valid() {
			result.fail("Priority %q is not supported; use low, medium, high or critical", *fields.Priority)
		}
	}

	result.dates.start = parseDateField(result, "startDate", fields.StartDate)
	result.dates.end = parseDateField(result, "endDate", fields.EndDate)
	result.dates.expectedCompletion = parseDateField(result, "expectedCompletion", fields.ExpectedCompletion)
	result.dates.completedAt = parseDateField(result, "completedAt", fields.CompletedAt)

	validateDateRules(result, fields, existing, now)
	validateLocation(result, fields, existing)
	validateDescription(result, fields.Description)

	if fields.Published != nil && *fields.Published {
		if effectiveCoordinates(fields, existing) == nil {
			result.warn("Publishing roadwork without GPS coordinates may reduce visibility on maps")
		}
		if effectiveDate(result.dates.start, existingDate(existing, func(r *models.Roadwork) *time.Time { return r.StartDate })) == nil {
			result.warn("Publishing roadwork without a start date may confuse users")
		}
	}

	return result
}

func validateDateRules(result *roadworkValidation, fields dto.RoadworkFields, existing *models.Roadwork, now time.Time) {
	dates := result.dates
	start := effectiveDate(dates.start, existingDate(existing, func(r *models.Roadwork) *time.Time { return r.StartDate }))
	expected := effectiveDate(dates.expectedCompletion, existingDate(existing, func(r *models.Roadwork) *time.Time { return r.ExpectedCompletion }))
	end := effectiveDate(dates.end, existingDate(existing, func(r *models.Roadwork) *time.Time { return r.EndDate }))

	if dates.start.set || dates.expectedCompletion.set {
		if start != nil && expected != nil && start.After(*expected) {
			result.fail("Start date cannot be after expected completion date")
		}
	}
	if dates.start.set || dates.end.set {
		if start != nil && end != nil && end.Before(*start) {
			result.fail("End date must be after start date")
		}
	}

	if dates.start.set || fields.Status != nil || fields.Published != nil {
		status := effectiveStatus(fields, existing)
		published := fields.Published != nil && *fields.Published
		if fields.Published == nil && existing != nil {
			published = existing.Published
		}
		today := now.UTC()
		startOfDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		if published && status.IsPlanned() && start != nil && start.Before(startOfDay) {
			result.fail("Planned roadworks with a past start date cannot be published. Please update the start date or change the status.")
		}
	}
}

func validateLocation(result *roadworkValidation, fields dto.RoadworkFields, existing *models.Roadwork) {
	if c := fields.Coordinates; c != nil {
		if !geo.InBounds(*c) {
			result.fail("Coordinates (%s) are outside Namibia. Latitude must be between %g and %g, longitude between %g and %g.",
				c, geo.MinLatitude, geo.MaxLatitude, geo.MinLongitude, geo.MaxLongitude)
		} else if region := effectiveRegion(fields, existing); region != "" {
			if boundary, ok := namibianRegions[region]; ok {
				distance := geo.Distance(*c, boundary.center)
				if distance > boundary.radiusKm*regionToleranceRatio {
					result.warn("Coordinates (%.4f, %.4f) are %.1fkm from %s region center. Please verify the region selection is correct.",
						c.Latitude, c.Longitude, distance, region)
				}
			}
		}
	}

	if fields.Status != nil || fields.Coordinates != nil {
		status := effectiveStatus(fields, existing)
		if status.IsCritical() && effectiveCoordinates(fields, existing) == nil {
			result.fail("GPS coordinates are required for %s roads", status)
		}
	}
}

func validateDescription(result *roadworkValidation, description *string) {
	desc := trimmed(description)
	if desc == "" {
		return
	}
	if len([]rune(desc)) > maxDescriptionLength {
		result.fail("Description must be %d characters or less", maxDescriptionLength)
	}
	if looksLikeErrorTrace(desc) {
		result.fail("Description appears to contain an error message. Please enter a valid description.")
	}
}

// looksLikeErrorTrace flags descriptions that were pasted from a stack trace.
func looksLikeErrorTrace(desc string) bool {
	matched := false
	for _, pattern := range errorTracePatterns {
		if pattern.MatchString(desc) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	if strings.HasPrefix(desc, "ERROR") || strings.HasPrefix(desc, "Error") {
		return true
	}
	for _, marker := range errorTraceMarkers {
		if strings.Contains(desc, marker) {
			return true
		}
	}
	return false
}

func parseDateField(result *roadworkValidation, field string, raw *string) parsedDate {
	if raw == nil {
		return parsedDate{}
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return parsedDate{set: true}
	}
	t, err := parseDate(value)
	if err != nil {
		result.fail("%s must be a valid date (YYYY-MM-DD or RFC3339)", field)
		return parsedDate{}
	}
	return parsedDate{set: true, value: &t}
}

func parseDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func requireText(result *roadworkValidation, value *string, message string) {
	if trimmed(value) == "" {
		result.errors = append(result.errors, message)
	}
}

func effectiveStatus(fields dto.RoadworkFields, existing *models.Roadwork) models.RoadworkStatus {
	if fields.Status != nil {
		return models.RoadworkStatus(*fields.Status)
	}
	if existing != nil {
		return existing.Status
	}
	return models.RoadworkStatusPlanned
}

func effectiveRegion(fields dto.RoadworkFields, existing *models.Roadwork) string {
	if region := trimmed(fields.Region); region != "" {
		return region
	}
	if existing != nil {
		return existing.Region
	}
	return ""
}

func effectiveCoordinates(fields dto.RoadworkFields, existing *models.Roadwork) *models.Coordinate {
	if fields.Coordinates != nil {
		return fields.Coordinates
	}
	if existing != nil {
		return existing.Coordinates
	}
	return nil
}

func effectiveDate(parsed parsedDate, stored *time.Time) *time.Time {
	if parsed.set {
		return parsed.value
	}
	return stored
}

func existingDate(existing *models.Roadwork, get func(*models.Roadwork) *time.Time) *time.Time {
	if existing == nil {
		return nil
	}
	return get(existing)
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
