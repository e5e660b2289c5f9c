package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

type BudgetTier string

const (
	BudgetLow    BudgetTier = "low"
	BudgetMedium BudgetTier = "medium"
	BudgetHigh   BudgetTier = "high"
)

func (b BudgetTier) Valid() bool {
	switch b {
	case BudgetLow, BudgetMedium, BudgetHigh:
		return true
	}
	return false
}

type TravelType string

const (
	TravelSolo    TravelType = "solo"
	TravelCouple  TravelType = "couple"
	TravelFriends TravelType = "friends"
	TravelFamily  TravelType = "family"
)

func (t TravelType) Valid() bool {
	switch t {
	case TravelSolo, TravelCouple, TravelFriends, TravelFamily:
		return true
	}
	return false
}

// SupportedLanguages lists the base language codes an itinerary can be written in.
var SupportedLanguages = []language.Tag{language.English, language.French, language.Arabic}

const dateLayout = "2006-01-02"

// MaxTripDays is the longest trip, in calendar days, that can be generated.
const MaxTripDays = 30

// TripRequest is the body of a generation request as sent by the client.
// The binding tags reject malformed bodies at the handler; Validate does the
// checks that need parsing.
type TripRequest struct {
	Destination string     `json:"destination" binding:"required,max=200"`
	StartDate   string     `json:"startDate" binding:"required"`
	EndDate     string     `json:"endDate" binding:"required"`
	Budget      BudgetTier `json:"budget" binding:"required,oneof=low medium high"`
	TravelType  TravelType `json:"travelType" binding:"required,oneof=solo couple friends family"`
	Activities  []string   `json:"activities" binding:"required,min=1"`
	Language    string     `json:"language" binding:"required"`
}

// TripParams is a validated TripRequest with the resolved day count.
type TripParams struct {
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	Budget      BudgetTier
	TravelType  TravelType
	Activities  []string
	Language    language.Tag
	DayCount    int
}

// LanguageCode returns the two letter code stored alongside a trip.
func (p TripParams) LanguageCode() string {
	base, _ := p.Language.Base()
	return base.String()
}

// Validate checks r and resolves it into TripParams. Every problem found is
// reported in the returned *ValidationError.
func (r TripRequest) Validate() (TripParams, error) {
	verr := NewValidationError()
	p := TripParams{
		Destination: strings.TrimSpace(r.Destination),
		Budget:      r.Budget,
		TravelType:  r.TravelType,
	}

	if p.Destination == "" {
		verr.Add("destination", "is required")
	} else if len(p.Destination) > 200 {
		verr.Add("destination", "must be at most 200 characters")
	}

	start, err := ParseTripDate(r.StartDate)
	if err != nil {
		verr.Add("startDate", err.Error())
	}
	end, err := ParseTripDate(r.EndDate)
	if err != nil {
		verr.Add("endDate", err.Error())
	}
	if !start.IsZero() && !end.IsZero() {
		if end.Before(start) {
			verr.Add("endDate", "must not be before startDate")
		} else if n := DayCount(start, end); n > MaxTripDays {
			verr.Add("endDate", fmt.Sprintf("trip must be at most %d days", MaxTripDays))
		} else {
			p.StartDate, p.EndDate = start, end
			p.DayCount = n
		}
	}

	if !r.Budget.Valid() {
		verr.Add("budget", "must be one of low, medium, high")
	}
	if !r.TravelType.Valid() {
		verr.Add("travelType", "must be one of solo, couple, friends, family")
	}

	p.Activities = dedupeActivities(r.Activities)
	if len(p.Activities) == 0 {
		verr.Add("activities", "at least one activity is required")
	}

	tag, err := ResolveLanguage(r.Language)
	if err != nil {
		verr.Add("language", err.Error())
	}
	p.Language = tag

	if err := verr.OrNil(); err != nil {
		return TripParams{}, err
	}
	return p, nil
}

// ParseTripDate accepts a calendar date or an RFC 3339 timestamp and returns
// midnight UTC of that day.
func ParseTripDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("is required")
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be a date in YYYY-MM-DD format")
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// DayCount is the inclusive number of calendar days between start and end,
// both read as UTC dates.
func DayCount(start, end time.Time) int {
	return int(epochDay(end)-epochDay(start)) + 1
}

func epochDay(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

const secondsPerDay = 24 * 60 * 60

// ResolveLanguage parses a BCP 47 tag and maps it onto a supported base language.
func ResolveLanguage(code string) (language.Tag, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return language.Und, fmt.Errorf("is required")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, fmt.Errorf("%q is not a valid language tag", code)
	}
	base, _ := tag.Base()
	for _, supported := range SupportedLanguages {
		if sb, _ := supported.Base(); sb == base {
			return supported, nil
		}
	}
	return language.Und, fmt.Errorf("%q is not supported", code)
}

func dedupeActivities(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		key := strings.ToLower(a)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// DayPlan is one day of an itinerary.
type DayPlan struct {
	Day       int    `json:"day"`
	Date      string `json:"date"`
	Morning   string `json:"morning"`
	Afternoon string `json:"afternoon"`
	Evening   string `json:"evening"`
}

// Itinerary is the structured plan produced by the language model and
// stored as a JSON document on the trip row.
type Itinerary struct {
	Title       string    `json:"title"`
	Overview    string    `json:"overview"`
	Days        []DayPlan `json:"days"`
	BudgetTips  []string  `json:"budgetTips"`
	LocalAdvice []string  `json:"localAdvice"`
	SafetyTips  []string  `json:"safetyTips"`
}

// CheckShape reports a missing title, overview or days list. An empty days
// list is accepted; only its absence is an error.
func (it *Itinerary) CheckShape() error {
	var missing []string
	if strings.TrimSpace(it.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(it.Overview) == "" {
		missing = append(missing, "overview")
	}
	if it.Days == nil {
		missing = append(missing, "days")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformed, strings.Join(missing, ", "))
	}
	return nil
}

// Normalize replaces absent tip lists with empty ones.
func (it *Itinerary) Normalize() {
	if it.BudgetTips == nil {
		it.BudgetTips = []string{}
	}
	if it.LocalAdvice == nil {
		it.LocalAdvice = []string{}
	}
	if it.SafetyTips == nil {
		it.SafetyTips = []string{}
	}
}

// Trip is a persisted itinerary. Exactly one of UserID and IPAddress is set:
// anonymous trips carry the requester IP until they are linked to an account.
type Trip struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	IPAddress   *string    `json:"-"`
	Anonymous   bool       `json:"anonymous"`
	Destination string     `json:"destination"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	Budget      BudgetTier `json:"budget"`
	TravelType  TravelType `json:"travelType"`
	Activities  []string   `json:"activities"`
	Language    string     `json:"language"`
	Itinerary   Itinerary  `json:"itinerary"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// NewTrip is what the store needs to persist a freshly generated itinerary.
type NewTrip struct {
	OwnerID   *uuid.UUID
	IPAddress *string
	Params    TripParams
	Itinerary Itinerary
}

// TripSummary is the list representation used by dashboards.
type TripSummary struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	UserEmail   *string    `json:"userEmail,omitempty"`
	Anonymous   bool       `json:"anonymous"`
	Destination string     `json:"destination"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	Budget      BudgetTier `json:"budget"`
	TravelType  TravelType `json:"travelType"`
	Language    string     `json:"language"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// TripFilter narrows a trip listing. Zero values mean no filter.
type TripFilter struct {
	UserID        *uuid.UUID
	Destination   string
	Budget        BudgetTier
	TravelType    TravelType
	AnonymousOnly bool
	Limit         uint64
	Offset        uint64
}

// UsageRecord is the per-IP anonymous generation counter.
type UsageRecord struct {
	IPAddress      string    `json:"ipAddress"`
	TripsGenerated int       `json:"tripsGenerated"`
	LastUsedAt     time.Time `json:"lastUsedAt"`
}

// LimitStatus is the answer of the usage ledger for one IP.
type LimitStatus struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	Limit     int  `json:"limit"`
}
