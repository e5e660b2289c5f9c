package models

import (
	"time"

	"github.com/google/uuid"
)

type StatsTotals struct {
	Users             int64 `json:"users"`
	Trips             int64 `json:"trips"`
	AnonymousTrips    int64 `json:"anonymousTrips"`
	ActiveSubscribers int64 `json:"activeSubscribers"`
}

type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// AdminStats backs the admin dashboard.
type AdminStats struct {
	Totals              StatsTotals   `json:"totals"`
	RecentUsers         []UserSummary `json:"recentUsers"`
	RecentTrips         []TripSummary `json:"recentTrips"`
	RecentSubscribers   []Subscriber  `json:"recentSubscribers"`
	TripsPerDay         []DailyCount  `json:"tripsPerDay"`
	TopDestinations     []LabelCount  `json:"topDestinations"`
	BudgetBreakdown     []LabelCount  `json:"budgetBreakdown"`
	TravelTypeBreakdown []LabelCount  `json:"travelTypeBreakdown"`
	TopActivities       []LabelCount  `json:"topActivities"`
	GeneratedAt         time.Time     `json:"generatedAt"`
}
