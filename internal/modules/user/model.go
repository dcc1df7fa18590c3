// README: User aggregate and the activity summary projection.
package user

import (
	"errors"
	"time"

	"poring/internal/types"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID       int64
	Name     string
	Points   int64
	JoinedAt time.Time
}

// RecentRental is one line of a user's rental history, denormalized with hub names.
type RecentRental struct {
	RentalCode   string      `json:"rental_code"`
	StartHubName string      `json:"start_hub_name"`
	EndHubName   *string     `json:"end_hub_name"`
	StartedAt    time.Time   `json:"started_at"`
	EndedAt      *time.Time  `json:"ended_at"`
	Charged      types.Money `json:"charged"`
}

// Summary is the user activity report: lifetime aggregates plus recent rides.
type Summary struct {
	UserID        int64          `json:"user_id"`
	Name          string         `json:"name"`
	Points        int64          `json:"points"`
	TotalRentals  int            `json:"total_rentals"`
	OpenRental    bool           `json:"open_rental"`
	TotalMinutes  int64          `json:"total_minutes"`
	PaidCount     int            `json:"paid_count"`
	FailedCount   int            `json:"failed_count"`
	TotalSpent    types.Money    `json:"total_spent"`
	RecentRentals []RecentRental `json:"recent_rentals"`
}
