package domain

import (
	"fmt"
	"strconv"
	"time"
)

// DispatchFailedMessage is shown for every failed dispatch regardless of cause.
const DispatchFailedMessage = "Failed to request Waymo. Please try again."

// DispatchResult is the body returned by the dispatch endpoint.
type DispatchResult struct {
	ETAMinutes float64 `json:"eta_minutes"`
}

// Message renders the success text; the ETA is printed exactly as returned.
func (r DispatchResult) Message() string {
	return fmt.Sprintf("Waymo dispatched! ETA: %s minutes", strconv.FormatFloat(r.ETAMinutes, 'f', -1, 64))
}

// DispatchEvent describes one resolved dispatch request for downstream consumers.
type DispatchEvent struct {
	RequestID  string    `json:"requestId"`
	ShelterID  string    `json:"shelterId"`
	UserID     string    `json:"userId,omitempty"`
	OK         bool      `json:"ok"`
	ETAMinutes *float64  `json:"etaMinutes,omitempty"`
	At         time.Time `json:"at"`
}
