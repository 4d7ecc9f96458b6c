package domain

import "time"

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeFailure NoticeKind = "failure"
)

// Notice is the transient status line shown after a dispatch action.
type Notice struct {
	ID        string     `json:"id"`
	ShelterID string     `json:"shelterId"`
	Text      string     `json:"text"`
	Kind      NoticeKind `json:"kind"`
	IssuedAt  time.Time  `json:"issuedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// ViewState is the loading state of a dashboard's shelter list.
type ViewState string

const (
	ViewLoading ViewState = "loading"
	ViewReady   ViewState = "ready"
)
