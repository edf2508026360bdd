package model

import "time"

// AlertQueueEntry is one durable fan-out row: one eligible recipient for one
// report. Rows are immutable after insert except for the claim/terminal
// timestamps. ProcessedAt and DeadAt are one-way transitions; ClaimedAt marks
// an in-flight dispatch attempt and is cleared when the attempt fails.
type AlertQueueEntry struct {
	ID             string              `json:"id"`
	RecipientID    string              `json:"recipient_id"`
	ReportID       string              `json:"report_id"`
	DistanceMeters float64             `json:"distance_meters"`
	Payload        NotificationPayload `json:"payload"`
	Attempts       int                 `json:"attempts"`
	CreatedAt      time.Time           `json:"created_at"`
	ClaimedAt      *time.Time          `json:"claimed_at"`
	ProcessedAt    *time.Time          `json:"processed_at"`
	DeadAt         *time.Time          `json:"dead_at"`
}

// NotificationPayload is the immutable snapshot of everything needed to
// render a push message. The source report is never re-read.
type NotificationPayload struct {
	ReportType  string  `json:"report_type"`
	PetName     string  `json:"pet_name,omitempty"`
	Species     string  `json:"species,omitempty"`
	Description string  `json:"description,omitempty"`
	Address     string  `json:"address,omitempty"`
	PhotoURL    string  `json:"photo_url,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Candidate is one user eligible for a report's alert, as returned by the
// eligibility query. Preference carries defaults when the user never saved one.
type Candidate struct {
	UserID         string
	DistanceMeters float64
	Preference     AlertPreference
}

// QueueStats is a point-in-time census of the alert queue.
type QueueStats struct {
	Pending   int64 `json:"pending"`
	Claimed   int64 `json:"claimed"`
	Processed int64 `json:"processed"`
	Dead      int64 `json:"dead"`
}
