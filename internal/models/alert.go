package models

import "time"

// LoginAlert is the archived record of an anomalous login.
type LoginAlert struct {
	ID               string    `json:"id"`
	RealmID          string    `json:"realmId"`
	UserID           string    `json:"userId"`
	Username         string    `json:"username,omitempty"`
	IPAddress        string    `json:"ipAddress"`
	PreviousLocation string    `json:"previousLocation"`
	CurrentLocation  string    `json:"currentLocation"`
	EventTime        time.Time `json:"eventTime"`
	DetectedAt       time.Time `json:"detectedAt"`
	Notified         bool      `json:"notified"`
}

// Email is a rendered message ready for a mail transport.
type Email struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}
