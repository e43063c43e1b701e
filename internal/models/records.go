package models

import "time"

// HistoryWindow is how many recent logins the detector reads.
const HistoryWindow = 3

// AuthRecord is one row of the auth event table. Type, RealmID and ClientID
// are the indexed tag columns; Error, Username and Details are empty when
// the event carried none.
type AuthRecord struct {
	Time      time.Time
	Type      EventType
	RealmID   string
	ClientID  string
	UserID    string
	IPAddress string
	Location  string
	Error     string
	Username  string
	Details   string
}

type AdminRecord struct {
	Time           time.Time
	OperationType  OperationType
	ResourceType   string
	RealmID        string
	ClientID       string
	UserID         string
	IPAddress      string
	ResourcePath   string
	Representation string
	Error          string
}

// LocationHistoryEntry is the projection the detector reads back, newest
// first.
type LocationHistoryEntry struct {
	Timestamp time.Time `ch:"time" json:"timestamp"`
	IPAddress string    `ch:"ip_address" json:"ipAddress"`
	UserID    string    `ch:"user_id" json:"userId"`
	Location  string    `ch:"location" json:"location"`
}
