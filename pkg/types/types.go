package types

import (
	"time"
)

const (
	StatusOpen    = "open"
	StatusAck     = "ack"
	StatusClosed  = "closed"
	StatusUnknown = "unknown"
)

const (
	ChangeTypeSeverity = "severity"
	ChangeTypeStatus   = "status"
)

// Event is a single alert submitted by a monitored resource.
type Event struct {
	Environment string         `json:"environment"`
	Resource    string         `json:"resource"`
	Event       string         `json:"event"`
	Severity    string         `json:"severity"`
	Correlate   []string       `json:"correlate,omitempty"`
	Service     []string       `json:"service,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	Text        string         `json:"text,omitempty"`
	Value       string         `json:"value,omitempty"`
	Origin      string         `json:"origin,omitempty"`
	Type        string         `json:"type,omitempty"`
	RawData     string         `json:"rawData,omitempty"`
	CreateTime  *time.Time     `json:"createTime,omitempty"`
}

type Alarm struct {
	ID          string   `json:"id"`
	Environment string   `json:"environment"`
	Resource    string   `json:"resource"`
	Event       string   `json:"event"`
	Correlate   []string `json:"correlate"`

	Severity         string `json:"severity"`
	PreviousSeverity string `json:"previousSeverity"`
	Status           string `json:"status"`
	DuplicateCount   int    `json:"duplicateCount"`
	Repeat           bool   `json:"repeat"`
	TrendIndication  string `json:"trendIndication"`

	CreateTime      time.Time `json:"createTime"`
	LastReceiveTime time.Time `json:"lastReceiveTime"`

	Service    []string       `json:"service"`
	Tags       []string       `json:"tags"`
	Attributes map[string]any `json:"attributes"`
	Text       string         `json:"text,omitempty"`
	Value      string         `json:"value,omitempty"`
	Origin     string         `json:"origin,omitempty"`
	Type       string         `json:"type,omitempty"`
	RawData    string         `json:"rawData,omitempty"`

	History []HistoryItem `json:"history"`

	Version uint64 `json:"-"`
}

type HistoryItem struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	Severity   string    `json:"severity"`
	Status     string    `json:"status"`
	Value      string    `json:"value,omitempty"`
	Text       string    `json:"text,omitempty"`
	ChangeType string    `json:"type"`
	UpdateTime time.Time `json:"updateTime"`
}

type IngestResult struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
	Alarm   Alarm  `json:"alarm"`
}

type AlarmResult struct {
	Alarm Alarm `json:"alarm"`
}

type StatusRequest struct {
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
}

type Collection[T any] struct {
	Data       []T    `json:"data"`
	Count      uint64 `json:"count"`
	Offset     uint64 `json:"offset"`
	Limit      uint64 `json:"limit"`
	TotalCount uint64 `json:"totalCount"`
}
