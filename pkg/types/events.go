package types

import (
	"encoding/json"
	"time"
)

type AlarmCreated struct {
	Alarm     Alarm     `json:"alarm"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *AlarmCreated) ContentType() string {
	return "application/json"
}
func (a *AlarmCreated) TopicName() string {
	return "alarms.created"
}
func (a *AlarmCreated) Body() []byte {
	b, _ := json.Marshal(a)
	return b
}

type AlarmUpdated struct {
	Alarm     Alarm     `json:"alarm"`
	Duplicate bool      `json:"duplicate"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *AlarmUpdated) ContentType() string {
	return "application/json"
}
func (a *AlarmUpdated) TopicName() string {
	return "alarms.updated"
}
func (a *AlarmUpdated) Body() []byte {
	b, _ := json.Marshal(a)
	return b
}

type AlarmStatusChanged struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Previous  string    `json:"previousStatus"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *AlarmStatusChanged) ContentType() string {
	return "application/json"
}
func (a *AlarmStatusChanged) TopicName() string {
	return "alarms.statusChanged"
}
func (a *AlarmStatusChanged) Body() []byte {
	b, _ := json.Marshal(a)
	return b
}
