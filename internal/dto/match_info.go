package dto

import (
	"encoding/json"
	"time"
)

// MatchInfo is one recorded match as listed by the history endpoint.
type MatchInfo struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	Name      string    `json:"name,omitempty"`
	Distance  float64   `json:"distance"`
	Filename  string    `json:"filename"`
	Faces     int       `json:"faces"`
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
}

// MarshalJSON formats date and time-of-day the way the pages display them.
func (m MatchInfo) MarshalJSON() ([]byte, error) {
	type Alias MatchInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      m.Date.Format("02-01-2006"),
		TimeOfDay: m.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(m),
	})
}
