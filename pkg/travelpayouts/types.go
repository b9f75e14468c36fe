package travelpayouts

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Response is the envelope shared by the v2 price endpoints.
type Response struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Error    string          `json:"error"`
	Currency string          `json:"currency"`
}

// Price is a single offer from /v2/prices/latest.
type Price struct {
	Value            decimal.Decimal `json:"value"`
	Origin           string          `json:"origin"`
	Destination      string          `json:"destination"`
	Gate             string          `json:"gate"`
	DepartDate       string          `json:"depart_date"`
	ReturnDate       string          `json:"return_date"`
	NumberOfChanges  int             `json:"number_of_changes"`
	TripClass        TripClass       `json:"trip_class"`
	Distance         int             `json:"distance"`
	Duration         int             `json:"duration"`
	FoundAt          Timestamp       `json:"found_at"`
	Actual           bool            `json:"actual"`
	ShowToAffiliates bool            `json:"show_to_affiliates"`

	// Currency is copied from the envelope.
	Currency string `json:"-"`
}

// Timestamp accepts the layouts found_at is served in, with or without a
// zone offset. Values without an offset are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var err error
	for _, layout := range timestampLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return err
}
