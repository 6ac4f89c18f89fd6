package models

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DeliveryDate is an estimated delivery day. It decodes either a plain
// date ("2026-10-20", read as UTC midnight) or a full RFC3339 timestamp.
type DeliveryDate struct {
	time.Time
}

func NewDeliveryDate(t time.Time) DeliveryDate { return DeliveryDate{Time: t} }

func ParseDeliveryDate(s string) (DeliveryDate, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DeliveryDate{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return DeliveryDate{}, fmt.Errorf("invalid delivery date %q: want YYYY-MM-DD or RFC3339", s)
	}
	return DeliveryDate{Time: t}, nil
}

func (d *DeliveryDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("delivery date must be a string: %w", err)
	}
	parsed, err := ParseDeliveryDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d DeliveryDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339))
}
