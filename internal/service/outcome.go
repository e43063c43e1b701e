package service

import (
	"errors"

	"github.com/goccy/go-json"

	"login-guard/internal/models"
)

// Outcome reports what the pipeline did with one event. Failures are the
// non-fatal errors met on the way; none of them stopped processing.
type Outcome struct {
	Excluded bool
	Recorded bool
	Checked  bool
	Decision models.Decision
	Notified bool
	Failures []error
}

func (o *Outcome) addFailure(err error) {
	o.Failures = append(o.Failures, err)
}

// HasFailure reports whether any failure matches target.
func (o Outcome) HasFailure(target error) bool {
	for _, err := range o.Failures {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	failures := make([]string, 0, len(o.Failures))
	for _, err := range o.Failures {
		failures = append(failures, err.Error())
	}

	var decision *models.Decision
	if o.Checked {
		decision = &o.Decision
	}

	return json.Marshal(struct {
		Excluded bool             `json:"excluded"`
		Recorded bool             `json:"recorded"`
		Checked  bool             `json:"checked"`
		Decision *models.Decision `json:"decision,omitempty"`
		Notified bool             `json:"notified"`
		Failures []string         `json:"failures"`
	}{o.Excluded, o.Recorded, o.Checked, decision, o.Notified, failures})
}
