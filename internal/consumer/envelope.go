package consumer

import (
	"fmt"

	"github.com/goccy/go-json"

	"login-guard/internal/models"
)

const (
	KindEvent      = "event"
	KindAdminEvent = "admin_event"
)

// Envelope is the message format on the inbound events topic.
type Envelope struct {
	Kind                  string          `json:"kind"`
	Event                 json.RawMessage `json:"event"`
	IncludeRepresentation bool            `json:"includeRepresentation,omitempty"`
}

// job is one decoded message; exactly one of auth and admin is set.
type job struct {
	auth                  *models.AuthEvent
	admin                 *models.AdminEvent
	includeRepresentation bool
}

// shardKey keeps all events of one principal on one worker.
func (j job) shardKey() string {
	if j.auth != nil {
		return j.auth.UserID
	}
	return j.admin.AuthDetails.UserID
}

func decode(value []byte) (job, error) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return job{}, fmt.Errorf("%w: envelope: %v", models.ErrInvalidEvent, err)
	}

	switch env.Kind {
	case KindEvent:
		ev, err := models.DecodeAuthEvent(env.Event)
		if err != nil {
			return job{}, err
		}
		return job{auth: ev}, nil
	case KindAdminEvent:
		ev, err := models.DecodeAdminEvent(env.Event)
		if err != nil {
			return job{}, err
		}
		return job{admin: ev, includeRepresentation: env.IncludeRepresentation}, nil
	default:
		return job{}, fmt.Errorf("%w: unknown kind %q", models.ErrInvalidEvent, env.Kind)
	}
}
