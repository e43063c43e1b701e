package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeAuthEvent parses, normalises and validates an auth event payload.
func DecodeAuthEvent(data []byte) (*AuthEvent, error) {
	var ev AuthEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	ev.Type = ParseEventType(string(ev.Type))
	ev.ResolvedLocation = ""
	if err := validate.Struct(&ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return &ev, nil
}

// DecodeAdminEvent parses, normalises and validates an admin event payload.
func DecodeAdminEvent(data []byte) (*AdminEvent, error) {
	var ev AdminEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if op, err := ParseOperationType(string(ev.OperationType)); err == nil {
		ev.OperationType = op
	}
	if err := validate.Struct(&ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return &ev, nil
}
