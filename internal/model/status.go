package model

import (
	"encoding/json"
	"fmt"
)

type Status int16

const (
	StatusInactive Status = 0
	StatusActive   Status = 1
	StatusPending  Status = 2
)

var statusLabels = map[Status]string{
	StatusInactive: "inactive",
	StatusActive:   "active",
	StatusPending:  "pending",
}

// Label maps a stored status to its wire form. Values outside the enum are
// a data contract violation and are reported, never defaulted.
func (s Status) Label() (string, error) {
	label, ok := statusLabels[s]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownStatus, int(s))
	}
	return label, nil
}

func ParseStatus(label string) (Status, error) {
	for status, l := range statusLabels {
		if l == label {
			return status, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, label)
}

func (s Status) MarshalJSON() ([]byte, error) {
	label, err := s.Label()
	if err != nil {
		return nil, err
	}
	return json.Marshal(label)
}
