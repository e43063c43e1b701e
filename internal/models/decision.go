package models

type DecisionKind int

const (
	NoHistory DecisionKind = iota
	Consistent
	Anomalous
)

func (k DecisionKind) String() string {
	switch k {
	case NoHistory:
		return "no_history"
	case Consistent:
		return "consistent"
	case Anomalous:
		return "anomalous"
	default:
		return "unknown"
	}
}

func (k DecisionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Decision is the result of comparing the newest login with the one before
// it. The locations are only set for Anomalous.
type Decision struct {
	Kind             DecisionKind `json:"kind"`
	PreviousLocation string       `json:"previousLocation,omitempty"`
	CurrentLocation  string       `json:"currentLocation,omitempty"`
}

func AnomalousDecision(previous, current string) Decision {
	return Decision{Kind: Anomalous, PreviousLocation: previous, CurrentLocation: current}
}

func (d Decision) IsAnomalous() bool { return d.Kind == Anomalous }
