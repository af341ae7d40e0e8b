// Package flow holds the in-memory guided form sessions: the new-order
// draft a manager fills step by step, and the photo capture a master opens
// while working an order.
package flow

// Step is one stop of the new-order form.
type Step int

const (
	StepCity Step = iota
	StepDate
	StepTime
	StepAddress
	StepType
	StepEquipment
	StepConditions
	StepComment
	StepClientContact
	StepConfirm
)

var stepNames = map[Step]string{
	StepCity:          "city",
	StepDate:          "date",
	StepTime:          "time",
	StepAddress:       "address",
	StepType:          "type",
	StepEquipment:     "equipment",
	StepConditions:    "conditions",
	StepComment:       "comment",
	StepClientContact: "client_contact",
	StepConfirm:       "confirm",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Next returns the step that follows s. Confirm is the last stop.
func (s Step) Next() Step {
	if s >= StepConfirm {
		return StepConfirm
	}
	return s + 1
}

// Prev returns the step that precedes s. City is the first stop.
func (s Step) Prev() Step {
	if s <= StepCity {
		return StepCity
	}
	return s - 1
}

// TextInput reports whether the step consumes a typed message rather than
// an inline-keyboard callback.
func (s Step) TextInput() bool {
	switch s {
	case StepTime, StepAddress, StepComment, StepClientContact:
		return true
	case StepDate:
		// Manual date entry after the today/tomorrow fast paths.
		return true
	}
	return false
}
