package flow

import (
	"fmt"
	"regexp"
	"time"

	"cleanbot/internal/model"
)

// DateLayout is the wall-clock date format shown to users.
const DateLayout = "02.01.2006"

// Draft is a manager's in-flight new-order form. It lives only in memory
// and dies on confirm or cancel.
type Draft struct {
	Step Step

	City          string
	Date          string
	Time          string
	Address       string
	Type          string
	Equipment     string
	Conditions    string
	Comment       string
	ClientContact string

	// ManualDate marks that the manager is typing a date instead of using
	// the today/tomorrow shortcuts.
	ManualDate bool
}

// Set stores value into the field addressed by step. Unknown steps are
// ignored.
func (d *Draft) Set(step Step, value string) {
	switch step {
	case StepCity:
		d.City = value
	case StepDate:
		d.Date = value
	case StepTime:
		d.Time = value
	case StepAddress:
		d.Address = value
	case StepType:
		d.Type = value
	case StepEquipment:
		d.Equipment = value
	case StepConditions:
		d.Conditions = value
	case StepComment:
		d.Comment = value
	case StepClientContact:
		d.ClientContact = value
	}
}

// Value returns the field addressed by step.
func (d *Draft) Value(step Step) string {
	switch step {
	case StepCity:
		return d.City
	case StepDate:
		return d.Date
	case StepTime:
		return d.Time
	case StepAddress:
		return d.Address
	case StepType:
		return d.Type
	case StepEquipment:
		return d.Equipment
	case StepConditions:
		return d.Conditions
	case StepComment:
		return d.Comment
	case StepClientContact:
		return d.ClientContact
	}
	return ""
}

// Complete reports whether every required field is filled. Comment is the
// only optional field.
func (d *Draft) Complete() bool {
	return d.City != "" && d.Date != "" && d.Time != "" && d.Address != "" &&
		d.Type != "" && d.Equipment != "" && d.Conditions != "" && d.ClientContact != ""
}

// Order converts the confirmed draft into a persistable order.
func (d *Draft) Order(managerID int64, managerContact string) *model.Order {
	return &model.Order{
		City:           d.City,
		Date:           d.Date,
		Time:           d.Time,
		Address:        d.Address,
		Type:           d.Type,
		Equipment:      d.Equipment,
		Conditions:     d.Conditions,
		Comment:        d.Comment,
		ClientContact:  d.ClientContact,
		ManagerContact: managerContact,
		ManagerID:      managerID,
	}
}

// Today returns the current date as dd.mm.yyyy.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// Tomorrow returns tomorrow's date as dd.mm.yyyy.
func Tomorrow(now time.Time) string {
	return now.AddDate(0, 0, 1).Format(DateLayout)
}

var timePattern = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// ParseManualDate validates a typed dd.mm.yyyy date and returns it
// normalized.
func ParseManualDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("bad date %q: %w", s, err)
	}
	return t.Format(DateLayout), nil
}

// ValidTime reports whether s looks like an HH:MM wall-clock time.
func ValidTime(s string) bool {
	return timePattern.MatchString(s)
}
