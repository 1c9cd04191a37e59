package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// TaskDraft is the caller's request for a new task.
type TaskDraft struct {
	Title    string     `json:"title" validate:"required"`
	Type     TaskType   `json:"type" validate:"required,oneof=target todo"`
	Deadline *time.Time `json:"deadline" validate:"required"`
	Target   *int       `json:"target,omitempty" validate:"required_if=Type target,omitempty,min=1"`
	Items    []string   `json:"items,omitempty" validate:"required_if=Type todo"`
}

var draftValidator = newDraftValidator()

func newDraftValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims the title and drops blank todo lines.
func (d TaskDraft) Normalize() TaskDraft {
	d.Title = strings.TrimSpace(d.Title)
	var items []string
	for _, line := range d.Items {
		if s := strings.TrimSpace(line); s != "" {
			items = append(items, s)
		}
	}
	d.Items = items
	return d
}

// Validate checks the draft against the clock; the deadline must be strictly after now.
func (d TaskDraft) Validate(now time.Time) error {
	d = d.Normalize()
	if err := draftValidator.Struct(d); err != nil {
		return validationFromValidator(err)
	}
	if !d.Deadline.After(now) {
		return NewValidationError("deadline", "must be in the future")
	}
	switch d.Type {
	case TaskTypeTarget:
		if len(d.Items) > 0 {
			return NewValidationError("items", "not allowed for target tasks")
		}
	case TaskTypeTodo:
		if d.Target != nil {
			return NewValidationError("target", "not allowed for todo tasks")
		}
	}
	return nil
}

// NewTask builds an Active task from a validated draft.
func NewTask(id string, d TaskDraft, now time.Time) (Task, error) {
	if err := d.Validate(now); err != nil {
		return Task{}, err
	}
	d = d.Normalize()
	t := Task{
		ID:        id,
		Title:     d.Title,
		Type:      d.Type,
		Status:    TaskStatusActive,
		StartDate: now,
		Deadline:  *d.Deadline,
	}
	switch d.Type {
	case TaskTypeTarget:
		target := *d.Target
		t.Target = &target
	case TaskTypeTodo:
		t.Items = make([]TodoItem, 0, len(d.Items))
		for _, text := range d.Items {
			t.Items = append(t.Items, TodoItem{Text: text})
		}
	}
	return t, nil
}

func validationFromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewValidationError("task", err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", "required_if":
		if fe.Field() == "items" {
			return NewValidationError(fe.Field(), "at least one non-blank item is required")
		}
		return NewValidationError(fe.Field(), "is required")
	case "min":
		return NewValidationError(fe.Field(), fmt.Sprintf("must be at least %s", fe.Param()))
	case "oneof":
		return NewValidationError(fe.Field(), fmt.Sprintf("must be one of: %s", fe.Param()))
	default:
		return NewValidationError(fe.Field(), fmt.Sprintf("failed %s", fe.Tag()))
	}
}
