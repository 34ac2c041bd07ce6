package booking

import "github.com/seiflawfirm/site/services/site-service/internal/model"

type ModeKind string

const (
	KindAdd  ModeKind = "add"
	KindEdit ModeKind = "edit"
	KindView ModeKind = "view"
)

// Mode selects how a session treats its record: a fresh booking, an edit of
// an existing appointment, or a read-only view of one.
type Mode interface {
	Kind() ModeKind
	Fields() FieldConfig
	// Record is the appointment being edited or viewed; nil in add mode.
	Record() *model.Appointment
}

type AddMode struct{}

type EditMode struct {
	Appointment model.Appointment
}

type ViewMode struct {
	Appointment model.Appointment
}

func (AddMode) Kind() ModeKind  { return KindAdd }
func (EditMode) Kind() ModeKind { return KindEdit }
func (ViewMode) Kind() ModeKind { return KindView }

func (AddMode) Record() *model.Appointment    { return nil }
func (m EditMode) Record() *model.Appointment { return &m.Appointment }
func (m ViewMode) Record() *model.Appointment { return &m.Appointment }

type Field string

const (
	FieldClientName Field = "clientName"
	FieldEmail      Field = "email"
	FieldPhone      Field = "phone"
	FieldDate       Field = "date"
	FieldTime       Field = "time"
	FieldService    Field = "service"
	FieldNotes      Field = "notes"
	FieldStatus     Field = "status"
)

// FieldConfig lists what a mode lets the user change.
type FieldConfig struct {
	Editable  []Field `json:"editable"`
	CanSubmit bool    `json:"canSubmit"`
}

func (f FieldConfig) CanEdit(field Field) bool {
	for _, e := range f.Editable {
		if e == field {
			return true
		}
	}
	return false
}

// Date and time are chosen through the calendar in add mode, not typed.
func (AddMode) Fields() FieldConfig {
	return FieldConfig{
		Editable:  []Field{FieldClientName, FieldEmail, FieldPhone, FieldService, FieldNotes},
		CanSubmit: true,
	}
}

func (EditMode) Fields() FieldConfig {
	return FieldConfig{
		Editable: []Field{
			FieldClientName, FieldEmail, FieldPhone, FieldDate, FieldTime,
			FieldService, FieldNotes, FieldStatus,
		},
		CanSubmit: true,
	}
}

func (ViewMode) Fields() FieldConfig {
	return FieldConfig{Editable: []Field{}, CanSubmit: false}
}

func modeFor(kind ModeKind, appt *model.Appointment) Mode {
	switch kind {
	case KindEdit:
		if appt != nil {
			return EditMode{Appointment: *appt}
		}
	case KindView:
		if appt != nil {
			return ViewMode{Appointment: *appt}
		}
	}
	return AddMode{}
}
