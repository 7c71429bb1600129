package conversation

import (
	"sort"
	"time"
)

// AppointmentStatus marks whether a stored booking is still active.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "agendada"
	AppointmentCancelled AppointmentStatus = "cancelada"
)

// maxStoredAppointments caps the booking history kept per user.
const maxStoredAppointments = 10

// AppointmentUser holds the contact data collected before booking.
type AppointmentUser struct {
	FullName       string       `json:"fullName,omitempty"`
	DocumentType   DocumentType `json:"documentType,omitempty"`
	DocumentNumber string       `json:"documentNumber,omitempty"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
}

func (u AppointmentUser) complete() bool {
	return u.FullName != "" && u.DocumentType != "" && u.DocumentNumber != "" && u.Email != "" && u.Phone != ""
}

// AppointmentDraft is the booking being assembled; fields fill in one at a time.
type AppointmentDraft struct {
	Mode   Mode    `json:"mode,omitempty"`
	Day    Weekday `json:"day,omitempty"`
	Hour24 *int    `json:"hour24,omitempty"`
}

// AppointmentSchedule is a fully determined (mode, day, hour) triple.
type AppointmentSchedule struct {
	Mode   Mode    `json:"mode"`
	Day    Weekday `json:"day"`
	Hour24 int     `json:"hour24"`
}

// StoredAppointment is a booking remembered across conversations.
type StoredAppointment struct {
	Mode                 Mode              `json:"mode"`
	Day                  Weekday           `json:"day"`
	Hour24               int               `json:"hour24"`
	Status               AppointmentStatus `json:"status"`
	UpdatedAt            string            `json:"updatedAt"`
	CitaID               string            `json:"citaId,omitempty"`
	AssignedStudentName  string            `json:"assignedStudentName,omitempty"`
	AssignedStudentEmail string            `json:"assignedStudentEmail,omitempty"`
	User                 *AppointmentUser  `json:"user,omitempty"`
}

func (a StoredAppointment) valid() bool {
	if a.Mode != ModeVirtual && a.Mode != ModePresencial {
		return false
	}
	if pickWeekday(string(a.Day)) == "" {
		return false
	}
	return isHourAllowedByMode(a.Mode, a.Hour24)
}

func (a StoredAppointment) updatedAtTime() time.Time {
	ts, err := time.Parse(time.RFC3339Nano, a.UpdatedAt)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Survey is the post-conversation feedback captured before closing.
type Survey struct {
	Rating    int     `json:"rating,omitempty"`
	Comment   *string `json:"comment"`
	CreatedAt string  `json:"createdAt,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

// Profile accumulates everything learned about the user during a
// conversation. It is mirrored verbatim into the external conversation
// context, so the JSON field names are part of the service contract.
type Profile struct {
	PolicyAccepted bool `json:"policyAccepted"`

	LastLaboralQuery    string `json:"lastLaboralQuery,omitempty"`
	LastRagNoSupport    bool   `json:"lastRagNoSupport,omitempty"`
	PendingCaseType     string `json:"pendingCaseType,omitempty"`
	PendingClarify      string `json:"pendingClarification,omitempty"`
	Issue               string `json:"issue,omitempty"`
	ConsultaEstado      string `json:"consultaEstado,omitempty"`
	ConsultaFinalizadaEn string `json:"consultaFinalizadaEn,omitempty"`
	ConsultasFinalizadas int    `json:"consultasFinalizadas,omitempty"`

	AppointmentUser        *AppointmentUser    `json:"appointmentUser,omitempty"`
	Appointment            *AppointmentDraft   `json:"appointment,omitempty"`
	AvailableHours         []int               `json:"appointmentAvailableHours,omitempty"`
	ReturnToConfirm        bool                `json:"appointmentReturnToConfirm,omitempty"`
	EditOnly               bool                `json:"appointmentEditOnly,omitempty"`
	RescheduleCandidates   []StoredAppointment `json:"rescheduleCandidates,omitempty"`
	RescheduleSelectedIdx  *int                `json:"rescheduleSelectedIndex,omitempty"`
	CancelCandidates       []StoredAppointment `json:"cancelCandidates,omitempty"`
	CancelSelectedIdx      *int                `json:"cancelSelectedIndex,omitempty"`
	Survey                 *Survey             `json:"survey,omitempty"`
	LastAppointment        *StoredAppointment  `json:"lastAppointment,omitempty"`
	LastAppointments       []StoredAppointment `json:"lastAppointments,omitempty"`
}

// userData returns the collected contact data only when every field is present.
func (p Profile) userData() *AppointmentUser {
	if p.AppointmentUser == nil || !p.AppointmentUser.complete() {
		return nil
	}
	u := *p.AppointmentUser
	return &u
}

// scheduleData returns the draft booking only when it is complete and valid.
func (p Profile) scheduleData() *AppointmentSchedule {
	if p.Appointment == nil || p.Appointment.Hour24 == nil {
		return nil
	}
	mode := p.Appointment.Mode
	if mode != ModeVirtual && mode != ModePresencial {
		return nil
	}
	day := pickWeekday(string(p.Appointment.Day))
	if day == "" {
		return nil
	}
	hour := *p.Appointment.Hour24
	if !isHourAllowedByMode(mode, hour) {
		return nil
	}
	return &AppointmentSchedule{Mode: mode, Day: day, Hour24: hour}
}

// withUser clones the profile and applies fn to a copy of the contact data.
func (p Profile) withUser(fn func(u *AppointmentUser)) Profile {
	next := p
	var u AppointmentUser
	if p.AppointmentUser != nil {
		u = *p.AppointmentUser
	}
	fn(&u)
	next.AppointmentUser = &u
	return next
}

// withDraft clones the profile and applies fn to a copy of the booking draft.
func (p Profile) withDraft(fn func(d *AppointmentDraft)) Profile {
	next := p
	var d AppointmentDraft
	if p.Appointment != nil {
		d = *p.Appointment
	}
	fn(&d)
	next.Appointment = &d
	return next
}

func (p Profile) clearReturnToConfirm() Profile {
	next := p
	next.ReturnToConfirm = false
	return next
}

// clearSchedulingScratch drops the transient fields used while a booking or
// reschedule is in flight.
func (p Profile) clearSchedulingScratch() Profile {
	next := p
	next.Appointment = nil
	next.AvailableHours = nil
	next.EditOnly = false
	next.ReturnToConfirm = false
	next.RescheduleCandidates = nil
	next.RescheduleSelectedIdx = nil
	return next
}

// storedAppointments merges lastAppointment into lastAppointments, drops
// malformed entries and returns the newest-first capped history.
func (p Profile) storedAppointments() []StoredAppointment {
	list := make([]StoredAppointment, 0, len(p.LastAppointments)+1)
	for _, item := range p.LastAppointments {
		if item.valid() {
			list = append(list, item)
		}
	}
	if p.LastAppointment != nil && p.LastAppointment.valid() {
		found := false
		for _, item := range list {
			if item.UpdatedAt == p.LastAppointment.UpdatedAt {
				found = true
				break
			}
		}
		if !found {
			list = append([]StoredAppointment{*p.LastAppointment}, list...)
		}
	}
	return sortAndCapAppointments(list)
}

func (p Profile) activeAppointments() []StoredAppointment {
	all := p.storedAppointments()
	active := make([]StoredAppointment, 0, len(all))
	for _, item := range all {
		if item.Status != AppointmentCancelled {
			active = append(active, item)
		}
	}
	return active
}

func sortAndCapAppointments(list []StoredAppointment) []StoredAppointment {
	sorted := append([]StoredAppointment(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].updatedAtTime().After(sorted[j].updatedAtTime())
	})
	if len(sorted) > maxStoredAppointments {
		sorted = sorted[:maxStoredAppointments]
	}
	return sorted
}

// saveAppointmentList replaces the booking history with the given list,
// newest first, keeping lastAppointment in sync.
func (p Profile) saveAppointmentList(list []StoredAppointment) Profile {
	next := p
	normalized := sortAndCapAppointments(list)
	next.LastAppointments = normalized
	if len(normalized) > 0 {
		first := normalized[0]
		next.LastAppointment = &first
	} else {
		next.LastAppointment = nil
	}
	return next
}

// pushAppointment prepends one booking to the history.
func (p Profile) pushAppointment(item StoredAppointment) Profile {
	return p.saveAppointmentList(append([]StoredAppointment{item}, p.storedAppointments()...))
}

// hydrateAppointmentsFromContext merges bookings remembered in the external
// context mirror into the in-memory profile. Returns the merged profile and
// whether anything changed.
func (p Profile) hydrateAppointmentsFromContext(contextProfile *Profile) (Profile, bool) {
	if contextProfile == nil {
		return p, false
	}
	remembered := contextProfile.storedAppointments()
	if len(remembered) == 0 {
		return p, false
	}

	current := p.storedAppointments()
	merged := append(append([]StoredAppointment(nil), current...), remembered...)
	seen := make(map[string]struct{}, len(merged))
	unique := make([]StoredAppointment, 0, len(merged))
	for _, item := range merged {
		key := item.UpdatedAt + "|" + string(item.Day) + "|" + formatHour(item.Hour24) + "|" + string(item.Mode) + "|" + string(item.Status)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, item)
	}
	normalized := sortAndCapAppointments(unique)

	if len(normalized) == len(current) {
		unchanged := true
		for i, item := range normalized {
			other := current[i]
			if item.UpdatedAt != other.UpdatedAt || item.Day != other.Day || item.Hour24 != other.Hour24 ||
				item.Mode != other.Mode || item.Status != other.Status || item.CitaID != other.CitaID {
				unchanged = false
				break
			}
		}
		if unchanged {
			return p, false
		}
	}
	return p.saveAppointmentList(normalized), true
}

// markConsultationAsCompleted bumps the finished-consultation counter once
// per consultation and resets any pending survey.
func (p Profile) markConsultationAsCompleted(now time.Time) Profile {
	if p.ConsultaEstado == "finalizada" {
		return p
	}
	next := p
	next.ConsultasFinalizadas = p.ConsultasFinalizadas + 1
	next.ConsultaEstado = "finalizada"
	next.ConsultaFinalizadaEn = now.UTC().Format(time.RFC3339)
	next.Survey = nil
	return next
}

func (p Profile) markConsultationAsActive() Profile {
	if p.ConsultaEstado == "activa" && p.Survey == nil {
		return p
	}
	next := p
	next.ConsultaEstado = "activa"
	next.Survey = nil
	return next
}

// resetProfile builds the profile kept after a reset command: consent is
// withdrawn, but the finished-consultation counter and booking history from
// the external context survive.
func resetProfile(contextProfile *Profile) Profile {
	next := Profile{PolicyAccepted: false}
	if contextProfile == nil {
		return next
	}
	next.ConsultasFinalizadas = contextProfile.ConsultasFinalizadas
	if contextProfile.LastAppointment != nil {
		last := *contextProfile.LastAppointment
		next.LastAppointment = &last
		next.LastAppointments = append([]StoredAppointment(nil), contextProfile.LastAppointments...)
	}
	return next
}

func intPtr(v int) *int { return &v }
