package conversation

import "time"

// Stage identifies where a conversation sits inside the guided flow.
type Stage string

const (
	StageAwaitingPolicyConsent    Stage = "awaiting_policy_consent"
	StageAwaitingCategory         Stage = "awaiting_category"
	StageAwaitingQuestion         Stage = "awaiting_question"
	StageSupport                  Stage = "support"
	StageAwaitingAppointmentOpt   Stage = "awaiting_appointment_opt"
	StageAwaitingUserFullName     Stage = "awaiting_user_full_name"
	StageAwaitingUserDocType      Stage = "awaiting_user_doc_type"
	StageAwaitingUserDocNumber    Stage = "awaiting_user_doc_number"
	StageAwaitingUserEmail        Stage = "awaiting_user_email"
	StageAwaitingUserPhoneConfirm Stage = "awaiting_user_phone_confirm"
	StageAwaitingUserPhone        Stage = "awaiting_user_phone"
	StageAwaitingAppointmentMode  Stage = "awaiting_appointment_mode"
	StageAwaitingAppointmentDay   Stage = "awaiting_appointment_day"
	StageAwaitingAppointmentTime  Stage = "awaiting_appointment_time"
	StageAwaitingAppointmentOK    Stage = "awaiting_appointment_confirm"
	StageAwaitingReschedulePick   Stage = "awaiting_appointment_reschedule_pick"
	StageAwaitingRescheduleField  Stage = "awaiting_appointment_reschedule_field"
	StageAwaitingCancelPick       Stage = "awaiting_appointment_cancel_pick"
	StageAwaitingCancelConfirm    Stage = "awaiting_appointment_cancel_confirm"
	StageAwaitingSurveyRating     Stage = "awaiting_survey_rating"
	StageAwaitingSurveyComment    Stage = "awaiting_survey_comment"
)

// Category is the broad track the user picked from the menu.
type Category string

const (
	CategoryNone    Category = ""
	CategoryLaboral Category = "laboral"
	CategorySoporte Category = "soporte"
)

// Mode is the appointment modality.
type Mode string

const (
	ModeVirtual    Mode = "virtual"
	ModePresencial Mode = "presencial"
)

// Weekday is a schedulable day. The office only books Monday through Friday.
type Weekday string

const (
	Lunes     Weekday = "lunes"
	Martes    Weekday = "martes"
	Miercoles Weekday = "miercoles"
	Jueves    Weekday = "jueves"
	Viernes   Weekday = "viernes"
)

// DocumentType is a Colombian identity document class.
type DocumentType string

const (
	DocCC        DocumentType = "CC"
	DocCE        DocumentType = "CE"
	DocTI        DocumentType = "TI"
	DocPasaporte DocumentType = "PASAPORTE"
	DocPPT       DocumentType = "PPT"
)

// State is the per-conversation flow state held by a StateStore.
type State struct {
	Stage     Stage     `json:"stage"`
	Category  Category  `json:"category,omitempty"`
	Profile   Profile   `json:"profile"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func defaultState() State {
	return State{Stage: StageAwaitingPolicyConsent}
}

// allowedHours returns the bookable hours for a modality.
func allowedHours(mode Mode) []int {
	if mode == ModePresencial {
		return []int{13, 14, 15, 16, 17}
	}
	return []int{8, 9, 10, 11, 12, 13, 14, 15, 16, 17}
}

func isHourAllowedByMode(mode Mode, hour24 int) bool {
	for _, h := range allowedHours(mode) {
		if h == hour24 {
			return true
		}
	}
	return false
}
