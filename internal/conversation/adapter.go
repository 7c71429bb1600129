package conversation

import (
	"context"

	"github.com/sofialabs/legalaid-ai-platform/internal/rag"
)

// ScheduleRequest carries everything the agenda service needs to book a slot.
type ScheduleRequest struct {
	Day            Weekday
	Mode           Mode
	Hour24         int
	ConversationID string
	Reason         string
	User           AppointmentUser
}

// ScheduleStatus is the outcome class of a booking or reschedule attempt.
type ScheduleStatus string

const (
	ScheduleOK                 ScheduleStatus = "ok"
	ScheduleSlotUnavailable    ScheduleStatus = "slot_unavailable"
	ScheduleNoEligibleStudents ScheduleStatus = "no_eligible_students"
)

// ScheduleResult is the agenda service answer to a successful-or-rejected
// booking attempt. Transport failures surface as an error instead.
type ScheduleResult struct {
	Status       ScheduleStatus
	CitaID       string
	StudentName  string
	StudentEmail string
}

// SchedulingAdapter is what the flow engine needs from the appointment
// service. Errors returned by implementations carry user-presentable
// messages.
type SchedulingAdapter interface {
	// Availability returns the bookable hours (24h) for a day and mode.
	Availability(ctx context.Context, day Weekday, mode Mode) ([]int, error)
	// Schedule books a new appointment.
	Schedule(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error)
	// Reschedule moves an existing appointment to a new day and hour.
	Reschedule(ctx context.Context, citaID string, day Weekday, hour24 int) (*ScheduleResult, error)
	// Cancel cancels an existing appointment.
	Cancel(ctx context.Context, citaID string) error
	// SubmitSurvey records post-conversation feedback. Best effort.
	SubmitSurvey(ctx context.Context, rating int, comment *string) error
}

// AnswerClient is what the flow engine needs from the legal knowledge base.
type AnswerClient interface {
	Ask(ctx context.Context, query, correlationID string) (*rag.Answer, error)
}
