package conversation

import (
	"context"
	"strings"
	"time"
)

func (e *Engine) handleSurveyRating(ctx context.Context, in Input, state State) (*Result, error) {
	rating := pickSurveyRating(in.RawText)
	if rating < 1 || rating > 5 {
		return e.respond(ctx, in, state, "No entendí tu calificación. Responde con un número del 1 al 5 (estrellas).", nil)
	}

	state.Profile.Survey = &Survey{
		Rating:    rating,
		Comment:   nil,
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	state.Stage = StageAwaitingSurveyComment
	return e.respond(ctx, in, state, surveyCommentText, map[string]any{"surveyFlow": "comment"})
}

func (e *Engine) handleSurveyComment(ctx context.Context, in Input, state State) (*Result, error) {
	var comment *string
	if !isSurveySkipComment(in.Text) {
		trimmed := strings.TrimSpace(in.RawText)
		if trimmed != "" {
			comment = &trimmed
		}
	}

	survey := Survey{}
	if state.Profile.Survey != nil {
		survey = *state.Profile.Survey
	}
	survey.Comment = comment
	survey.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	if survey.Rating >= 1 && survey.Rating <= 5 {
		if err := e.scheduler.SubmitSurvey(ctx, survey.Rating, comment); err != nil {
			e.logger.Warn("survey submission failed",
				"conversation_id", in.ConversationID,
				"error", err.Error())
		}
	}

	profile := state.Profile
	profile.Survey = &survey
	return e.closeConversation(ctx, in, profile, surveyThanksText+"\n\n"+goodbyeText, map[string]any{"surveyFlow": "done", "ended": true})
}
