package notify

import (
	"fmt"
	"strings"

	"formbridge/internal/platform/google"
)

const maxInlineAnswers = 5

// Card is the provider-agnostic rendering of one form response. The first
// five answers are shown inline; the rest sit behind a "view more" toggle.
type Card struct {
	FormID      string
	FormTitle   string
	FormURL     string
	ResponseID  string
	ResponseURL string
	Answers     []CardAnswer
	MoreAnswers []CardAnswer
	ShowMore    bool
}

// CardAnswer is one question/answer pair. Grouped (matrix) questions carry
// their sub-question rows instead of a flat answer.
type CardAnswer struct {
	Question    string
	Description string
	Answer      string
	Rows        []CardRow
}

type CardRow struct {
	Title  string
	Answer string
}

// FormatResponse translates one form response into a Card using the form's
// question schema. Items the respondent left unanswered are skipped.
func FormatResponse(form *google.Form, response *google.FormResponse) Card {
	formURL := fmt.Sprintf("https://docs.google.com/forms/d/%s/edit", form.FormID)

	all := collectAnswers(form, response)
	answers := all
	var more []CardAnswer
	if len(all) > maxInlineAnswers {
		answers = all[:maxInlineAnswers]
		more = all[maxInlineAnswers:]
	}

	title := form.Info.Title
	if title == "" {
		title = form.Info.DocumentTitle
	}

	return Card{
		FormID:      form.FormID,
		FormTitle:   title,
		FormURL:     formURL,
		ResponseID:  response.ResponseID,
		ResponseURL: fmt.Sprintf("%s#response=%s", formURL, response.ResponseID),
		Answers:     answers,
		MoreAnswers: more,
		ShowMore:    len(more) > 0,
	}
}

func collectAnswers(form *google.Form, response *google.FormResponse) []CardAnswer {
	var answers []CardAnswer
	for _, item := range form.Items {
		if item.QuestionItem != nil {
			question := item.QuestionItem.Question
			answer := answerText(response, question.QuestionID)
			if answer == "" {
				continue
			}
			if scale := question.ScaleQuestion; scale != nil {
				answer = fmt.Sprintf("\"%d = %s  %d = %s\": %s",
					scale.Low, scale.LowLabel, scale.High, scale.HighLabel, answer)
			}
			answers = append(answers, CardAnswer{Question: item.Title, Answer: answer})
		}

		if item.QuestionGroupItem != nil {
			var rows []CardRow
			for _, question := range item.QuestionGroupItem.Questions {
				answer := answerText(response, question.QuestionID)
				if answer == "" || question.RowQuestion == nil {
					continue
				}
				rows = append(rows, CardRow{Title: question.RowQuestion.Title, Answer: answer})
			}
			if len(rows) > 0 {
				answers = append(answers, CardAnswer{
					Question:    item.Title,
					Description: item.Description,
					Rows:        rows,
				})
			}
		}
	}
	return answers
}

func answerText(response *google.FormResponse, questionID string) string {
	answer, ok := response.Answers[questionID]
	if !ok || answer.TextAnswers == nil {
		return ""
	}
	values := make([]string, 0, len(answer.TextAnswers.Answers))
	for _, v := range answer.TextAnswers.Answers {
		values = append(values, v.Value)
	}
	return strings.Join(values, ", ")
}
