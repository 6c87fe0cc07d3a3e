package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"formbridge/internal/platform/google"
)

func textAnswer(values ...string) google.Answer {
	tvs := make([]google.TextValue, 0, len(values))
	for _, v := range values {
		tvs = append(tvs, google.TextValue{Value: v})
	}
	return google.Answer{TextAnswers: &google.TextAnswers{Answers: tvs}}
}

func questionItem(title, questionID string) google.FormItem {
	return google.FormItem{
		Title:        title,
		QuestionItem: &google.QuestionItem{Question: google.Question{QuestionID: questionID}},
	}
}

func TestFormatResponse_Basics(t *testing.T) {
	form := &google.Form{
		FormID: "form-1",
		Info:   google.FormInfo{Title: "Event Feedback"},
		Items: []google.FormItem{
			questionItem("Name", "q1"),
			questionItem("Comments", "q2"),
		},
	}
	response := &google.FormResponse{
		ResponseID: "resp-1",
		Answers: map[string]google.Answer{
			"q1": textAnswer("Ada"),
			"q2": textAnswer("Loved it", "Will return"),
		},
	}

	card := FormatResponse(form, response)

	require.Equal(t, "Event Feedback", card.FormTitle)
	require.Equal(t, "https://docs.google.com/forms/d/form-1/edit", card.FormURL)
	require.Equal(t, "https://docs.google.com/forms/d/form-1/edit#response=resp-1", card.ResponseURL)
	require.False(t, card.ShowMore)
	require.Equal(t, []CardAnswer{
		{Question: "Name", Answer: "Ada"},
		{Question: "Comments", Answer: "Loved it, Will return"},
	}, card.Answers)
}

func TestFormatResponse_TitleFallsBackToDocumentTitle(t *testing.T) {
	form := &google.Form{
		FormID: "form-1",
		Info:   google.FormInfo{DocumentTitle: "Untitled form"},
	}

	card := FormatResponse(form, &google.FormResponse{ResponseID: "r"})

	require.Equal(t, "Untitled form", card.FormTitle)
}

func TestFormatResponse_SkipsUnanswered(t *testing.T) {
	form := &google.Form{
		FormID: "form-1",
		Items: []google.FormItem{
			questionItem("Answered", "q1"),
			questionItem("Skipped", "q2"),
		},
	}
	response := &google.FormResponse{
		ResponseID: "resp-1",
		Answers:    map[string]google.Answer{"q1": textAnswer("yes")},
	}

	card := FormatResponse(form, response)

	require.Len(t, card.Answers, 1)
	require.Equal(t, "Answered", card.Answers[0].Question)
}

func TestFormatResponse_ScaleLabelPrefix(t *testing.T) {
	form := &google.Form{
		FormID: "form-1",
		Items: []google.FormItem{
			{
				Title: "Rate us",
				QuestionItem: &google.QuestionItem{Question: google.Question{
					QuestionID: "q1",
					ScaleQuestion: &google.ScaleQuestion{
						Low: 1, High: 5, LowLabel: "Low", HighLabel: "High",
					},
				}},
			},
		},
	}
	response := &google.FormResponse{
		ResponseID: "resp-1",
		Answers:    map[string]google.Answer{"q1": textAnswer("4")},
	}

	card := FormatResponse(form, response)

	require.Equal(t, `"1 = Low  5 = High": 4`, card.Answers[0].Answer)
}

func TestFormatResponse_QuestionGroupRows(t *testing.T) {
	form := &google.Form{
		FormID: "form-1",
		Items: []google.FormItem{
			{
				Title:       "Sessions",
				Description: "Rate each session",
				QuestionGroupItem: &google.QuestionGroupItem{
					Questions: []google.Question{
						{QuestionID: "g1", RowQuestion: &google.RowQuestion{Title: "Keynote"}},
						{QuestionID: "g2", RowQuestion: &google.RowQuestion{Title: "Workshop"}},
						{QuestionID: "g3", RowQuestion: &google.RowQuestion{Title: "Panel"}},
					},
				},
			},
		},
	}
	response := &google.FormResponse{
		ResponseID: "resp-1",
		Answers: map[string]google.Answer{
			"g1": textAnswer("Good"),
			"g3": textAnswer("Excellent"),
		},
	}

	card := FormatResponse(form, response)

	require.Len(t, card.Answers, 1)
	group := card.Answers[0]
	require.Equal(t, "Sessions", group.Question)
	require.Equal(t, "Rate each session", group.Description)
	require.Equal(t, []CardRow{
		{Title: "Keynote", Answer: "Good"},
		{Title: "Panel", Answer: "Excellent"},
	}, group.Rows)
}

func TestFormatResponse_OverflowBehindToggle(t *testing.T) {
	form := &google.Form{FormID: "form-1"}
	response := &google.FormResponse{ResponseID: "resp-1", Answers: map[string]google.Answer{}}
	for i := 1; i <= 7; i++ {
		id := fmt.Sprintf("q%d", i)
		form.Items = append(form.Items, questionItem(fmt.Sprintf("Question %d", i), id))
		response.Answers[id] = textAnswer(fmt.Sprintf("answer %d", i))
	}

	card := FormatResponse(form, response)

	require.Len(t, card.Answers, 5)
	require.Len(t, card.MoreAnswers, 2)
	require.True(t, card.ShowMore)
	require.Equal(t, "Question 1", card.Answers[0].Question)
	require.Equal(t, "Question 6", card.MoreAnswers[0].Question)
}

func TestBuildAdaptiveCard_ToggleOnlyWhenOverflowing(t *testing.T) {
	small := BuildAdaptiveCard(Card{FormTitle: "T", Answers: []CardAnswer{{Question: "Q", Answer: "A"}}})
	require.NotContains(t, fmt.Sprint(small), "Action.ToggleVisibility")

	big := BuildAdaptiveCard(Card{
		FormTitle:   "T",
		Answers:     []CardAnswer{{Question: "Q", Answer: "A"}},
		MoreAnswers: []CardAnswer{{Question: "Q6", Answer: "A6"}},
		ShowMore:    true,
	})
	require.Contains(t, fmt.Sprint(big), "Action.ToggleVisibility")
}
