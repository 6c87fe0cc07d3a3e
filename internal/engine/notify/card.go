package notify

// BuildAdaptiveCard renders a Card into the adaptive-card attachment the chat
// webhook accepts. Layout stays deliberately plain; the logical content is
// what matters.
func BuildAdaptiveCard(card Card) map[string]interface{} {
	body := []interface{}{
		map[string]interface{}{
			"type":   "TextBlock",
			"text":   "New response for form: [" + card.FormTitle + "](" + card.FormURL + ")",
			"wrap":   true,
			"weight": "Bolder",
			"size":   "Medium",
		},
		map[string]interface{}{
			"type":  "Container",
			"id":    "answers",
			"items": answerBlocks(card.Answers),
		},
	}

	if card.ShowMore {
		body = append(body,
			map[string]interface{}{
				"type":      "Container",
				"id":        "moreAnswers",
				"isVisible": false,
				"items":     answerBlocks(card.MoreAnswers),
			},
			map[string]interface{}{
				"type": "ActionSet",
				"id":   "showMoreButtons",
				"actions": []interface{}{
					map[string]interface{}{
						"type":          "Action.ToggleVisibility",
						"title":         "View more",
						"targetElements": []interface{}{"moreAnswers", "showMoreButtons"},
					},
				},
			},
		)
	}

	body = append(body, map[string]interface{}{
		"type": "ActionSet",
		"actions": []interface{}{
			map[string]interface{}{
				"type":  "Action.OpenUrl",
				"title": "Open response",
				"url":   card.ResponseURL,
			},
		},
	})

	return map[string]interface{}{
		"type":    "AdaptiveCard",
		"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
		"version": "1.3",
		"body":    body,
	}
}

func answerBlocks(answers []CardAnswer) []interface{} {
	blocks := make([]interface{}, 0, len(answers))
	for _, answer := range answers {
		items := []interface{}{
			map[string]interface{}{
				"type":   "TextBlock",
				"text":   answer.Question,
				"wrap":   true,
				"weight": "Bolder",
			},
		}
		if answer.Description != "" {
			items = append(items, map[string]interface{}{
				"type":     "TextBlock",
				"text":     answer.Description,
				"wrap":     true,
				"size":     "Small",
				"isSubtle": true,
			})
		}
		if answer.Answer != "" {
			items = append(items, map[string]interface{}{
				"type": "TextBlock",
				"text": answer.Answer,
				"wrap": true,
			})
		}
		for _, row := range answer.Rows {
			items = append(items, map[string]interface{}{
				"type": "ColumnSet",
				"columns": []interface{}{
					map[string]interface{}{
						"type":  "Column",
						"width": "stretch",
						"items": []interface{}{
							map[string]interface{}{"type": "TextBlock", "text": row.Title + ":"},
						},
					},
					map[string]interface{}{
						"type":  "Column",
						"width": "stretch",
						"items": []interface{}{
							map[string]interface{}{"type": "TextBlock", "text": row.Answer, "wrap": true, "weight": "Bolder"},
						},
					},
				},
			})
		}
		blocks = append(blocks, map[string]interface{}{
			"type":  "Container",
			"items": items,
		})
	}
	return blocks
}
