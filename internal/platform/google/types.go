package google

// Wire types for the Google Forms and OAuth APIs. Field names follow the
// provider's JSON, which uses camelCase throughout.

type UserInfo struct {
	Sub   string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type Form struct {
	FormID       string     `json:"formId"`
	Info         FormInfo   `json:"info"`
	Items        []FormItem `json:"items"`
	ResponderURI string     `json:"responderUri"`
}

type FormInfo struct {
	Title         string `json:"title"`
	DocumentTitle string `json:"documentTitle"`
}

type FormItem struct {
	ItemID            string             `json:"itemId"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	QuestionItem      *QuestionItem      `json:"questionItem,omitempty"`
	QuestionGroupItem *QuestionGroupItem `json:"questionGroupItem,omitempty"`
}

type QuestionItem struct {
	Question Question `json:"question"`
}

type QuestionGroupItem struct {
	Questions []Question `json:"questions"`
}

type Question struct {
	QuestionID    string         `json:"questionId"`
	ScaleQuestion *ScaleQuestion `json:"scaleQuestion,omitempty"`
	RowQuestion   *RowQuestion   `json:"rowQuestion,omitempty"`
}

type ScaleQuestion struct {
	Low       int    `json:"low"`
	High      int    `json:"high"`
	LowLabel  string `json:"lowLabel"`
	HighLabel string `json:"highLabel"`
}

type RowQuestion struct {
	Title string `json:"title"`
}

type FormResponse struct {
	ResponseID        string            `json:"responseId"`
	CreateTime        string            `json:"createTime"`
	LastSubmittedTime string            `json:"lastSubmittedTime"`
	Answers           map[string]Answer `json:"answers"`
}

type Answer struct {
	QuestionID  string       `json:"questionId"`
	TextAnswers *TextAnswers `json:"textAnswers,omitempty"`
}

type TextAnswers struct {
	Answers []TextValue `json:"answers"`
}

type TextValue struct {
	Value string `json:"value"`
}

// Watch is the lease-based push subscription the provider registers against
// a form. ExpireTime and CreateTime are RFC3339.
type Watch struct {
	ID         string `json:"id"`
	EventType  string `json:"eventType"`
	CreateTime string `json:"createTime"`
	ExpireTime string `json:"expireTime"`
	State      string `json:"state"`
}
