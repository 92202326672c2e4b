package dto

// GmailMessage is a single row returned to the list view. Field casing
// matches what the web client expects.
type GmailMessage struct {
	MessageID   string   `json:"MessageID"`
	Subject     string   `json:"subject"`
	Snippet     string   `json:"snippet"`
	Sender      string   `json:"sender"`
	SenderEmail string   `json:"senderEmail"`
	DateISO     string   `json:"dateISO"`
	Plain       string   `json:"plain,omitempty"`
	Html        string   `json:"html,omitempty"`
	Urgent      bool     `json:"urgent"`
	AiSummary   []string `json:"aiSummary"`
	AiChecklist []string `json:"aiChecklist"`
}

type ConnectResponse struct {
	AuthURL string `json:"auth_url"`
}

type FetchResponse struct {
	Fetched int `json:"fetched"`
}
