// Package transport defines the request and response shapes for the
// outreach generation API.
package transport

type OutreachEmailRequest struct {
	LeadID string `json:"leadId"`
	Tone   string `json:"tone"`
	Goal   string `json:"goal"`
}

type OutreachEmailResponse struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	LeadID  string `json:"leadId"`
	Model   string `json:"model"`
}
