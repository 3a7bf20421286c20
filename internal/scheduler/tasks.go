package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadQualifiedInsights = "automation.lead_qualified.insights"

type LeadQualifiedInsightsPayload struct {
	JobID   string `json:"jobId"`
	LeadID  string `json:"leadId"`
	EventID string `json:"eventId"`
}

func NewLeadQualifiedInsightsTask(payload LeadQualifiedInsightsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadQualifiedInsights, data), nil
}

func ParseLeadQualifiedInsightsPayload(task *asynq.Task) (LeadQualifiedInsightsPayload, error) {
	var payload LeadQualifiedInsightsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadQualifiedInsightsPayload{}, err
	}
	return payload, nil
}
