package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskStartWork = "report.start_work"

type StartWorkPayload struct {
	ReportID string `json:"reportId"`
}

func NewStartWorkTask(reportID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(StartWorkPayload{ReportID: reportID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStartWork, data), nil
}

func ParseStartWorkPayload(task *asynq.Task) (uuid.UUID, error) {
	var payload StartWorkPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(payload.ReportID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("scheduler: invalid report id %q: %w", payload.ReportID, err)
	}
	return id, nil
}

// startWorkTaskID - стабильный идентификатор задачи: одна задача на заявку.
func startWorkTaskID(reportID uuid.UUID) string {
	return "report-start:" + reportID.String()
}
