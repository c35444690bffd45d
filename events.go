package queuectl

import (
	"encoding/json"
)

// Topics events are published on.
const (
	TopicCompleted = "queuectl.completed"
	TopicDead      = "queuectl.dead"
)

// JobEvent is the message body published when a job reaches a final state.
type JobEvent struct {
	Job    JobRecord `json:"job"`
	Result RunResult `json:"result"`
}

// publish sends a JobEvent for completed and dead jobs. Failures are logged
// and never affect the job.
func (q *Queue) publish(j *JobRecord, res RunResult) {
	if q.cfg.Publisher == nil {
		return
	}
	var topic string
	switch j.State {
	case JobCompleted:
		topic = TopicCompleted
	case JobDead:
		topic = TopicDead
	default:
		return
	}

	body, err := json.Marshal(JobEvent{Job: *j, Result: res})
	if err != nil {
		q.cfg.logError(LogEvent{Message: "failed to encode job event", JobID: j.ID, Err: err})
		return
	}
	if err := q.cfg.Publisher.Publish(topic, body); err != nil {
		q.cfg.logError(LogEvent{Message: "failed to publish job event to " + topic, JobID: j.ID, Err: err})
	}
}
