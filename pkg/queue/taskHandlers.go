package queue

import (
	"context"
	"fmt"
	"log"
)

// Pusher delivers a notification payload to an external channel.
type Pusher interface {
	Send(recipientKey, title, body string) error
}

// ReminderEscalator re-notifies the interested parties of a request that has
// gone unanswered. Implemented by the dispatch service.
type ReminderEscalator interface {
	SendRequestReminder(ctx context.Context, requestID int64) error
}

// TaskHandler processes tasks from the queue
type TaskHandler struct {
	pusher    Pusher
	escalator ReminderEscalator
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(pusher Pusher, escalator ReminderEscalator) *TaskHandler {
	return &TaskHandler{
		pusher:    pusher,
		escalator: escalator,
	}
}

// HandleTask dispatches a task to its handler
func (h *TaskHandler) HandleTask(task *Task) error {
	log.Printf("Processing task %s of type %s (attempt %d/%d)",
		task.ID, task.Type, task.Attempts, task.MaxRetries)

	switch task.Type {
	case TaskTypeDeliverNotification:
		return h.handleDeliverNotification(task)
	case TaskTypeRequestReminder:
		return h.handleRequestReminder(task)
	case TaskTypeDonorFollowup:
		return h.handleDonorFollowup(task)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

// handleDeliverNotification pushes one stored notification to its recipient.
// The row is already persisted; this only covers the external channel.
func (h *TaskHandler) handleDeliverNotification(task *Task) error {
	recipientKey := task.GetString("recipient_key")
	if recipientKey == "" {
		return fmt.Errorf("invalid recipient_key in task data")
	}

	title := task.GetString("title")
	body := task.GetString("body")

	if h.pusher == nil {
		return nil
	}

	if err := h.pusher.Send(recipientKey, title, body); err != nil {
		return fmt.Errorf("failed to push notification to %s: %v", recipientKey, err)
	}

	return nil
}

// handleRequestReminder escalates an unanswered urgent request.
func (h *TaskHandler) handleRequestReminder(task *Task) error {
	requestID := task.GetInt64("request_id")
	if requestID == 0 {
		return fmt.Errorf("invalid request_id in task data")
	}

	if h.escalator == nil {
		return nil
	}

	if err := h.escalator.SendRequestReminder(context.Background(), requestID); err != nil {
		return fmt.Errorf("failed to escalate request %d: %v", requestID, err)
	}

	return nil
}

// handleDonorFollowup sends a thank-you / next-eligibility message to a donor
// after a recorded donation.
func (h *TaskHandler) handleDonorFollowup(task *Task) error {
	recipientKey := task.GetString("recipient_key")
	if recipientKey == "" {
		return fmt.Errorf("invalid recipient_key in task data")
	}

	message := task.GetString("message")
	if message == "" {
		return fmt.Errorf("invalid message in task data")
	}

	if h.pusher == nil {
		return nil
	}

	if err := h.pusher.Send(recipientKey, "Thank you for donating", message); err != nil {
		return fmt.Errorf("failed to push followup to %s: %v", recipientKey, err)
	}

	return nil
}
