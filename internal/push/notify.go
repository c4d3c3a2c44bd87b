package push

import (
	"errors"
	"fmt"
	"log/slog"

	"chorewheel/internal/store"
)

// Notifier fans push notifications out to every subscription in a household.
// Expired subscriptions are pruned as they are discovered.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	logger  *slog.Logger
}

func NewNotifier(service *Service, subs *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		service: service,
		subs:    subs,
		logger:  logger.With("component", "push"),
	}
}

func (n *Notifier) broadcast(householdID int64, payload Payload) {
	subs, err := n.subs.ListByHousehold(householdID)
	if err != nil {
		n.logger.Error("list subscriptions", "household_id", householdID, "error", err)
		return
	}

	for _, sub := range subs {
		if err := n.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
					n.logger.Error("prune expired subscription", "error", err)
				}
				continue
			}
			n.logger.Warn("send notification", "endpoint", sub.Endpoint, "error", err)
		}
	}
}

// TaskOffered announces a one-off task now open for acceptance.
func (n *Notifier) TaskOffered(householdID, taskID int64, title string) {
	n.broadcast(householdID, Payload{
		Title: "New task up for grabs",
		Body:  fmt.Sprintf("%s is waiting for someone to accept it", title),
		URL:   "/tasks",
		Tag:   fmt.Sprintf("task-offered-%d", taskID),
	})
}

// TaskBound announces that a child accepted a one-off task.
func (n *Notifier) TaskBound(householdID, taskID int64, title, childName string) {
	n.broadcast(householdID, Payload{
		Title: "Task claimed",
		Body:  fmt.Sprintf("%s accepted %s", childName, title),
		URL:   "/tasks",
		Tag:   fmt.Sprintf("task-bound-%d", taskID),
	})
}

// TaskExhausted announces that every candidate declined a one-off task.
func (n *Notifier) TaskExhausted(householdID, taskID int64, title string) {
	n.broadcast(householdID, Payload{
		Title: "Task declined by everyone",
		Body:  fmt.Sprintf("No one accepted %s", title),
		URL:   "/tasks",
		Tag:   fmt.Sprintf("task-exhausted-%d", taskID),
	})
}

// ChoresGenerated summarizes a generation run.
func (n *Notifier) ChoresGenerated(householdID int64, created int) {
	if created == 0 {
		return
	}
	n.broadcast(householdID, Payload{
		Title: "Chores scheduled",
		Body:  fmt.Sprintf("%d new chore assignments were added", created),
		URL:   "/assignments",
		Tag:   "chores-generated",
	})
}
