package notification

import (
	"context"
	"log/slog"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/employee"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/notification"
)

// Notifier resolves employees to their user accounts and queues notifications
// for them. A nil Notifier drops everything, which keeps callers simple in tests.
type Notifier struct {
	service   notification.Service
	employees employee.EmployeeRepository
}

func NewNotifier(service notification.Service, employees employee.EmployeeRepository) *Notifier {
	return &Notifier{service: service, employees: employees}
}

// Message is the content shared by every recipient of one notification.
type Message struct {
	Type    notification.NotificationType
	Title   string
	Message string
	Data    map[string]interface{}
}

// Employee notifies the user account of one employee.
func (n *Notifier) Employee(ctx context.Context, companyID, employeeID string, msg Message) {
	if n == nil || n.service == nil {
		return
	}

	emp, err := n.employees.GetByID(ctx, employeeID)
	if err != nil || emp.UserID == nil {
		return
	}

	n.queue(ctx, []notification.CreateNotificationRequest{n.request(companyID, *emp.UserID, msg)})
}

// Managers notifies every manager of the company except the employee the
// message is about.
func (n *Notifier) Managers(ctx context.Context, companyID, aboutEmployeeID string, msg Message) {
	if n == nil || n.service == nil {
		return
	}

	managers, err := n.employees.GetManagersByCompanyID(ctx, companyID)
	if err != nil {
		slog.Warn("failed to load managers for notification", "company_id", companyID, "error", err)
		return
	}

	reqs := make([]notification.CreateNotificationRequest, 0, len(managers))
	for _, m := range managers {
		if m.ID == aboutEmployeeID || m.UserID == nil {
			continue
		}
		reqs = append(reqs, n.request(companyID, *m.UserID, msg))
	}
	n.queue(ctx, reqs)
}

func (n *Notifier) request(companyID, userID string, msg Message) notification.CreateNotificationRequest {
	return notification.CreateNotificationRequest{
		CompanyID:   companyID,
		RecipientID: userID,
		Type:        msg.Type,
		Title:       msg.Title,
		Message:     msg.Message,
		Data:        msg.Data,
	}
}

func (n *Notifier) queue(ctx context.Context, reqs []notification.CreateNotificationRequest) {
	if len(reqs) == 0 {
		return
	}
	// Notifications outlive the request that caused them.
	ctx = context.WithoutCancel(ctx)
	if err := n.service.QueueBulkNotification(ctx, reqs); err != nil {
		slog.Warn("failed to queue notifications", "type", reqs[0].Type, "count", len(reqs), "error", err)
	}
}
