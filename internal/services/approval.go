package services

import "github.com/SAP-F-2025/identity-service/internal/models"

// Decision is the outcome of the approval gate.
type Decision struct {
	Allow  bool
	Reason string
}

// DecideApproval is the single place approval is evaluated. Both the passive
// resolution path and the explicit login path call it so the policy cannot
// drift between them. Admin and parent are allowed unconditionally; teachers
// are allowed only once an administrator has approved them.
func DecideApproval(role models.Role, approved bool) Decision {
	if role != models.RoleTeacher {
		return Decision{Allow: true}
	}
	if approved {
		return Decision{Allow: true}
	}
	return Decision{Allow: false, Reason: PendingApprovalMessage}
}
