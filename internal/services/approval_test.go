package services

import (
	"testing"

	"github.com/SAP-F-2025/identity-service/internal/models"
)

func TestDecideApproval(t *testing.T) {
	tests := []struct {
		name     string
		role     models.Role
		approved bool
		allow    bool
	}{
		{name: "admin always allowed", role: models.RoleAdmin, approved: false, allow: true},
		{name: "parent always allowed", role: models.RoleParent, approved: false, allow: true},
		{name: "approved teacher allowed", role: models.RoleTeacher, approved: true, allow: true},
		{name: "unapproved teacher denied", role: models.RoleTeacher, approved: false, allow: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideApproval(tt.role, tt.approved)
			if got.Allow != tt.allow {
				t.Errorf("DecideApproval(%q, %v).Allow = %v, want %v", tt.role, tt.approved, got.Allow, tt.allow)
			}
			if !got.Allow && got.Reason != PendingApprovalMessage {
				t.Errorf("denied decision must carry the pending-approval message, got %q", got.Reason)
			}
			if got.Allow && got.Reason != "" {
				t.Errorf("allowed decision must carry no reason, got %q", got.Reason)
			}
		})
	}
}
