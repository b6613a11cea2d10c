package users

import "time"

// Account roles. Every user carries exactly one role; permissions derive
// from it.
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RolePublic = "public"
)

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff || role == RolePublic
}

// User represents a back-office account holder.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Permissions is the capability set the UI renders from. It is derived from
// the role, never stored.
type Permissions struct {
	CanManageUsers        bool `json:"can_manage_users"`
	CanViewLedger         bool `json:"can_view_ledger"`
	CanExportData         bool `json:"can_export_data"`
	CanManageInventory    bool `json:"can_manage_inventory"`
	CanRecordTransactions bool `json:"can_record_transactions"`
	CanManageExpenses     bool `json:"can_manage_expenses"`
	CanViewReports        bool `json:"can_view_reports"`
	CanManageSettings     bool `json:"can_manage_settings"`
}

// PermissionsFor returns the permission set for a role. Unknown roles get
// the public (read-only reports) set.
func PermissionsFor(role string) Permissions {
	switch role {
	case RoleAdmin:
		return Permissions{
			CanManageUsers:        true,
			CanViewLedger:         true,
			CanExportData:         true,
			CanManageInventory:    true,
			CanRecordTransactions: true,
			CanManageExpenses:     true,
			CanViewReports:        true,
			CanManageSettings:     true,
		}
	case RoleStaff:
		return Permissions{
			CanManageInventory:    true,
			CanRecordTransactions: true,
			CanManageExpenses:     true,
			CanViewReports:        true,
		}
	default:
		return Permissions{CanViewReports: true}
	}
}
