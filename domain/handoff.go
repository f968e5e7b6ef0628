package domain

import "time"

// DefaultHandoffItems is the checklist template generated when a project
// reaches COMPLETED and the transfer process starts.
var DefaultHandoffItems = []string{
	"Transfer domain ownership to client",
	"Transfer Google Workspace admin access",
	"Transfer hosting/deployment access",
	"Share all credentials and API keys",
	"Transfer source code repository access",
	"Provide project documentation",
	"Hand over analytics access (Google Analytics, etc.)",
	"Remove Juicebox Studios admin accounts",
	"Final walkthrough with client",
	"Confirm client has independent access to all services",
}

// HandoffItem is one checklist line for project transfer. CompletedAt is set
// exactly when completed flips true and cleared when it flips back.
type HandoffItem struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Label       string     `json:"label"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
}
