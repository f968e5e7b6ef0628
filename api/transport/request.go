package transport

// ProjectCreateRequest carries the fields needed to open a project. Amounts
// are minor currency units.
type ProjectCreateRequest struct {
	Title                string `json:"title"`
	Description          string `json:"description"`
	Notes                string `json:"notes"`
	DealType             string `json:"deal_type"`
	TotalAmount          int64  `json:"total_amount"`
	TermMonths           int    `json:"term_months"`
	GracePeriodMonths    int    `json:"grace_period_months"`
	ClientID             string `json:"client_id"`
	TargetCompletionDate string `json:"target_completion_date"`
}

// ProjectUpdateRequest edits the non-lifecycle fields. Absent fields are left
// untouched.
type ProjectUpdateRequest struct {
	Title                *string `json:"title"`
	Description          *string `json:"description"`
	Notes                *string `json:"notes"`
	TotalAmount          *int64  `json:"total_amount"`
	TermMonths           *int    `json:"term_months"`
	GracePeriodMonths    *int    `json:"grace_period_months"`
	ClientID             *string `json:"client_id"`
	TargetCompletionDate *string `json:"target_completion_date"`
}

type StatusOverrideRequest struct {
	Status string `json:"status"`
}

type GracePeriodOverrideRequest struct {
	Months int `json:"months"`
}

type ManualPaymentRequest struct {
	Amount int64 `json:"amount"`
}

type HandoffToggleRequest struct {
	Completed bool `json:"completed"`
}

type NotificationMarkReadRequest struct {
	IDs []string `json:"ids"`
}

type UploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type AuthLoginRequest struct {
	UserID string `json:"user_id"`
	TTL    int    `json:"ttl_seconds"`
}

type RefreshRequest struct {
	SessionID string `json:"session_id"`
	TTL       int    `json:"ttl_seconds"`
}

// IdentityWebhookRequest is the identity provider's user sync payload.
type IdentityWebhookRequest struct {
	Type string `json:"type"`
	Data struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Role      string `json:"role"`
	} `json:"data"`
}
