package domain

// Status is the closed set of project lifecycle states. Transitions are owned
// by the lifecycle service; nothing else may write Project.Status.
type Status string

const (
	StatusPlanning         Status = "PLANNING"
	StatusAgreementPending Status = "AGREEMENT_PENDING"
	StatusPaymentSetup     Status = "PAYMENT_SETUP"
	StatusActive           Status = "ACTIVE"
	StatusPaused           Status = "PAUSED"
	StatusSuspended        Status = "SUSPENDED"
	StatusCompleted        Status = "COMPLETED"
	StatusHandedOff        Status = "HANDED_OFF"
)

// AllStatuses lists every valid status in display order.
var AllStatuses = []Status{
	StatusPlanning,
	StatusAgreementPending,
	StatusPaymentSetup,
	StatusActive,
	StatusPaused,
	StatusSuspended,
	StatusCompleted,
	StatusHandedOff,
}

func (s Status) Valid() bool {
	switch s {
	case StatusPlanning, StatusAgreementPending, StatusPaymentSetup,
		StatusActive, StatusPaused, StatusSuspended, StatusCompleted, StatusHandedOff:
		return true
	}
	return false
}

// Terminal reports whether automated transitions out of s are forbidden.
// Manual operator overrides are still allowed to leave a terminal state.
func (s Status) Terminal() bool {
	return s == StatusHandedOff
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", NewError(ErrCodeInvalid, "unknown project status "+raw)
	}
	return s, nil
}

// DealType distinguishes how a project is billed.
type DealType string

const (
	DealInstallment DealType = "INSTALLMENT"
	DealEquity      DealType = "EQUITY"
)

func (d DealType) Valid() bool {
	return d == DealInstallment || d == DealEquity
}
