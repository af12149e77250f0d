package payment

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is legal.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Method string

const (
	MethodMpesa Method = "mpesa"
	MethodCard  Method = "card"
	MethodBank  Method = "bank"
	MethodOther Method = "other"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodMpesa, MethodCard, MethodBank, MethodOther:
		return true
	default:
		return false
	}
}
