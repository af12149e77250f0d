package reservation

type LifecycleState string

const (
	LifecyclePending   LifecycleState = "pending"
	LifecycleConfirmed LifecycleState = "confirmed"
	LifecycleCancelled LifecycleState = "cancelled"
	LifecycleCompleted LifecycleState = "completed"
)

func (s LifecycleState) String() string {
	return string(s)
}

func (s LifecycleState) IsValid() bool {
	switch s {
	case LifecyclePending, LifecycleConfirmed, LifecycleCancelled, LifecycleCompleted:
		return true
	default:
		return false
	}
}

type PaymentState string

const (
	PaymentUnpaid   PaymentState = "unpaid"
	PaymentPaid     PaymentState = "paid"
	PaymentFailed   PaymentState = "failed"
	PaymentRefunded PaymentState = "refunded"
)

func (s PaymentState) String() string {
	return string(s)
}

func (s PaymentState) IsValid() bool {
	switch s {
	case PaymentUnpaid, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	default:
		return false
	}
}
