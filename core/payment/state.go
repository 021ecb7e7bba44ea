package payment

type Status string

const (
	NoIntent              Status = ""
	RequiresPaymentMethod Status = "requires_payment_method"
	Processing            Status = "processing"
	Succeeded             Status = "succeeded"
	Canceled              Status = "canceled"
)

var transitions = map[Status][]Status{
	NoIntent:              {RequiresPaymentMethod},
	RequiresPaymentMethod: {RequiresPaymentMethod, Processing, Succeeded, Canceled},
	Processing:            {Succeeded, RequiresPaymentMethod, Canceled},
	Succeeded:             {},
	Canceled:              {},
}

// CanTransition reports whether an intent may move from one status to
// another. Updating amounts is a self transition of RequiresPaymentMethod.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// Updatable reports whether the amount of an intent in this status may still
// change, which only a status transitioning to itself allows.
func (s Status) Updatable() bool {
	return CanTransition(s, s)
}
