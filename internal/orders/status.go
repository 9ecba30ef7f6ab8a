package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var knownStatus = map[Status]bool{
	StatusPending:   true,
	StatusPaid:      true,
	StatusCompleted: true,
	StatusCancelled: true,
}

func (s Status) Valid() bool { return knownStatus[s] }

// CanTransition sengaja permisif: status apa pun boleh diikuti status valid apa pun.
func CanTransition(from, to Status) bool {
	return to.Valid()
}
