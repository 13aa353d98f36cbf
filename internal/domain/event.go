package domain

import "github.com/google/uuid"

// Action tags the ledger operation that produced a ChangeEvent
type Action string

const (
	ActionGetDeposits          Action = "getDeposits"
	ActionCreateDepositAccount Action = "createDepositAccount"
	ActionUpdateHistory        Action = "updateDepositHistory"
	ActionSortDepositList      Action = "sortDepositList"
)

// ChangeEvent is broadcast to observers after every ledger operation, successful or not
type ChangeEvent struct {
	ID      uuid.UUID
	Success bool
	Action  Action
	Result  []DepositAccount // Snapshot after the operation, derived fields included
	Err     error            // nil when Success is true
}
