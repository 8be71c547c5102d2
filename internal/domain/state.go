package domain

// State этап жизненного цикла соединения.
//
// Клиент: Idle -> Connected -> CallInFlight -> Completed -> Closed.
// Сервер: Idle -> Serving -> Closed.
type State int

const (
	StateIdle State = iota
	StateConnected
	StateCallInFlight
	StateCompleted
	StateServing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnected:
		return "CONNECTED"
	case StateCallInFlight:
		return "CALL_IN_FLIGHT"
	case StateCompleted:
		return "COMPLETED"
	case StateServing:
		return "SERVING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
