package outbound

// TaskDispatcher abstracts the shared worker pool so services never depend on
// the pool implementation directly. Satisfied by *ants.Pool.
type TaskDispatcher interface {
	Submit(task func()) error
}
