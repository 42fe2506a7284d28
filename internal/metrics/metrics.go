package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	TasksDispatched Counter
	TasksFailed     Counter
	OrdersPlaced    Counter
	OrdersFailed    Counter
	OrdersCanceled  Counter
	OrderRetries    Counter
	PositionsClosed Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		TasksDispatched: n,
		TasksFailed:     n,
		OrdersPlaced:    n,
		OrdersFailed:    n,
		OrdersCanceled:  n,
		OrderRetries:    n,
		PositionsClosed: n,
	}
}
