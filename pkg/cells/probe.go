package cells

// Outcome is how a transaction ended.
type Outcome uint8

const (
	Committed Outcome = iota + 1
	Aborted
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Probe receives engine events for instrumentation.
// Methods are called synchronously on the runtime's execution path and must
// not call back into the runtime.
type Probe interface {
	// Recomputed is called after a derivation re-ran its deriver.
	Recomputed(cell uint64)

	// Reacted is called before a reactor invokes its callback.
	Reacted(reactor uint64)

	// TxnBegan is called when a transaction context is pushed.
	// depth is 1 for an outermost transaction.
	TxnBegan(name string, depth int)

	// TxnEnded is called when a transaction context is popped.
	// modified is the number of atoms the context touched.
	TxnEnded(name string, depth int, outcome Outcome, modified int)

	// Cycle is called when a notification pass fails with a *CycleError.
	Cycle(err error)
}

// NopProbe ignores every event. Embed it to implement only part of Probe.
type NopProbe struct{}

func (NopProbe) Recomputed(uint64)                  {}
func (NopProbe) Reacted(uint64)                     {}
func (NopProbe) TxnBegan(string, int)               {}
func (NopProbe) TxnEnded(string, int, Outcome, int) {}
func (NopProbe) Cycle(error)                        {}

// Probes fans events out to several probes in order.
func Probes(ps ...Probe) Probe {
	out := make(multiProbe, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

type multiProbe []Probe

func (m multiProbe) Recomputed(cell uint64) {
	for _, p := range m {
		p.Recomputed(cell)
	}
}

func (m multiProbe) Reacted(reactor uint64) {
	for _, p := range m {
		p.Reacted(reactor)
	}
}

func (m multiProbe) TxnBegan(name string, depth int) {
	for _, p := range m {
		p.TxnBegan(name, depth)
	}
}

func (m multiProbe) TxnEnded(name string, depth int, outcome Outcome, modified int) {
	for _, p := range m {
		p.TxnEnded(name, depth, outcome, modified)
	}
}

func (m multiProbe) Cycle(err error) {
	for _, p := range m {
		p.Cycle(err)
	}
}
