package cells

// ReactOption configures React.
type ReactOption interface {
	applyReact(c *reactConfig)
}

type reactOptionFunc func(*reactConfig)

func (f reactOptionFunc) applyReact(c *reactConfig) { f(c) }

type reactConfig struct {
	once      bool
	skipFirst bool
	from      Input[bool]
	until     Input[bool]
	when      Input[bool]
	onStart   func()
	onStop    func()
}

// Once stops the reaction for good after the callback has run once.
func Once() ReactOption {
	return reactOptionFunc(func(c *reactConfig) {
		c.once = true
	})
}

// SkipFirst swallows the first callback invocation, which is normally the one
// made with the current value when the reaction starts.
func SkipFirst() ReactOption {
	return reactOptionFunc(func(c *reactConfig) {
		c.skipFirst = true
	})
}

// From delays the reaction until cond first becomes true.
func From(cond Input[bool]) ReactOption {
	return reactOptionFunc(func(c *reactConfig) {
		c.from = cond
	})
}

// Until stops the reaction for good once cond becomes true.
func Until(cond Input[bool]) ReactOption {
	return reactOptionFunc(func(c *reactConfig) {
		c.until = cond
	})
}

// When keeps the reaction active only while cond is true. Each time cond
// turns true the callback runs with the current value.
func When(cond Input[bool]) ReactOption {
	return reactOptionFunc(func(c *reactConfig) {
		c.when = cond
	})
}

// OnStart sets a hook run whenever the reaction becomes active.
func OnStart(fn func()) ReactOption {
	return reactOptionFunc(func(c *reactConfig) {
		c.onStart = fn
	})
}

// OnStop sets a hook run whenever the reaction becomes inactive.
func OnStop(fn func()) ReactOption {
	return reactOptionFunc(func(c *reactConfig) {
		c.onStop = fn
	})
}

// reactConds is the controller's view of the until and when conditions.
type reactConds struct {
	until bool
	when  bool
}

// React calls fn with the value of src now and whenever it changes, subject
// to the options. It returns the reactor running fn; stopping it stops the
// reaction until the When condition next turns true.
//
// Example:
//
//	_, err := cells.React(total, func(n int) error {
//	    fmt.Println("total:", n)
//	    return nil
//	}, cells.When(cells.Ref(visible)), cells.Until(cells.Ref(closed)))
func React[T any](src Derivable[T], fn func(T) error, opts ...ReactOption) (*Reactor[T], error) {
	if fn == nil {
		return nil, &UsageError{Op: "React", Err: ErrNilReaction}
	}

	cfg := reactConfig{
		from:  Val(true),
		until: Val(false),
		when:  Val(true),
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyReact(&cfg)
		}
	}

	rt := src.runtime()
	skip := cfg.skipFirst

	var reactor *Reactor[T]
	var controller *Reactor[reactConds]

	reactor = NewReactor(src, func(v T) error {
		if skip {
			skip = false
			return nil
		}
		if err := fn(v); err != nil {
			return err
		}
		if cfg.once {
			reactor.Stop()
			controller.Stop()
		}
		return nil
	})
	reactor.onStart = cfg.onStart
	reactor.onStop = cfg.onStop

	until := cfg.until.Cell(rt)
	when := cfg.when.Cell(rt)
	conds := NewDerivation(rt, func() reactConds {
		return reactConds{until: until.Get(), when: when.Get()}
	})

	controller = NewReactor(conds, func(c reactConds) error {
		switch {
		case c.until:
			reactor.Stop()
			controller.Stop()
		case c.when:
			if !reactor.IsActive() {
				return reactor.Start().Force()
			}
		case reactor.IsActive():
			reactor.Stop()
		}
		return nil
	})

	var starter *Reactor[bool]
	starter = NewReactor(cfg.from.Cell(rt), func(from bool) error {
		if !from {
			return nil
		}
		err := controller.Start().Force()
		starter.Stop()
		return err
	})

	return reactor, starter.Start().Force()
}
