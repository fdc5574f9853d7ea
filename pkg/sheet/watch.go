package sheet

import (
	"github.com/vango-dev/cells/pkg/cells"
)

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	skipCurrent bool
	once        bool
	when        cells.Derivable[bool]
}

// SkipCurrent suppresses the initial call with the current value.
func SkipCurrent() WatchOption {
	return func(c *watchConfig) {
		c.skipCurrent = true
	}
}

// WatchOnce stops the watch after the first call.
func WatchOnce() WatchOption {
	return func(c *watchConfig) {
		c.once = true
	}
}

// WatchWhen pauses the watch while the named boolean cell is not true.
func (s *Sheet) WatchWhen(name string) (WatchOption, error) {
	c, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	flag := cells.NewDerivation(s.rt, func() bool {
		b, _ := c.cell.Get().(bool)
		return b
	})
	return func(cfg *watchConfig) {
		cfg.when = flag
	}, nil
}

// Watch calls fn with the value of the named cell now and after every
// change, until the returned stop function is called. Errors returned by fn
// propagate to the Set or Update that triggered the call.
func (s *Sheet) Watch(name string, fn func(any) error, opts ...WatchOption) (stop func(), err error) {
	c, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	var cfg watchConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	stopped := cells.NewAtom(s.rt, false)
	reactOpts := []cells.ReactOption{cells.Until(cells.Ref[bool](stopped))}
	if cfg.skipCurrent {
		reactOpts = append(reactOpts, cells.SkipFirst())
	}
	if cfg.once {
		reactOpts = append(reactOpts, cells.Once())
	}
	if cfg.when != nil {
		reactOpts = append(reactOpts, cells.When(cells.Ref(cfg.when)))
	}

	if _, err := cells.React(c.cell, fn, reactOpts...); err != nil {
		_ = stopped.Set(true)
		return nil, err
	}
	return func() {
		_ = stopped.Set(true)
	}, nil
}
