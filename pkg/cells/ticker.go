package cells

// Ticker batches many discrete updates into few notification passes.
//
// All unreleased tickers of a runtime share one outermost transaction. Tick
// commits it (running reactions once for everything set since the last tick)
// and opens a new one; Reset discards it instead. The last Release commits.
//
// Example:
//
//	t := rt.Ticker()
//	defer t.Release()
//	for ev := range events {
//	    apply(ev)
//	    if ev.Last {
//	        t.Tick()
//	    }
//	}
type Ticker struct {
	rt       *Runtime
	released bool
}

// Ticker returns a new ticker, opening the shared transaction if this is the
// only unreleased ticker.
func (rt *Runtime) Ticker() *Ticker {
	if rt.tickers == 0 {
		rt.tickerTxn = rt.begin("ticker")
	}
	rt.tickers++
	return &Ticker{rt: rt}
}

// Tick commits the shared transaction and opens a new one.
func (t *Ticker) Tick() error {
	if t.released {
		return ErrTickerReleased
	}
	rt := t.rt
	if err := rt.tickerTxn.check(); err != nil {
		return err
	}
	err := rt.tickerTxn.Commit()
	rt.tickerTxn = rt.begin("ticker")
	return err
}

// Reset aborts the shared transaction and opens a new one.
func (t *Ticker) Reset() error {
	if t.released {
		return ErrTickerReleased
	}
	rt := t.rt
	if err := rt.tickerTxn.Abort(); err != nil {
		return err
	}
	rt.tickerTxn = rt.begin("ticker")
	return nil
}

// Release drops this ticker. Releasing the last ticker commits the shared
// transaction; while a nested transaction is still open that fails with
// ErrTxnNotInnermost and the ticker stays live.
func (t *Ticker) Release() error {
	if t.released {
		return ErrTickerReleased
	}
	rt := t.rt
	if rt.tickers == 1 {
		if err := rt.tickerTxn.check(); err != nil {
			return err
		}
	}
	t.released = true
	rt.tickers--
	if rt.tickers > 0 {
		return nil
	}
	txn := rt.tickerTxn
	rt.tickerTxn = nil
	return txn.Commit()
}
