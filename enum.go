package canlight

import (
	"context"
	"time"
)

const (
	resetSettle   = 300 * time.Millisecond
	preQuerySleep = 20 * time.Millisecond
	responseWait  = 50 * time.Millisecond
	sendDeadline  = 200 * time.Millisecond
)

// enumerator runs the discovery protocol described in §4.3 over a driver,
// producing a tid -> hex(did) map. It holds no state across runs; each
// Enumerate call constructs a fresh one.
type enumerator struct {
	d            transport
	queryRetries int
}

// run drives one full enumeration to completion. On any send error it
// returns ErrEnumerationAborted and a nil map; the caller must leave its
// registry untouched in that case.
func (e *enumerator) run(ctx context.Context) (map[uint16]string, error) {
	if err := e.d.send(EncodeReset(), sendDeadline); err != nil {
		return nil, &ErrEnumerationAborted{Cause: err}
	}
	if err := sleepCtx(ctx, resetSettle); err != nil {
		return nil, &ErrEnumerationAborted{Cause: err}
	}

	// status holds the unordered set of work items: quid -> partial
	// identity revealed so far. The root (0, []) is the sole initial item.
	status := map[uint16][]uint16{0: {}}
	var nextQUID uint16 = 1
	var nextTID uint16 = 0
	out := map[uint16]string{}

	for len(status) > 0 {
		var quid uint16
		var prefix []uint16
		for q, p := range status {
			quid, prefix = q, p
			break
		}
		delete(status, quid)

		if len(prefix) == didWords {
			if err := e.d.send(EncodeEnumAssign(quid, nextTID), sendDeadline); err != nil {
				return nil, &ErrEnumerationAborted{Cause: err}
			}
			out[nextTID] = encodeDID(prefix)
			nextTID++
			continue
		}

		if err := sleepCtx(ctx, preQuerySleep); err != nil {
			return nil, &ErrEnumerationAborted{Cause: err}
		}

		offset := uint8(len(prefix))
		words, err := e.queryRound(ctx, quid, offset)
		if err != nil {
			return nil, &ErrEnumerationAborted{Cause: err}
		}

		for w := range words {
			if err := e.d.send(EncodeEnumUpdate(quid, offset, w, nextQUID), sendDeadline); err != nil {
				return nil, &ErrEnumerationAborted{Cause: err}
			}
			child := make([]uint16, len(prefix), len(prefix)+1)
			copy(child, prefix)
			child = append(child, w)
			status[nextQUID] = child
			nextQUID++
		}
	}

	return out, nil
}

// queryRound sends one EnumQuery and collects the set of distinct words
// returned before the first silent 50ms window. If e.queryRetries > 0, an
// empty round is retried up to that many additional times before the
// prefix is declared childless (the bounded-retry extension permitted, but
// not required, by §9).
func (e *enumerator) queryRound(ctx context.Context, quid uint16, offset uint8) (map[uint16]struct{}, error) {
	attempts := 1 + e.queryRetries
	words := map[uint16]struct{}{}

	for attempt := 0; attempt < attempts; attempt++ {
		if err := e.d.send(EncodeEnumQuery(quid, offset), sendDeadline); err != nil {
			return nil, err
		}

		round := map[uint16]struct{}{}
		for {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			f, ok := e.d.receive(responseWait)
			if !ok {
				break
			}
			if w, match := DecodeEnumQueryResp(f); match {
				round[w] = struct{}{}
			}
		}

		for w := range round {
			words[w] = struct{}{}
		}
		if len(round) > 0 {
			break
		}
	}

	return words, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
