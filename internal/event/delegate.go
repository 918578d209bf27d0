// Package event provides typed multicast delegates: any number of
// independent subscribers, fire-and-forget broadcast, no return values.
package event

// Handle identifies a subscription for later removal.
type Handle uint64

type subscriber[T any] struct {
	handle Handle
	fn     func(T)
}

// Delegate broadcasts values of type T to its subscribers in registration
// order. Dispatch is synchronous and single-threaded; a handler may add or
// remove subscribers while a broadcast is running, and the change applies
// from the next broadcast.
//
// The zero value is ready to use.
type Delegate[T any] struct {
	subs []subscriber[T]
	next Handle
}

// Signal carries no payload.
type Signal = struct{}

// Add subscribes fn and returns its handle.
func (d *Delegate[T]) Add(fn func(T)) Handle {
	d.next++
	d.subs = append(d.subs, subscriber[T]{handle: d.next, fn: fn})
	return d.next
}

// Remove unsubscribes h. It reports whether h was subscribed.
func (d *Delegate[T]) Remove(h Handle) bool {
	for i, s := range d.subs {
		if s.handle == h {
			d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every subscriber.
func (d *Delegate[T]) Clear() { d.subs = nil }

// Len is the number of subscribers.
func (d *Delegate[T]) Len() int { return len(d.subs) }

// Broadcast calls every subscriber with v.
func (d *Delegate[T]) Broadcast(v T) {
	for _, s := range d.subs {
		s.fn(v)
	}
}
