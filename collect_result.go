package hostbench

import "sync"

// Collector is an unbounded multi producer, single consumer queue. Producers
// never wait for the consumer, which only drains once every producer is done.
type Collector[T any] struct {
	in   chan T
	done chan struct{}
	once sync.Once

	items []T
}

func NewCollector[T any]() *Collector[T] {
	c := &Collector[T]{
		in:   make(chan T),
		done: make(chan struct{}),
	}

	// accumulate until the input is closed
	go func() {
		defer close(c.done)

		for v := range c.in {
			c.items = append(c.items, v)
		}
	}()

	return c
}

// Send is safe for concurrent use. It must not be called after Drain.
func (c *Collector[T]) Send(v T) {
	c.in <- v
}

// Drain closes the collector and returns every value sent, in arrival order.
func (c *Collector[T]) Drain() []T {
	c.once.Do(func() {
		close(c.in)
	})

	<-c.done

	return c.items
}
