// Package workers provides fixed-size fan-out/fan-in helpers for CPU-bound
// work. Pool delivers results as they finish; Sequential releases them in
// submission order.
package workers

import "sync"

// Pool runs fn over inputs on a fixed number of goroutines and returns a
// channel of results in completion order. The channel closes once every
// input has been processed.
func Pool[I, O any](threads int, inputs []I, fn func(I) O) <-chan O {
	if threads < 1 {
		threads = 1
	}
	in := make(chan I)
	out := make(chan O, threads)

	var wg sync.WaitGroup
	for t := 0; t < threads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for input := range in {
				out <- fn(input)
			}
		}()
	}

	go func() {
		for _, input := range inputs {
			in <- input
		}
		close(in)
		wg.Wait()
		close(out)
	}()

	return out
}

type indexed[O any] struct {
	index int
	value O
}

// Sequential runs fn over inputs like Pool but yields results in submission
// order, buffering whatever finishes early.
func Sequential[I, O any](threads int, inputs []I, fn func(I) O) <-chan O {
	tagged := make([]indexed[I], len(inputs))
	for i, input := range inputs {
		tagged[i] = indexed[I]{index: i, value: input}
	}
	unordered := Pool(threads, tagged, func(job indexed[I]) indexed[O] {
		return indexed[O]{index: job.index, value: fn(job.value)}
	})

	out := make(chan O)
	go func() {
		pending := make(map[int]O)
		next := 0
		for result := range unordered {
			pending[result.index] = result.value
			for {
				value, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				out <- value
				next++
			}
		}
		close(out)
	}()
	return out
}

// Batches splits items into contiguous chunks of at most size elements.
func Batches[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var batches [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
