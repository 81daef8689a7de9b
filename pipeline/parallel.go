package pipeline

import "sync"

// ForEach runs fn over items on a fixed-size worker pool. Order of
// processing is not guaranteed; fn must do its own synchronization for
// shared state.
func ForEach[T any](workers int, items []T, fn func(T)) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}
	if workers <= 1 {
		for _, it := range items {
			fn(it)
		}
		return
	}

	ch := make(chan T)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range ch {
				fn(it)
			}
		}()
	}
	for _, it := range items {
		ch <- it
	}
	close(ch)
	wg.Wait()
}
