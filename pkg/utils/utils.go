package utils

func NonBlockingEnqueue[T any](ch chan<- T, item T) {
	select {
	case ch <- item:
	default:
		go func() {
			ch <- item
		}()
	}
}

// Percent returns done/total as a percentage, or 0 when total is unknown.
func Percent(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}
