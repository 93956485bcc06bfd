package cache

// Len reports the number of stored entries, expired ones included until
// the janitor runs.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
