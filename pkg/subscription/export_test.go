package subscription

func MemoryLockerKeys(l *MemoryLocker) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
