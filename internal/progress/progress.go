package progress

// Percent reports exam progress as clamp(correct/attempted, 0, 1) * 100.
// Zero attempts is 0%, not a division error.
func Percent(correctAnswered, totalAttempted int64) int {
	if totalAttempted <= 0 || correctAnswered <= 0 {
		return 0
	}
	if correctAnswered >= totalAttempted {
		return 100
	}
	return int(correctAnswered * 100 / totalAttempted)
}
