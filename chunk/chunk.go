package chunk

import (
	"strings"
)

// Split divides text into windows of windowSize words, each overlapping its
// predecessor by overlap words. Whitespace-only text yields no windows.
func Split(text string, windowSize, overlap int) ([]string, error) {
	if windowSize < 1 {
		return nil, ErrInvalidWindow
	}
	if overlap < 0 || overlap >= windowSize {
		return nil, ErrInvalidOverlap
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}, nil
	}

	step := windowSize - overlap
	windows := make([]string, 0, len(words)/step+1)
	for start := 0; ; start += step {
		end := min(start+windowSize, len(words))
		windows = append(windows, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return windows, nil
}
