package app

// SplitText cuts text into overlapping windows of size runes, each window
// starting size-overlap runes after the previous one. The final window is
// the only one allowed to be short. For text of N runes (N > overlap) this
// yields ceil((N-overlap)/(size-overlap)) windows, and stitching window i>0
// minus its first overlap runes onto window 0 reproduces the input.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := size - overlap
	var chunks []string
	for start := 0; ; start += step {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
