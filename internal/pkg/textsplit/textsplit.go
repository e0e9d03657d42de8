package textsplit

const (
	DefaultSize    = 500
	DefaultOverlap = 50
)

// Splitter cuts text into fixed-size rune windows that overlap by a fixed
// number of runes.
type Splitter struct {
	Size    int
	Overlap int
}

func New(size, overlap int) Splitter {
	return Splitter{Size: size, Overlap: overlap}
}

// Split returns the windows in order. Every window is at most Size runes and
// shares exactly Overlap runes with the next one. The last window ends at the
// end of the text, so no window is fully contained in its predecessor.
func (s Splitter) Split(text string) []string {
	size := s.Size
	if size <= 0 {
		size = DefaultSize
	}
	overlap := s.Overlap
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
	chunks := make([]string, 0, len(runes)/step+1)
	for i := 0; i < len(runes); i += step {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
