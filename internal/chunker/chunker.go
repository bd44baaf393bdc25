package chunker

import (
	"strings"
	"unicode/utf8"
)

// Window and Overlap are a compatibility contract: changing either alters
// retrieval granularity for all future ingestions without reprocessing
// previously stored data, so any change must be versioned.
const (
	Window  = 512
	Overlap = 10
)

// separators are tried in order, from the most natural boundary down to
// raw rune slicing (the empty string).
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter cuts raw page text into windows of at most Window runes with
// Overlap runes carried between consecutive windows. It prefers splitting
// on natural boundaries (paragraph, line, sentence, word) and falls back
// to raw slicing when no boundary exists within the window.
type Splitter struct {
	window  int
	overlap int
}

// New returns a splitter using the fixed Window/Overlap contract.
func New() *Splitter {
	return &Splitter{window: Window, overlap: Overlap}
}

// Split breaks rawText into bounded chunks. Empty or whitespace-only input
// yields no chunks.
func (s *Splitter) Split(rawText string) []string {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return nil
	}
	return s.split(text, separators)
}

func (s *Splitter) split(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= s.window {
		return []string{text}
	}

	for i, sep := range seps {
		if sep == "" {
			return s.sliceWindows(text)
		}
		if !strings.Contains(text, sep) {
			continue
		}
		return s.merge(strings.Split(text, sep), sep, seps[i+1:])
	}
	return s.sliceWindows(text)
}

// merge greedily packs pieces back into windows, seeding each new window
// with the overlap tail of the previous one. A single piece larger than
// the window recurses into the finer separators.
func (s *Splitter) merge(pieces []string, sep string, next []string) []string {
	var chunks []string
	var current strings.Builder
	sepLen := utf8.RuneCountInString(sep)
	currentLen := 0

	flush := func() string {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		currentLen = 0
		return chunk
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)

		if pieceLen > s.window {
			flush()
			chunks = append(chunks, s.split(piece, next)...)
			continue
		}

		if currentLen > 0 && currentLen+sepLen+pieceLen > s.window {
			closed := flush()
			// the overlap tail is dropped when it would push the next
			// window past the bound; the bound wins over the overlap
			tail := lastRunes(closed, s.overlap)
			if tailLen := utf8.RuneCountInString(tail); tail != "" && tailLen+sepLen+pieceLen <= s.window {
				current.WriteString(tail)
				currentLen = tailLen
			}
		}

		if currentLen > 0 {
			current.WriteString(sep)
			currentLen += sepLen
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}

	flush()
	return chunks
}

// sliceWindows is the raw fallback: fixed windows advancing by
// window-overlap runes.
func (s *Splitter) sliceWindows(text string) []string {
	runes := []rune(text)
	step := s.window - s.overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.window
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end >= len(runes) {
			break
		}
	}
	return chunks
}

// lastRunes returns the final n runes of text, or all of it when shorter.
func lastRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
