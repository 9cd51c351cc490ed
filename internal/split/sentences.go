package split

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineSize bounds a single sentence line.
const maxLineSize = 1 << 20

// ReadSentences reads one sentence per line. Lines are trimmed and blank
// lines skipped.
func ReadSentences(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var out []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sentences: %w", err)
	}
	return out, nil
}

// WriteSentences writes one sentence per line.
func WriteSentences(w io.Writer, sentences []string) error {
	bw := bufio.NewWriter(w)
	for _, s := range sentences {
		if _, err := bw.WriteString(s); err != nil {
			return fmt.Errorf("write sentences: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write sentences: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write sentences: %w", err)
	}
	return nil
}
