package app

import (
	"bufio"
	"fmt"
	"io"

	"github.com/AndrewSilver/buswriter/internal/domain"
)

// MessageSource yields the messages for one workload run.
type MessageSource interface {
	Messages() ([]domain.Message, error)
}

// GeneratedSource produces n messages of the form "00 ", "01 ", ...
type GeneratedSource struct {
	Count int
}

// Messages returns the generated messages.
func (s GeneratedSource) Messages() ([]domain.Message, error) {
	out := make([]domain.Message, s.Count)
	for i := range out {
		out[i] = domain.Message(fmt.Sprintf("%02d ", i))
	}
	return out, nil
}

// LineSource reads newline-delimited messages. Line terminators are dropped
// and empty lines are kept as empty messages.
type LineSource struct {
	Reader io.Reader
}

// Messages reads the reader to EOF.
func (s LineSource) Messages() ([]domain.Message, error) {
	var out []domain.Message
	sc := bufio.NewScanner(s.Reader)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := make([]byte, len(sc.Bytes()))
		copy(line, sc.Bytes())
		out = append(out, domain.Message(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	return out, nil
}
