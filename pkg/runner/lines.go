package runner

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

type inputResult struct {
	text string
	err  error
}

// lineReader reads lines on a background goroutine so Receive can honour ctx.
// The goroutine starts on first use and ends at EOF or the first read error.
type lineReader struct {
	reader    *bufio.Reader
	lines     chan inputResult
	startOnce sync.Once
	closeOnce sync.Once
	closed    chan struct{}
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{
		reader: bufio.NewReader(r),
		lines:  make(chan inputResult),
		closed: make(chan struct{}),
	}
}

func (l *lineReader) pump() {
	defer close(l.lines)
	for {
		text, err := l.reader.ReadString('\n')
		if text != "" {
			select {
			case l.lines <- inputResult{text: text}:
			case <-l.closed:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				select {
				case l.lines <- inputResult{err: err}:
				case <-l.closed:
				}
			}
			return
		}
	}
}

// next returns the next non-blank line without its line ending.
func (l *lineReader) next(ctx context.Context) (string, error) {
	l.startOnce.Do(func() { go l.pump() })
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-l.closed:
			return "", io.ErrClosedPipe
		case res, ok := <-l.lines:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			if text := strings.TrimSpace(res.text); text != "" {
				return text, nil
			}
		}
	}
}

func (l *lineReader) close() {
	l.closeOnce.Do(func() { close(l.closed) })
}
