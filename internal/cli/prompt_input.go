package cli

import (
	"fmt"
	"io"
	"strings"
)

// confirm asks a yes/no question on the command's streams. Anything other
// than y or yes, including EOF, counts as no.
func confirm(in io.Reader, out io.Writer, message string) bool {
	if out != nil {
		fmt.Fprint(out, message)
	}

	text, err := newLineReader(in).ReadLine()
	if err != nil && text == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(text)) {
	case "y", "yes":
		return true
	}
	return false
}

// lineReader splits terminal input on LF or CR so Enter works in normal and
// raw modes. A CRLF pair ends one line. It reads one byte at a time so
// nothing past the current line is consumed from a shared reader.
type lineReader struct {
	in     io.Reader
	pendCR bool
}

func newLineReader(in io.Reader) *lineReader {
	return &lineReader{in: in}
}

func (r *lineReader) ReadLine() (string, error) {
	if r.in == nil {
		return "", io.EOF
	}

	var buf []byte
	var one [1]byte

	for {
		n, err := r.in.Read(one[:])
		if n > 0 {
			c := one[0]
			afterCR := r.pendCR
			r.pendCR = false
			switch {
			case c == '\n' && afterCR && len(buf) == 0:
				continue
			case c == '\r':
				r.pendCR = true
				return string(buf), nil
			case c == '\n':
				return string(buf), nil
			default:
				buf = append(buf, c)
			}
		}

		if err != nil {
			if err == io.EOF && len(buf) > 0 {
				return string(buf), nil
			}
			return string(buf), err
		}
	}
}
