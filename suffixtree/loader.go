package suffixtree

import (
	"SuffixDB/errs"
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

const maxLineBytes = 64 << 20

// LoadSequences reads a plain-text sequence file.
func LoadSequences(path string) ([]Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO(err, "failed to open sequence file %s", path)
	}
	defer f.Close()
	return ParseSequences(f)
}

// ParseSequences reads one sequence per non-empty line. A line is either the
// bare symbols, numbered in order of appearance, or "id<TAB>symbols". Lines
// starting with '>' or '#' are skipped.
func ParseSequences(r io.Reader) ([]Sequence, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var out []Sequence
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '>' || text[0] == '#' {
			continue
		}

		id := uint32(len(out))
		if tab := strings.IndexByte(text, '\t'); tab >= 0 {
			v, err := strconv.ParseUint(strings.TrimSpace(text[:tab]), 10, 32)
			if err != nil {
				return nil, errs.Mark(errs.ErrInvalidSymbol, "line %d: bad sequence id %q", line, text[:tab])
			}
			id = uint32(v)
			text = strings.TrimSpace(text[tab+1:])
		}
		out = append(out, Sequence{ID: id, Symbols: []byte(text)})
	}
	if err := sc.Err(); err != nil {
		return nil, errs.IO(err, "failed to read sequences at line %d", line)
	}
	return out, nil
}
