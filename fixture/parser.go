package fixture

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// File is a loaded fixture.
type File struct {
	Path string
	Ops  []Op
}

// Load reads and parses the fixture at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ops, err := Parse(f, path)
	if err != nil {
		return nil, err
	}
	return &File{Path: path, Ops: ops}, nil
}

// Parse reads fixture lines from r. The path is used for error reporting
// and to resolve local files referenced by transfer ops.
func Parse(r io.Reader, path string) ([]Op, error) {
	br := bufio.NewReader(r)

	var ops []Op
	var lineNo int
	for {
		s, err := br.ReadString('\n')
		if err == io.EOF && s != "" {
			err = nil
		}
		if err == io.EOF {
			return ops, nil
		}
		if err != nil {
			return nil, err
		}
		lineNo++

		s = strings.TrimRight(s, "\r\n")
		if strings.TrimSpace(s) == "" || strings.HasPrefix(s, "#") {
			continue
		}

		name, data := splitOp(s)
		kind, ok := operators[name]
		if !ok {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: "invalid op '" + name + "': " + s}
		}

		if n := len(ops); n > 0 && kind.multiLine() && ops[n-1].Kind == kind {
			ops[n-1].Data = append(ops[n-1].Data, data)
			continue
		}

		op, err := newOp(kind, data, path, lineNo)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
}

func splitOp(s string) (name, data string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

func newOp(kind Kind, data, path string, lineNo int) (Op, error) {
	op := Op{Kind: kind, Path: path, Line: lineNo}
	perr := func(msg string) error {
		return &ParseError{Path: path, Line: lineNo, Msg: msg}
	}

	switch kind {
	case KindUntil:
		if strings.HasPrefix(data, "* ") {
			op.Glob = true
			op.Data = []string{data[2:]}
			err := op.compile()
			if err != nil {
				return op, perr(err.Error())
			}
			return op, nil
		}
	case KindTransfer:
		parts := strings.Fields(data)
		if len(parts) != 2 {
			return op, perr("expected '=> <local> <remote>': " + data)
		}
		op.Local = filepath.Clean(parts[0])
		if !filepath.IsAbs(op.Local) {
			op.Local = filepath.Join(filepath.Dir(path), parts[0])
		}
		op.Remote = parts[1]
		st, err := os.Stat(op.Local)
		if err != nil {
			return op, perr("local file '" + op.Local + "' does not exist")
		}
		if st.IsDir() {
			return op, perr("local file '" + op.Local + "' is a directory")
		}
	}

	op.Data = []string{data}
	return op, nil
}
