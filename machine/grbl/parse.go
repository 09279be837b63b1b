package grbl

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// HashAlgorithm is the only signature algorithm reported by $File/ShowHash
// that is understood.
const HashAlgorithm = "SHA2-256"

// ProtocolError is returned when the controller answers with something
// that can't be understood or that reports a failure.
type ProtocolError struct {
	Msg string
	Raw string
}

func (e *ProtocolError) Error() string {
	if e.Raw == "" {
		return e.Msg
	}
	return e.Msg + ": " + e.Raw
}

type fileHash struct {
	Signature *struct {
		Algorithm string `json:"algorithm"`
		Value     string `json:"value"`
	} `json:"signature"`
}

// parseJSONFragment returns the payload of a `[JSON:...]` line.
func parseJSONFragment(line string) (string, bool) {
	if !strings.HasPrefix(line, "[JSON:") || !strings.HasSuffix(line, "]") {
		return "", false
	}
	return line[len("[JSON:") : len(line)-1], true
}

// parseFileHash decodes the concatenated JSON fragments of a $File/ShowHash
// response. An empty hash means the file does not exist.
func parseFileHash(data string) (string, error) {
	var fh fileHash
	err := json.Unmarshal([]byte(data), &fh)
	if err != nil {
		return "", &ProtocolError{Msg: "malformed hash response", Raw: data}
	}
	if fh.Signature == nil {
		return "", &ProtocolError{Msg: "hash response missing signature", Raw: data}
	}
	if fh.Signature.Algorithm != HashAlgorithm {
		return "", &ProtocolError{Msg: "unsupported hash algorithm", Raw: fh.Signature.Algorithm}
	}

	return strings.ToLower(fh.Signature.Value), nil
}

var rxReceived = regexp.MustCompile(`^\[MSG:INFO: Received (\d+) bytes to file ([^\]]+)\]$`)

// ParseReceived parses the acknowledgment printed after an XModem upload.
//
// It is the only place that depends on the firmware's wording.
func ParseReceived(line string) (n int64, path string, err error) {
	m := rxReceived.FindStringSubmatch(line)
	if m == nil {
		return 0, "", &ProtocolError{Msg: "unexpected transfer acknowledgment", Raw: line}
	}
	n, err = strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, "", &ProtocolError{Msg: "invalid byte count in acknowledgment", Raw: line}
	}
	return n, m[2], nil
}
