package grbl

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHash(t *testing.T) {
	s, dev := newTestSession(t)
	data := []byte("G0 X0 Y0\n")
	dev.Files["/littlefs/a.gc"] = data
	sum := sha256.Sum256(data)

	h, err := FileHash(s, "/a.gc")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), h)

	h, err = FileHash(s, "/missing.gc")
	require.NoError(t, err)
	assert.Equal(t, "", h)

	assert.Equal(t, []string{"$File/ShowHash=/a.gc", "$File/ShowHash=/missing.gc"}, dev.Received())
}

func TestFileHash_Errors(t *testing.T) {
	s, dev := newTestSession(t)
	dev.Replies["$File/ShowHash=/busy"] = []string{"error:8"}
	dev.Replies["$File/ShowHash=/odd"] = []string{"[MSG:INFO: what]"}

	var perr *ProtocolError
	_, err := FileHash(s, "/busy")
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "error:8", perr.Raw)

	_, err = FileHash(s, "/odd")
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "[MSG:INFO: what]", perr.Raw)

	dev.Algorithm = "MD5"
	_, err = FileHash(s, "/other")
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "MD5", perr.Raw)
}

func TestSendFile(t *testing.T) {
	s, dev := newTestSession(t)
	data := bytes.Repeat([]byte("G1 X10 F100\n"), 20)

	n, err := SendFile(s, "/littlefs/job.gc", bytes.NewReader(data), time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, data, dev.Files["/littlefs/job.gc"])

	line, err := s.CurrentLine()
	require.NoError(t, err)
	assert.Equal(t, "ok", line)
}

func TestSendFile_NotReady(t *testing.T) {
	s, dev := newTestSession(t)
	dev.NoReady = true

	_, err := SendFile(s, "/littlefs/job.gc", bytes.NewReader([]byte("x")), 50*time.Millisecond)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestSendFile_WrongFile(t *testing.T) {
	s, dev := newTestSession(t)
	dev.AckPath = "/littlefs/other.gc"

	n, err := SendFile(s, "/littlefs/job.gc", bytes.NewReader([]byte("G0 X1\n")), time.Second)
	var perr *ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "[MSG:INFO: Received 6 bytes to file /littlefs/other.gc]", perr.Raw)
	assert.Equal(t, int64(6), n)
}
