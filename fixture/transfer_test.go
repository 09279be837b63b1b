package fixture

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/grbltest/machine/grbl"
	"github.com/mastercactapus/grbltest/machine/grbl/sim"
)

const jobData = "G21\nG90\nG0 X10 Y10\nG1 Z-1 F100\nM2\n"

func newSimSession(t *testing.T) (*grbl.Session, *sim.Device) {
	t.Helper()
	dev := sim.New()
	s := grbl.NewSession(dev)
	s.Timeout = 500 * time.Millisecond
	t.Cleanup(func() { s.Close() })
	return s, dev
}

func writeFixture(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "myfile.gc"), []byte(jobData), 0644))
	path := filepath.Join(dir, "test.nc")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func loadTransfer(t *testing.T, remote string) Op {
	t.Helper()
	f, err := Load(writeFixture(t, "=> myfile.gc "+remote+"\n"))
	require.NoError(t, err)
	return f.Ops[0]
}

func hasPrefix(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func TestFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))
	h, err := FileHash(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
}

func TestTransfer_UpToDate(t *testing.T) {
	s, dev := newSimSession(t)
	dev.Files["/littlefs/myfile.gc"] = []byte(jobData)
	op := loadTransfer(t, "/littlefs/myfile.gc")

	require.NoError(t, op.Execute(s, Options{}))
	assert.Equal(t, []string{"$File/ShowHash=/myfile.gc"}, dev.Received())
}

func TestTransfer_Missing(t *testing.T) {
	s, dev := newSimSession(t)
	op := loadTransfer(t, "/littlefs/myfile.gc")

	require.NoError(t, op.Execute(s, Options{ReadyTimeout: time.Second}))
	assert.Equal(t, []string{
		"$File/ShowHash=/myfile.gc",
		"$XModem/Receive=/littlefs/myfile.gc",
	}, dev.Received())
	assert.Equal(t, jobData, string(dev.Files["/littlefs/myfile.gc"]))

	// the command's own ok is left for the fixture
	line, err := s.CurrentLine()
	require.NoError(t, err)
	assert.Equal(t, "ok", line)
}

func TestTransfer_Changed(t *testing.T) {
	s, dev := newSimSession(t)
	dev.MountPrefix = "/sd"
	dev.Files["/sd/myfile.gc"] = []byte("old")
	op := loadTransfer(t, "/sd/myfile.gc")

	require.NoError(t, op.Execute(s, Options{MountPrefix: "/sd"}))
	assert.Equal(t, "$File/ShowHash=/myfile.gc", dev.Received()[0])
	assert.Equal(t, jobData, string(dev.Files["/sd/myfile.gc"]))
}

func TestTransfer_UnsupportedAlgorithm(t *testing.T) {
	s, dev := newSimSession(t)
	dev.Algorithm = "MD5"
	op := loadTransfer(t, "/littlefs/myfile.gc")

	err := op.Execute(s, Options{})
	var perr *grbl.ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "MD5", perr.Raw)
	assert.False(t, hasPrefix(dev.Received(), "$XModem"))
}

func TestTransfer_NotReady(t *testing.T) {
	s, dev := newSimSession(t)
	dev.NoReady = true
	op := loadTransfer(t, "/littlefs/myfile.gc")

	err := op.Execute(s, Options{ReadyTimeout: 50 * time.Millisecond})
	assert.True(t, errors.Is(err, grbl.ErrTimeout))
}

func TestTransfer_WrongFile(t *testing.T) {
	s, dev := newSimSession(t)
	dev.AckPath = "/littlefs/other.gc"
	op := loadTransfer(t, "/littlefs/myfile.gc")

	err := op.Execute(s, Options{ReadyTimeout: time.Second})
	var perr *grbl.ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Raw, "to file /littlefs/other.gc]")
}
