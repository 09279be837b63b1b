package grbl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileHash(t *testing.T) {
	check := func(data, exp string) {
		t.Helper()
		h, err := parseFileHash(data)
		require.NoError(t, err)
		assert.Equal(t, exp, h)
	}
	check(`{"signature":{"algorithm":"SHA2-256","value":"ABCDEF"},"path":"/x"}`, "abcdef")
	check(`{"signature":{"algorithm":"SHA2-256","value":""}}`, "")

	checkErr := func(data, raw string) {
		t.Helper()
		_, err := parseFileHash(data)
		require.Error(t, err)
		perr, ok := err.(*ProtocolError)
		require.True(t, ok, "expected ProtocolError, got %T", err)
		assert.Equal(t, raw, perr.Raw)
	}
	checkErr(`{"signature":{"algorithm":"MD5","value":"abc"}}`, "MD5")
	checkErr(`{"signature":`, `{"signature":`)
	checkErr(`{"path":"/x"}`, `{"path":"/x"}`)
}

func TestParseJSONFragment(t *testing.T) {
	frag, ok := parseJSONFragment(`[JSON:{"a":1}]`)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, frag)

	_, ok = parseJSONFragment(`[MSG:INFO: hi]`)
	assert.False(t, ok)
}

func TestParseReceived(t *testing.T) {
	n, path, err := ParseReceived("[MSG:INFO: Received 1234 bytes to file /littlefs/config.yaml]")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), n)
	assert.Equal(t, "/littlefs/config.yaml", path)

	for _, line := range []string{
		"ok",
		"[MSG:INFO: Reception failed or was canceled]",
		"[MSG:INFO: Received lots bytes to file /x]",
		"[MSG:INFO: Received 12 bytes to file ]",
	} {
		_, _, err = ParseReceived(line)
		assert.Error(t, err, line)
		assert.IsType(t, &ProtocolError{}, err, line)
	}
}
