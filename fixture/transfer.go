package fixture

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mastercactapus/grbltest/machine"
	"github.com/mastercactapus/grbltest/machine/grbl"
)

// FileHash returns the lowercase hex SHA-256 of the file at path.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return readHash(f)
}

func readHash(r io.Reader) (string, error) {
	h := sha256.New()
	_, err := io.Copy(h, r)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

func (op *Op) transfer(c machine.Controller, opt Options, log zerolog.Logger) error {
	f, err := os.Open(op.Local)
	if err != nil {
		return err
	}
	defer f.Close()

	local, err := readHash(f)
	if err != nil {
		return err
	}

	prefix := opt.MountPrefix
	if prefix == "" {
		prefix = DefaultMountPrefix
	}
	remote, err := grbl.FileHash(c, strings.TrimPrefix(op.Remote, prefix))
	if err != nil {
		return err
	}

	log = log.With().Str("local", op.Local).Str("remote", op.Remote).Logger()
	switch remote {
	case local:
		log.Info().Str("hash", shortHash(local)).Msg("up-to-date")
		return nil
	case "":
		log.Info().Msg("file does not exist")
	default:
		log.Info().Str("localHash", shortHash(local)).Str("remoteHash", shortHash(remote)).Msg("file changed")
	}

	_, err = f.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}
	n, err := grbl.SendFile(c, op.Remote, f, opt.ReadyTimeout)
	if err != nil {
		return err
	}
	log.Info().Int64("bytes", n).Msg("transferred")
	return nil
}
