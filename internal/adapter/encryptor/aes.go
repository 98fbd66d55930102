package encryptor

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/minio/sio"
	"golang.org/x/crypto/scrypt"
)

// ChunkSize is the plaintext size of every DARE package but the last.
const ChunkSize = 64 << 10

const (
	version     = 2
	saltSize    = 16
	checkSize   = sha256.Size
	keySize     = 32
	defaultLogN = 15
	maxLogN     = 22

	// flagEmpty marks a file with no plaintext; no stream follows the header.
	flagEmpty = 1
)

var magic = []byte("DBWAES")

var (
	ErrWrongPassphrase = errors.New("wrong passphrase or not a dbwarden encrypted file")
	ErrCorrupt         = errors.New("encrypted file is corrupt or truncated")
)

// AES encrypts files as a DARE 2.0 stream of AES-256-GCM packages, so memory
// use stays flat regardless of file size. The key is derived from the
// passphrase with scrypt.
//
// Layout: magic | version | flags | logN | salt | key check | DARE stream.
// The key check is an HMAC of the header, which lets a wrong passphrase be
// told apart from a damaged file.
type AES struct {
	logN uint8
}

func NewAES() *AES {
	return &AES{logN: defaultLogN}
}

type header struct {
	flags byte
	logN  uint8
	salt  []byte
}

func (h header) bytes() []byte {
	var b bytes.Buffer
	b.Write(magic)
	b.WriteByte(version)
	b.WriteByte(h.flags)
	b.WriteByte(h.logN)
	b.Write(h.salt)
	return b.Bytes()
}

func headerSize() int {
	return len(magic) + 3 + saltSize
}

// deriveKeys returns the stream key and the passphrase check for h.
func deriveKeys(passphrase string, h header) ([]byte, []byte, error) {
	keys, err := scrypt.Key([]byte(passphrase), h.salt, 1<<h.logN, 8, 1, 2*keySize)
	if err != nil {
		return nil, nil, fmt.Errorf("derive key: %w", err)
	}

	mac := hmac.New(sha256.New, keys[keySize:])
	mac.Write(h.bytes())
	return keys[:keySize], mac.Sum(nil), nil
}

func streamConfig(key []byte) sio.Config {
	return sio.Config{
		MinVersion:   sio.Version20,
		MaxVersion:   sio.Version20,
		CipherSuites: []byte{sio.AES_256_GCM},
		Key:          key,
	}
}

func (a *AES) Encrypt(sourcePath, destPath, passphrase string) error {
	if passphrase == "" {
		return errors.New("empty passphrase")
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	h := header{logN: a.logN, salt: make([]byte, saltSize)}
	if info.Size() == 0 {
		h.flags |= flagEmpty
	}
	if _, err := rand.Read(h.salt); err != nil {
		return err
	}

	key, check, err := deriveKeys(passphrase, h)
	if err != nil {
		return err
	}

	err = writeFile(destPath, func(w io.Writer) error {
		if _, err := w.Write(h.bytes()); err != nil {
			return err
		}
		if _, err := w.Write(check); err != nil {
			return err
		}
		if h.flags&flagEmpty != 0 {
			return nil
		}
		if _, err := sio.Encrypt(w, bufio.NewReaderSize(src, ChunkSize), streamConfig(key)); err != nil {
			return fmt.Errorf("failed to encrypt: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = os.Remove(destPath)
	}
	return err
}

func (a *AES) Decrypt(sourcePath, destPath, passphrase string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	r := bufio.NewReaderSize(src, ChunkSize)

	raw := make([]byte, headerSize()+checkSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return ErrWrongPassphrase
	}
	if !bytes.Equal(raw[:len(magic)], magic) || raw[len(magic)] != version {
		return ErrWrongPassphrase
	}

	off := len(magic) + 1
	h := header{flags: raw[off], logN: raw[off+1]}
	off += 2
	if h.logN == 0 || h.logN > maxLogN {
		return ErrCorrupt
	}
	h.salt = raw[off : off+saltSize]
	off += saltSize

	key, check, err := deriveKeys(passphrase, h)
	if err != nil {
		return err
	}
	if !hmac.Equal(check, raw[off:off+checkSize]) {
		return ErrWrongPassphrase
	}

	err = writeFile(destPath, func(w io.Writer) error {
		if h.flags&flagEmpty != 0 {
			if _, err := r.Peek(1); !errors.Is(err, io.EOF) {
				return ErrCorrupt
			}
			return nil
		}
		_, err := sio.Decrypt(w, r, streamConfig(key))
		var streamErr sio.Error
		if errors.As(err, &streamErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrCorrupt
		}
		return err
	})
	if err != nil {
		_ = os.Remove(destPath)
	}
	return err
}

func writeFile(path string, fill func(w io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create dest file: %w", err)
	}

	bw := bufio.NewWriterSize(f, ChunkSize)
	if err := fill(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
