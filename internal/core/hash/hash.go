// Package hash implements the H component: SHA-256 digests over
// stable-JSON encodings for key derivation (HashBytes/HashValue, always
// SHA-256), plus a pluggable Hasher (sha256/blake3) used by the
// supplemental DeepVerify content check.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

const bufSize = 1 << 20 // 1 MiB

type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

type Hasher struct {
	alg Algorithm
}

var blake3New = func() hash.Hash { return blake3.New() }

// New returns a Hasher using the requested algorithm
// If alg is unknown, it falls back to SHA-256
func New(alg Algorithm) Hasher {
	switch alg {
	case SHA256, BLAKE3:
		return Hasher{alg: alg}
	default:
		return Hasher{alg: SHA256}
	}
}

func (h Hasher) newHash() hash.Hash {
	switch h.alg {
	case BLAKE3:
		return blake3New()
	default:
		return sha256.New()
	}
}

// NewHash returns a fresh, unkeyed hash.Hash for h's algorithm so a
// caller can stream arbitrary content (e.g. a whole directory tree) into
// it incrementally instead of going through File/Reader.
func (h Hasher) NewHash() hash.Hash {
	return h.newHash()
}

// File computes the content hash of a file at path.
func (h Hasher) File(path string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", fmt.Errorf("hash: lstat %q: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("hash: %q is a directory", path)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return "", fmt.Errorf("hash: %q is a symlink", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash: open %q: %w", path, err)
	}
	defer f.Close()

	return h.Reader(f)
}

// Reader hashes arbitrary content from r.
func (h Hasher) Reader(r io.Reader) (string, error) {
	d := h.newHash()
	buf := make([]byte, bufSize)
	if _, err := io.CopyBuffer(d, r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return "", fmt.Errorf("hash: copy reader: unexpected EOF: %w", err)
		}
		return "", fmt.Errorf("hash: copy reader: %w", err)
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}

// ---- Key-derivation primitives — always SHA-256 ----

// HashBytes returns the lowercase hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashFileRaw reads path's raw bytes and SHA-256 digests them, with no
// normalization — an exact byte-for-byte lockfile change changes the
// result.
func HashFileRaw(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash: open %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: read %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DeepVerifyAlg is the algorithm used by the supplemental DeepVerify
// content check — BLAKE3, for speed over a whole node_modules tree.
const DeepVerifyAlg = BLAKE3
