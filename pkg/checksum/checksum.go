package checksum

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// blockSize bounds memory use while hashing arbitrarily large files.
const blockSize = 64 * 1024

// Digests holds the content digests of a single byte stream.
type Digests struct {
	MD5    string
	SHA256 string
}

// SHA256 returns the hex-encoded SHA-256 digest of r.
// The read position is restored to the start so the stream can be reused.
func SHA256(r io.ReadSeeker) (string, error) {
	return sum(r, sha256.New())
}

// MD5 returns the hex-encoded MD5 digest of r.
// MD5 is kept for ETag compatibility with object stores, not for integrity.
// The read position is restored to the start so the stream can be reused.
func MD5(r io.ReadSeeker) (string, error) {
	return sum(r, md5.New())
}

// Sum computes both digests in a single pass over r and rewinds it.
func Sum(r io.ReadSeeker) (Digests, error) {
	digests, err := SumReader(r)
	if err != nil {
		return Digests{}, err
	}
	if err := rewind(r); err != nil {
		return Digests{}, err
	}
	return digests, nil
}

// SumReader computes both digests in a single pass over a plain reader.
// The stream is consumed; use Sum when the caller needs it back.
func SumReader(r io.Reader) (Digests, error) {
	md5Hasher := md5.New()
	shaHasher := sha256.New()

	if err := copyBlocks(io.MultiWriter(md5Hasher, shaHasher), r); err != nil {
		return Digests{}, err
	}

	return Digests{
		MD5:    hex.EncodeToString(md5Hasher.Sum(nil)),
		SHA256: hex.EncodeToString(shaHasher.Sum(nil)),
	}, nil
}

func sum(r io.ReadSeeker, h hash.Hash) (string, error) {
	if err := copyBlocks(h, r); err != nil {
		return "", err
	}
	if err := rewind(r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyBlocks(dst io.Writer, src io.Reader) error {
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(dst, src, buf); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToHash, err)
	}
	return nil
}

func rewind(r io.Seeker) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToRewind, err)
	}
	return nil
}
