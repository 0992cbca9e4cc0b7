// Package checksum computes streaming MD5 and SHA-256 digests of byte
// streams in fixed-size blocks, so memory use stays bounded regardless of
// file size.
//
// Every function rewinds the stream to its start after hashing, which lets
// callers hash an upload and then store the same stream without reopening
// it:
//
//	digests, err := checksum.Sum(f)
//	if err != nil {
//	    return err
//	}
//	// f reads from the beginning again
//
// SHA-256 is the integrity digest; MD5 exists only because object stores
// expose MD5-based ETags that clients compare against.
package checksum
