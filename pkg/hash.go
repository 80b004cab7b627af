package duplicates

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// ContentHasher produces the content identity key of a file. Two files are
// duplicates iff their digests are equal.
type ContentHasher interface {
	HashFile(path string) (string, error)
	Name() string
}

// HashAlgorithm represents a hash algorithm configuration
type HashAlgorithm struct {
	Name    string
	Size    int // Digest length in bytes
	NewFunc func() hash.Hash
}

// GetHashAlgorithm returns the hash algorithm configuration for the given name
func GetHashAlgorithm(name string) (*HashAlgorithm, error) {
	switch strings.ToLower(name) {
	case "sha1":
		return &HashAlgorithm{
			Name:    "sha1",
			Size:    HashSizeSHA1,
			NewFunc: func() hash.Hash { return sha1.New() },
		}, nil
	case "sha256":
		return &HashAlgorithm{
			Name:    "sha256",
			Size:    HashSizeSHA256,
			NewFunc: func() hash.Hash { return sha256.New() },
		}, nil
	case "sha512":
		return &HashAlgorithm{
			Name:    "sha512",
			Size:    HashSizeSHA512,
			NewFunc: func() hash.Hash { return sha512.New() },
		}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", name)
	}
}

// IsDigest reports whether s is a hex digest this algorithm could produce
func (a *HashAlgorithm) IsDigest(s string) bool {
	if len(s) != a.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// HashFile calculates the hash of a file using the specified algorithm.
// The whole file is read; there is no sampling.
func HashFile(filePath string, algorithm *HashAlgorithm) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	hasher := algorithm.NewFunc()
	if _, err := io.Copy(hasher, file); err != nil {
		return nil, fmt.Errorf("failed to hash file %s: %w", filePath, err)
	}

	return hasher.Sum(nil), nil
}

// HashFileToHexString calculates the hash of a file and returns it as a hex string
func HashFileToHexString(filePath string, algorithm *HashAlgorithm) (string, error) {
	hashBytes, err := HashFile(filePath, algorithm)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hashBytes), nil
}

// algorithmHasher adapts a HashAlgorithm to ContentHasher
type algorithmHasher struct {
	algorithm *HashAlgorithm
}

// NewContentHasher returns a ContentHasher for the named algorithm.
// An empty name selects DefaultHashAlgorithm.
func NewContentHasher(name string) (ContentHasher, error) {
	if name == "" {
		name = DefaultHashAlgorithm
	}
	algorithm, err := GetHashAlgorithm(name)
	if err != nil {
		return nil, err
	}
	return &algorithmHasher{algorithm: algorithm}, nil
}

func (h *algorithmHasher) HashFile(path string) (string, error) {
	return HashFileToHexString(path, h.algorithm)
}

func (h *algorithmHasher) Name() string {
	return h.algorithm.Name
}
