package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/boostauth/internal/server/config"
)

var (
	// ErrEmptyPassword is returned when attempting to hash an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")
	// ErrPasswordTooLong is returned by the bcrypt hasher for passwords over 72 bytes.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

const bcryptMaxPasswordBytes = 72

// Argon2Params are the argon2id tuning knobs encoded into every hash.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// Upper bounds accepted when decoding a stored argon2id hash. Memory is in
// KiB.
const (
	maxArgon2Memory  = 1 << 20
	maxArgon2Time    = 16
	maxArgon2SaltLen = 64
	maxArgon2KeyLen  = 128
)

// DefaultArgon2Params follow the OWASP argon2id recommendation.
var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	SaltLen: 16,
	KeyLen:  32,
}

// PasswordHasher hashes and verifies passwords. Hashes are self-describing
// (algorithm, cost and salt live in the encoded string).
type PasswordHasher interface {
	// Hash produces a salted hash with the configured algorithm.
	Hash(ctx context.Context, password string) (string, error)

	// Verify reports whether password matches hash. Malformed or unsupported
	// hashes yield false.
	Verify(ctx context.Context, password, hash string) bool

	// NeedsRehash reports whether hash was produced with another algorithm
	// or weaker parameters than the ones currently configured.
	NeedsRehash(hash string) bool

	// DummyHash returns a valid hash of a random secret, used to keep the
	// unknown-account login path as slow as the real one.
	DummyHash() string
}

// Hasher implements PasswordHasher with bcrypt and argon2id. Verification
// understands both formats regardless of which one is configured for new
// hashes.
type Hasher struct {
	algorithm  string
	bcryptCost int
	argon      Argon2Params
	sem        *semaphore.Weighted
	observe    func(time.Duration)

	dummyOnce sync.Once
	dummy     string
}

// HasherOption customises a Hasher.
type HasherOption func(*Hasher)

// WithArgon2Params overrides DefaultArgon2Params.
func WithArgon2Params(p Argon2Params) HasherOption {
	return func(h *Hasher) { h.argon = p }
}

// WithConcurrency caps how many hash computations run at once.
func WithConcurrency(n int64) HasherOption {
	return func(h *Hasher) {
		if n > 0 {
			h.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithHashObserver registers a callback receiving the duration of every
// hash computation (Hash and Verify).
func WithHashObserver(fn func(time.Duration)) HasherOption {
	return func(h *Hasher) { h.observe = fn }
}

// NewPasswordHasher builds a Hasher for config.HashBcrypt or
// config.HashArgon2id.
func NewPasswordHasher(algorithm string, bcryptCost int, opts ...HasherOption) (*Hasher, error) {
	h := &Hasher{
		algorithm:  algorithm,
		bcryptCost: bcryptCost,
		argon:      DefaultArgon2Params,
		sem:        semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
	for _, opt := range opts {
		opt(h)
	}

	switch algorithm {
	case config.HashBcrypt:
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
		}
	case config.HashArgon2id:
		if h.argon.Time == 0 || h.argon.Memory == 0 || h.argon.Threads == 0 || h.argon.KeyLen == 0 || h.argon.SaltLen == 0 {
			return nil, fmt.Errorf("invalid argon2id parameters")
		}
	default:
		return nil, fmt.Errorf("unsupported password hash %q", algorithm)
	}
	return h, nil
}

// Hash produces a salted hash of password.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)
	defer h.track(time.Now())

	if h.algorithm == config.HashBcrypt {
		if len(password) > bcryptMaxPasswordBytes {
			return "", ErrPasswordTooLong
		}
		b, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(b), nil
	}
	return h.hashArgon2id(password)
}

// Verify checks password against hash in constant time.
func (h *Hasher) Verify(ctx context.Context, password, hash string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)
	defer h.track(time.Now())

	switch {
	case isBcrypt(hash):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	case strings.HasPrefix(hash, "$argon2id$"):
		p, salt, key, err := decodeArgon2id(hash)
		if err != nil {
			return false
		}
		computed := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
		return subtle.ConstantTimeCompare(computed, key) == 1
	default:
		return false
	}
}

// MaxPasswordBytes returns the longest password Hash accepts, or 0 when the
// algorithm has no limit.
func (h *Hasher) MaxPasswordBytes() int {
	if h.algorithm == config.HashBcrypt {
		return bcryptMaxPasswordBytes
	}
	return 0
}

// NeedsRehash reports whether hash is weaker than the configured setup.
func (h *Hasher) NeedsRehash(hash string) bool {
	if h.algorithm == config.HashBcrypt {
		if !isBcrypt(hash) {
			return true
		}
		cost, err := bcrypt.Cost([]byte(hash))
		return err != nil || cost < h.bcryptCost
	}

	p, _, key, err := decodeArgon2id(hash)
	if err != nil {
		return true
	}
	return p.Time < h.argon.Time || p.Memory < h.argon.Memory || p.Threads < h.argon.Threads ||
		uint32(len(key)) < h.argon.KeyLen
}

// DummyHash lazily hashes a random secret with the configured algorithm.
func (h *Hasher) DummyHash() string {
	h.dummyOnce.Do(func() {
		secret := make([]byte, 24)
		_, _ = rand.Read(secret)
		hash, err := h.Hash(context.Background(), base64.RawStdEncoding.EncodeToString(secret))
		if err == nil {
			h.dummy = hash
		}
	})
	return h.dummy
}

func (h *Hasher) track(start time.Time) {
	if h.observe != nil {
		h.observe(time.Since(start))
	}
}

func (h *Hasher) hashArgon2id(password string) (string, error) {
	salt := make([]byte, h.argon.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.argon.Time, h.argon.Memory, h.argon.Threads, h.argon.KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.argon.Memory,
		h.argon.Time,
		h.argon.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

func decodeArgon2id(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, errors.New("invalid argon2id hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, err
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return p, nil, nil, err
	}
	if threads == 0 || threads > 255 || iterations == 0 || memory == 0 {
		return p, nil, nil, errors.New("invalid argon2id parameters")
	}
	if memory > maxArgon2Memory || iterations > maxArgon2Time || memory < 8*threads {
		return p, nil, nil, errors.New("argon2id parameters out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, err
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, err
	}
	if len(salt) == 0 || len(salt) > maxArgon2SaltLen {
		return p, nil, nil, errors.New("invalid argon2id salt length")
	}
	if len(key) == 0 || len(key) > maxArgon2KeyLen {
		return p, nil, nil, errors.New("invalid argon2id key length")
	}

	p = Argon2Params{
		Time:    iterations,
		Memory:  memory,
		Threads: uint8(threads),
		SaltLen: uint32(len(salt)),
		KeyLen:  uint32(len(key)),
	}
	return p, salt, key, nil
}
