package auth

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/boostauth/internal/server/config"
)

// fastArgon keeps argon2id tests quick; production uses DefaultArgon2Params.
var fastArgon = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

func newBcrypt(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewPasswordHasher(config.HashBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func newArgon(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewPasswordHasher(config.HashArgon2id, 0, WithArgon2Params(fastArgon))
	require.NoError(t, err)
	return h
}

func TestNewPasswordHasher_Validation(t *testing.T) {
	_, err := NewPasswordHasher("md5", 10)
	require.Error(t, err)

	_, err = NewPasswordHasher(config.HashBcrypt, 3)
	require.Error(t, err)

	_, err = NewPasswordHasher(config.HashArgon2id, 0, WithArgon2Params(Argon2Params{}))
	require.Error(t, err)
}

func TestHasher_RoundTrip(t *testing.T) {
	ctx := context.Background()
	hashers := map[string]*Hasher{
		"bcrypt":   newBcrypt(t),
		"argon2id": newArgon(t),
	}

	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			hash, err := h.Hash(ctx, "pw12345678")
			require.NoError(t, err)

			assert.True(t, h.Verify(ctx, "pw12345678", hash))
			assert.False(t, h.Verify(ctx, "pw12345679", hash))
			assert.False(t, h.Verify(ctx, "", hash))
		})

		t.Run(name+" salts every hash", func(t *testing.T) {
			h1, err := h.Hash(ctx, "samepassword")
			require.NoError(t, err)
			h2, err := h.Hash(ctx, "samepassword")
			require.NoError(t, err)

			assert.NotEqual(t, h1, h2)
			assert.True(t, h.Verify(ctx, "samepassword", h1))
			assert.True(t, h.Verify(ctx, "samepassword", h2))
		})

		t.Run(name+" rejects empty password", func(t *testing.T) {
			_, err := h.Hash(ctx, "")
			assert.ErrorIs(t, err, ErrEmptyPassword)
		})
	}
}

func TestHasher_SelfDescribingFormats(t *testing.T) {
	ctx := context.Background()

	b, err := newBcrypt(t).Hash(ctx, "password1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(b, "$2a$"))

	a, err := newArgon(t).Hash(ctx, "password1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(a, "$argon2id$v=19$m=8192,t=1,p=1$"))

	// Either hasher verifies the other's output.
	assert.True(t, newBcrypt(t).Verify(ctx, "password1", a))
	assert.True(t, newArgon(t).Verify(ctx, "password1", b))
}

func TestHasher_MalformedHashesNeverVerify(t *testing.T) {
	h := newArgon(t)
	ctx := context.Background()

	malformed := []string{
		"",
		"not-a-valid-hash",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$invalid$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!",
		"$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=0,p=4$c2FsdA$aGFzaA",
		"$2a$10$short",
		"$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=2097152,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=4294967295,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=17,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$" + strings.Repeat("c2Fs", 30) + "$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0$" + strings.Repeat("a2V5", 60),
	}
	for _, hash := range malformed {
		assert.NotPanics(t, func() {
			assert.False(t, h.Verify(ctx, "password", hash), hash)
		})
	}
}

func TestDecodeArgon2id_Bounds(t *testing.T) {
	hash, err := newArgon(t).Hash(context.Background(), "password1")
	require.NoError(t, err)

	p, salt, key, err := decodeArgon2id(hash)
	require.NoError(t, err)
	assert.Equal(t, fastArgon.Memory, p.Memory)
	assert.Len(t, salt, int(fastArgon.SaltLen))
	assert.Len(t, key, int(fastArgon.KeyLen))

	huge := strings.Replace(hash, "m=8192", "m=4294967295", 1)
	_, _, _, err = decodeArgon2id(huge)
	assert.Error(t, err)

	h := newArgon(t)
	assert.True(t, h.NeedsRehash(huge))
}

func TestHasher_NeedsRehash(t *testing.T) {
	ctx := context.Background()

	weakBcrypt := newBcrypt(t)
	oldHash, err := weakBcrypt.Hash(ctx, "password")
	require.NoError(t, err)

	strongBcrypt, err := NewPasswordHasher(config.HashBcrypt, bcrypt.MinCost+1)
	require.NoError(t, err)
	assert.True(t, strongBcrypt.NeedsRehash(oldHash), "lower cost must be upgraded")
	assert.False(t, weakBcrypt.NeedsRehash(oldHash))

	argon := newArgon(t)
	assert.True(t, argon.NeedsRehash(oldHash), "bcrypt hash under argon2id config")

	argonHash, err := argon.Hash(ctx, "password")
	require.NoError(t, err)
	assert.False(t, argon.NeedsRehash(argonHash))
	assert.True(t, weakBcrypt.NeedsRehash(argonHash))

	stronger, err := NewPasswordHasher(config.HashArgon2id, 0,
		WithArgon2Params(Argon2Params{Time: 2, Memory: fastArgon.Memory, Threads: 1, SaltLen: 16, KeyLen: 32}))
	require.NoError(t, err)
	assert.True(t, stronger.NeedsRehash(argonHash))
}

func TestHasher_DummyHashIsStableAndValid(t *testing.T) {
	h := newBcrypt(t)

	d1 := h.DummyHash()
	d2 := h.DummyHash()
	require.NotEmpty(t, d1)
	assert.Equal(t, d1, d2)
	assert.False(t, h.Verify(context.Background(), "password", d1))
}

func TestHasher_BcryptLengthLimit(t *testing.T) {
	_, err := newBcrypt(t).Hash(context.Background(), strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.Equal(t, 72, newBcrypt(t).MaxPasswordBytes())
	assert.Zero(t, newArgon(t).MaxPasswordBytes())

	_, err = newArgon(t).Hash(context.Background(), strings.Repeat("x", 128))
	assert.NoError(t, err)
}

func TestHasher_ObserverAndCancellation(t *testing.T) {
	var calls atomic.Int32
	h, err := NewPasswordHasher(config.HashBcrypt, bcrypt.MinCost,
		WithConcurrency(1),
		WithHashObserver(func(time.Duration) { calls.Add(1) }))
	require.NoError(t, err)

	hash, err := h.Hash(context.Background(), "password")
	require.NoError(t, err)
	require.True(t, h.Verify(context.Background(), "password", hash))
	assert.Equal(t, int32(2), calls.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	_, err = h.Hash(ctx, "password")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, h.Verify(ctx, "password", hash))
}
