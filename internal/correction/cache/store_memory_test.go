package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory(time.Minute)

	_, ok := s.Get(ctx, "urn:miriam:icd:C50")
	assert.False(t, ok)

	s.Set(ctx, "urn:miriam:icd:C50", true)
	s.Set(ctx, "urn:miriam:icd:ZZZ", false)

	valid, ok := s.Get(ctx, "urn:miriam:icd:C50")
	assert.True(t, ok)
	assert.True(t, valid)

	valid, ok = s.Get(ctx, "urn:miriam:icd:ZZZ")
	assert.True(t, ok)
	assert.False(t, valid, "negative answers are cached too")
}

func TestInMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory(time.Minute)

	now := time.Now()
	s.now = func() time.Time { return now }
	s.Set(ctx, "code", true)

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok := s.Get(ctx, "code")
	assert.False(t, ok, "expired entry must miss")
}

func TestInMemoryStore_NoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory(0)

	now := time.Now()
	s.now = func() time.Time { return now }
	s.Set(ctx, "code", true)

	s.now = func() time.Time { return now.Add(24 * time.Hour) }
	_, ok := s.Get(ctx, "code")
	assert.True(t, ok)
}
