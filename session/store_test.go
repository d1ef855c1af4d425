package session_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/voiceform/session"
	"github.com/tbxark/voiceform/types"
)

func newTestRegistry(t *testing.T) *session.Registry {
	t.Helper()
	// Background eviction disabled; tests drive EvictExpired directly.
	r := session.NewRegistry(session.WithEvictionInterval(0))
	t.Cleanup(r.Close)
	return r
}

func strPtr(s string) *string { return &s }

func TestRegistry_GetOrCreateIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	first := r.GetOrCreate("s1", "form1")
	second := r.GetOrCreate("s1", "form1")
	assert.Same(t, first, second)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_GetMissing(t *testing.T) {
	r := newTestRegistry(t)
	_, found := r.Get("nope")
	assert.False(t, found)
}

func TestRegistry_DeleteMissingIsNoOp(t *testing.T) {
	r := newTestRegistry(t)
	assert.False(t, r.Delete("nope"))

	r.GetOrCreate("s1", "form1")
	assert.True(t, r.Delete("s1"))
	assert.False(t, r.Delete("s1"))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_EvictExpired(t *testing.T) {
	r := newTestRegistry(t)
	r.GetOrCreate("a", "form1")
	r.GetOrCreate("b", "form1")

	assert.Equal(t, 0, r.EvictExpired(time.Now(), time.Hour), "fresh sessions survive")
	assert.Equal(t, 2, r.Len())

	// From a clock two hours ahead, both sessions are idle past the TTL.
	assert.Equal(t, 2, r.EvictExpired(time.Now().Add(2*time.Hour), time.Hour))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_TouchDefersEviction(t *testing.T) {
	r := newTestRegistry(t)
	s := r.GetOrCreate("a", "form1")

	future := time.Now().Add(30 * time.Minute)
	assert.Equal(t, 1, r.EvictExpired(future, 10*time.Minute))

	s = r.GetOrCreate("a", "form1")
	s.Touch()
	assert.Equal(t, 0, r.EvictExpired(time.Now().Add(5*time.Minute), 10*time.Minute))
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := newTestRegistry(t)
	s := r.GetOrCreate("s1", "form1")

	s.Lock()
	s.AddMessage(types.RoleUser, "hello")
	require.NoError(t, s.ApplyUpdates(map[string]*string{"email": strPtr("a@b.com")}))
	s.Unlock()

	snap, found := r.Snapshot("s1")
	require.True(t, found)
	assert.Equal(t, "form1", snap.FormID)
	assert.Len(t, snap.Messages, 1)
	assert.Equal(t, "a@b.com", snap.FormValues["email"])

	// Mutating the snapshot must not leak into the live session.
	snap.Messages[0].Content = "tampered"
	*snap.Fields["email"].Value = "tampered"
	snap.FormValues["email"] = "tampered"

	again, _ := r.Snapshot("s1")
	assert.Equal(t, "hello", again.Messages[0].Content)
	assert.Equal(t, "a@b.com", *again.Fields["email"].Value)
	assert.Equal(t, "a@b.com", again.FormValues["email"])
}

func TestRegistry_SnapshotMissing(t *testing.T) {
	r := newTestRegistry(t)
	_, found := r.Snapshot("nope")
	assert.False(t, found)
}

func TestRegistry_ConcurrentSessions(t *testing.T) {
	r := newTestRegistry(t)
	const workers = 8
	const turns = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		id := fmt.Sprintf("s%d", w%2)
		wg.Add(1)
		go func(id string, worker int) {
			defer wg.Done()
			for i := 0; i < turns; i++ {
				s := r.GetOrCreate(id, "form1")
				s.Lock()
				s.AddMessage(types.RoleUser, fmt.Sprintf("w%d turn %d", worker, i))
				val := fmt.Sprintf("v%d", i)
				if err := s.ApplyUpdates(map[string]*string{"field": &val}); err != nil {
					t.Error(err)
				}
				s.Unlock()
				s.Touch()
			}
		}(id, w)
	}
	wg.Wait()

	assert.Equal(t, 2, r.Len())
	for _, id := range []string{"s0", "s1"} {
		snap, found := r.Snapshot(id)
		require.True(t, found)
		assert.Len(t, snap.Messages, workers/2*turns)
	}
}

func TestState_MessageTimestampsMonotonic(t *testing.T) {
	r := newTestRegistry(t)
	s := r.GetOrCreate("s1", "form1")
	s.Lock()
	for i := 0; i < 20; i++ {
		s.AddMessage(types.RoleUser, "m")
	}
	s.Unlock()

	snap, _ := r.Snapshot("s1")
	for i := 1; i < len(snap.Messages); i++ {
		assert.False(t, snap.Messages[i].Timestamp.Before(snap.Messages[i-1].Timestamp))
	}
}

func TestState_ApplyUpdatesRemovesOnNil(t *testing.T) {
	r := newTestRegistry(t)
	s := r.GetOrCreate("s1", "form1")
	s.Lock()
	defer s.Unlock()

	require.NoError(t, s.ApplyUpdates(map[string]*string{"email": strPtr("a@b.com"), "phone": strPtr("555")}))
	assert.Equal(t, map[string]string{"email": "a@b.com", "phone": "555"}, s.FormValues())

	require.NoError(t, s.ApplyUpdates(map[string]*string{"email": nil}))
	values := s.FormValues()
	assert.NotContains(t, values, "email")
	assert.Equal(t, "555", values["phone"])
	assert.Equal(t, types.StatusPending, s.Fields["email"].Status)
	assert.Equal(t, types.StatusCollected, s.Fields["phone"].Status)
}

func TestState_AttemptsCountInvalid(t *testing.T) {
	r := newTestRegistry(t)
	s := r.GetOrCreate("s1", "form1")
	s.Lock()
	defer s.Unlock()

	s.SetFieldStatus("email", nil, types.StatusInvalid)
	s.SetFieldStatus("email", nil, types.StatusInvalid)
	assert.Equal(t, 2, s.Fields["email"].Attempts)

	s.SetFieldStatus("email", strPtr("a@b.com"), types.StatusCollected)
	assert.Equal(t, 2, s.Fields["email"].Attempts, "collect does not bump attempts")
}

func TestState_Frustration(t *testing.T) {
	r := newTestRegistry(t)
	s := r.GetOrCreate("s1", "form1")
	s.Lock()
	defer s.Unlock()

	assert.Equal(t, 1, s.BumpFrustration())
	assert.Equal(t, 2, s.BumpFrustration())
	assert.Equal(t, 3, s.BumpFrustration())
	s.ResetFrustration()
	assert.Equal(t, 1, s.BumpFrustration())
}

func TestRegistry_CloseIdempotent(t *testing.T) {
	r := session.NewRegistry(session.WithEvictionInterval(10 * time.Millisecond))
	r.GetOrCreate("s1", "form1")
	r.Close()
	r.Close()
}
