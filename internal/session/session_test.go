package session

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ReadYourWrite(t *testing.T) {
	store, writer := New()

	_, ok := store.Get()
	assert.False(t, ok, "a new store is logged out")
	assert.Empty(t, store.Token())

	writer.Set(&Session{UserID: "1", DisplayName: "A", Token: "abc"})

	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, ID("1"), got.UserID)
	assert.Equal(t, "A", got.DisplayName)
	assert.Equal(t, "abc", store.Token())

	writer.Set(nil)
	_, ok = store.Get()
	assert.False(t, ok)
	assert.Empty(t, store.Token())
}

func TestStore_SetCopiesValue(t *testing.T) {
	store, writer := New()

	sess := &Session{UserID: "1", Token: "abc"}
	writer.Set(sess)
	sess.Token = "mutated"

	assert.Equal(t, "abc", store.Token())
}

func TestStore_LastWriteWins(t *testing.T) {
	store, writer := New()

	writer.Set(&Session{UserID: "1", Token: "first"})
	writer.Set(&Session{UserID: "2", Token: "second"})

	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, ID("2"), got.UserID)
	assert.Equal(t, "second", got.Token)
}

func TestStore_ConcurrentReaders(t *testing.T) {
	store, writer := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if sess, ok := store.Get(); ok {
					assert.NotEmpty(t, sess.Token)
				}
			}
		}()
	}
	for j := 0; j < 1000; j++ {
		writer.Set(&Session{UserID: "1", Token: "t"})
		writer.Clear()
	}
	wg.Wait()
}

func TestStore_Subscribe(t *testing.T) {
	store, writer := New()

	var seen []bool
	cancel := store.Subscribe(func(_ Session, ok bool) {
		seen = append(seen, ok)
	})

	writer.Set(&Session{Token: "abc"})
	writer.Clear()
	cancel()
	cancel()
	writer.Set(&Session{Token: "again"})

	assert.Equal(t, []bool{true, false}, seen)
}

func TestWriter_Store(t *testing.T) {
	store, writer := New()
	assert.Same(t, store, writer.Store())
}

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ID
	}{
		{"number", `{"id":7}`, "7"},
		{"large number", `{"id":12345678901234}`, "12345678901234"},
		{"string", `{"id":"u-7"}`, "u-7"},
		{"null", `{"id":null}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v struct {
				ID ID `json:"id"`
			}
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.want, v.ID)
		})
	}
}

func TestID_UnmarshalJSONRejectsObjects(t *testing.T) {
	var v struct {
		ID ID `json:"id"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"id":{"x":1}}`), &v))
}

func TestID_MarshalJSON(t *testing.T) {
	tests := []struct {
		id   ID
		want string
	}{
		{"7", `7`},
		{"0", `0`},
		{"007", `"007"`},
		{"u-7", `"u-7"`},
		{"", `""`},
		{"1234567890123456789012", `"1234567890123456789012"`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(data), "id %q", tt.id)
	}
}

func TestSession_Avatar(t *testing.T) {
	assert.Equal(t, PlaceholderAvatar, Session{}.Avatar())
	assert.Equal(t, "https://cdn/a.png", Session{AvatarURL: "https://cdn/a.png"}.Avatar())
}

func TestSession_JSONNeverContainsToken(t *testing.T) {
	data, err := json.Marshal(Session{UserID: "1", Token: "secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

func TestFingerprint(t *testing.T) {
	assert.Empty(t, Fingerprint(""))

	fp := Fingerprint("abc")
	assert.Len(t, fp, 12)
	assert.Equal(t, fp, Fingerprint("abc"))
	assert.NotEqual(t, fp, Fingerprint("abd"))
	assert.NotContains(t, fp, "abc")
}
