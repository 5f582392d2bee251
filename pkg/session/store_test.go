package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*Store, string) {
	tempDir := t.TempDir()
	st, err := NewStore(tempDir, zerolog.Nop())
	require.NoError(t, err)
	return st, tempDir
}

func TestStore_CreateSession(t *testing.T) {
	st, _ := setupTestStore(t)
	defer st.Close()

	sess := &Session{SessionID: "abc123", ConversationHistory: []Turn{}}
	err := st.Create(sess)
	assert.NoError(t, err)

	// Creating again must fail with ErrExists
	err = st.Create(sess)
	assert.ErrorIs(t, err, ErrExists)
}

func TestStore_ValidateSessionID(t *testing.T) {
	st, _ := setupTestStore(t)
	defer st.Close()

	tests := []struct {
		name      string
		id        string
		shouldErr bool
	}{
		{"valid id", "Xy9kQ2mP4vN8bZ1c", false},
		{"empty id", "", true},
		{"path traversal", "../etc/passwd", true},
		{"forward slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"null byte", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := st.validateSessionID(tt.id)
			if tt.shouldErr {
				assert.ErrorIs(t, err, ErrInvalidID)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStore_RoundTrip(t *testing.T) {
	st, _ := setupTestStore(t)
	defer st.Close()

	sess := &Session{
		SessionID: "roundtrip",
		ConversationHistory: []Turn{
			{Role: RoleUser, Parts: []Part{{Text: "Do I qualify for health cover?"}, {Text: "I am 34."}}},
			{Role: RoleModel, Parts: []Part{{Text: "Yes, here are your options."}}},
		},
	}

	require.NoError(t, st.Create(sess))

	loaded, err := st.Load("roundtrip")
	require.NoError(t, err)
	assert.Equal(t, sess.SessionID, loaded.SessionID)
	assert.Equal(t, sess.ConversationHistory, loaded.ConversationHistory)
}

func TestStore_LoadNotFound(t *testing.T) {
	st, _ := setupTestStore(t)
	defer st.Close()

	_, err := st.Load("never-created")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_LoadCorruptFile(t *testing.T) {
	st, tempDir := setupTestStore(t)
	defer st.Close()

	path := filepath.Join(tempDir, "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := st.Load("corrupt")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveOverwrites(t *testing.T) {
	st, _ := setupTestStore(t)
	defer st.Close()

	sess := &Session{SessionID: "grow", ConversationHistory: []Turn{}}
	require.NoError(t, st.Create(sess))

	sess.ConversationHistory = append(sess.ConversationHistory,
		NewUserTurn(Part{Text: "hello"}),
		NewModelTurn("hi there"),
	)
	require.NoError(t, st.Save(sess))

	loaded, err := st.Load("grow")
	require.NoError(t, err)
	require.Len(t, loaded.ConversationHistory, 2)
	assert.Equal(t, RoleUser, loaded.ConversationHistory[0].Role)
	assert.Equal(t, RoleModel, loaded.ConversationHistory[1].Role)
	assert.Equal(t, "hi there", loaded.ConversationHistory[1].Text())
}

func TestStore_DocumentIsPrettyPrinted(t *testing.T) {
	st, tempDir := setupTestStore(t)
	defer st.Close()

	sess := &Session{
		SessionID:           "pretty",
		ConversationHistory: []Turn{NewUserTurn(Part{Text: "hi"})},
	}
	require.NoError(t, st.Create(sess))

	data, err := os.ReadFile(filepath.Join(tempDir, "pretty.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"sessionId\": \"pretty\"")
	assert.Contains(t, string(data), "\"conversationHistory\"")
}

func TestStore_List(t *testing.T) {
	st, tempDir := setupTestStore(t)
	defer st.Close()

	require.NoError(t, st.Create(&Session{SessionID: "one"}))
	require.NoError(t, st.Create(&Session{SessionID: "two"}))

	// Non-session files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("x"), 0600))

	ids, err := st.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one", "two"}, ids)
}
