package services

import (
	"context"
	"strings"
	"testing"

	"justice_flow_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFieldKey(t *testing.T) {
	t.Helper()
	key, err := GenerateEncryptionKey()
	require.NoError(t, err)
	t.Setenv("DATA_ENCRYPTION_KEY", key)
}

func TestSealField(t *testing.T) {
	t.Run("plain without a key", func(t *testing.T) {
		t.Setenv("DATA_ENCRYPTION_KEY", "")
		sealed, err := SealField("witness address")
		require.NoError(t, err)
		assert.Equal(t, "witness address", sealed)
	})

	t.Run("round trip", func(t *testing.T) {
		withFieldKey(t)
		sealed, err := SealField("witness address")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sealed, sealedPrefix))

		again, err := SealField("witness address")
		require.NoError(t, err)
		assert.NotEqual(t, sealed, again)

		opened, err := OpenField(sealed)
		require.NoError(t, err)
		assert.Equal(t, "witness address", opened)

		plain, err := OpenField("legacy plaintext")
		require.NoError(t, err)
		assert.Equal(t, "legacy plaintext", plain)
	})

	t.Run("sealed data needs the key", func(t *testing.T) {
		withFieldKey(t)
		sealed, err := SealField("x")
		require.NoError(t, err)

		t.Setenv("DATA_ENCRYPTION_KEY", "")
		_, err = OpenField(sealed)
		assert.ErrorIs(t, err, ErrFieldKeyMissing)
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		withFieldKey(t)
		_, err := OpenField(sealedPrefix + "AAAA")
		assert.ErrorIs(t, err, ErrInvalidCiphertext)
	})

	t.Run("bad key length", func(t *testing.T) {
		t.Setenv("DATA_ENCRYPTION_KEY", "c2hvcnQ=")
		_, err := SealField("x")
		assert.Error(t, err)
	})
}

func TestConfidentialNotesAreSealed(t *testing.T) {
	withFieldKey(t)
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	wf, _ := newTestWorkflow(db)
	ctx := context.Background()
	judge := ActorFromUser(fx.Judge)
	caseRecord := openInstructionCase(t, db, fx, wf)

	note, err := wf.CreateNote(ctx, judge, caseRecord.ID, "Informant lives on rue Joss", true)
	require.NoError(t, err)
	assert.Equal(t, "Informant lives on rue Joss", note.Content)

	var stored models.CaseNote
	require.NoError(t, db.First(&stored, "id = ?", note.ID).Error)
	assert.True(t, strings.HasPrefix(stored.Content, sealedPrefix))

	_, err = wf.UpdateNote(ctx, judge, caseRecord.ID, note.ID, "Informant moved to Bonapriso")
	require.NoError(t, err)
	require.NoError(t, db.First(&stored, "id = ?", note.ID).Error)
	assert.True(t, strings.HasPrefix(stored.Content, sealedPrefix))

	notes, err := ListNotes(db, judge, caseRecord.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Informant moved to Bonapriso", notes[0].Content)
}
