package credentials_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/azstore/credentials"
)

func TestNewStore_InlineKeysOnly(t *testing.T) {
	t.Parallel()

	cfg := credentials.KeysConfig{
		Inline: []credentials.AccountKey{
			{Account: "acct1", Key: "a2V5MQ=="},
			{Account: "acct2", Key: "a2V5Mg=="},
		},
	}

	store, err := credentials.NewStore(cfg)
	require.NoError(t, err)

	key1, err := store.Lookup("acct1")
	require.NoError(t, err)
	assert.Equal(t, "a2V5MQ==", key1)

	key2, err := store.Lookup("acct2")
	require.NoError(t, err)
	assert.Equal(t, "a2V5Mg==", key2)
}

func TestNewStore_FileKeysOnly(t *testing.T) {
	t.Parallel()

	content := `[{"account": "fileacct", "key": "ZmlsZS1rZXk="}]`
	path := writeTestFile(t, content)

	store, err := credentials.NewStore(cfg(path, nil))
	require.NoError(t, err)

	key, err := store.Lookup("fileacct")
	require.NoError(t, err)
	assert.Equal(t, "ZmlsZS1rZXk=", key)
}

func TestNewStore_FileOverridesInline(t *testing.T) {
	t.Parallel()

	content := `[{"account": "dup", "key": "ZmlsZS13aW5z"}]`
	path := writeTestFile(t, content)

	store, err := credentials.NewStore(cfg(path, []credentials.AccountKey{
		{Account: "dup", Key: "aW5saW5lLWxvc2Vz"},
	}))
	require.NoError(t, err)

	key, err := store.Lookup("dup")
	require.NoError(t, err)
	assert.Equal(t, "ZmlsZS13aW5z", key, "file keys should override inline keys")
}

func TestNewStore_EmptyConfig(t *testing.T) {
	t.Parallel()

	store, err := credentials.NewStore(credentials.KeysConfig{})
	require.NoError(t, err)

	_, err = store.Lookup("anyaccount")
	assert.ErrorIs(t, err, credentials.ErrAccountNotFound)
}

func TestNewStore_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := credentials.NewStore(credentials.KeysConfig{File: "/nonexistent/path/keys.json"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read keys file")
}

func cfg(file string, inline []credentials.AccountKey) credentials.KeysConfig {
	return credentials.KeysConfig{File: file, Inline: inline}
}
