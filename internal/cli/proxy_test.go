package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyCreate(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, "proxy", "create", "nemo", "Captain Nemo", "--as", "1", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "Proxy 'Captain Nemo' created with key 'nemo'\n", out)

	out, err = execute(t, "proxy", "list", "1", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "nemo\tCaptain Nemo\n", out)
}

func TestProxyCreateRequiresActor(t *testing.T) {
	_, err := execute(t, "proxy", "create", "nemo", "Captain Nemo", "--db", tempDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--as")
}

func TestProxyCreateDuplicate(t *testing.T) {
	db := tempDB(t)
	_, err := execute(t, "proxy", "create", "nemo", "Captain Nemo", "--as", "1", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "proxy", "create", "nemo", "Other", "--as", "2", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "Error [DUPLICATE_KEY]")
}

func TestProxyCreateJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "proxy", "create", "nemo", "Captain Nemo", "https://example.com/n.png", "--as", "1", "--db", tempDB(t))
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{
		"key":        "nemo",
		"name":       "Captain Nemo",
		"avatar_url": "https://example.com/n.png",
	}, resp.Data)
}

func TestProxyGrant(t *testing.T) {
	db := tempDB(t)
	_, err := execute(t, "proxy", "create", "nemo", "Captain Nemo", "--as", "1", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "proxy", "grant", "nemo", "2", "--as", "1", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "Granted access to 2 for proxy 'nemo'\n", out)

	out, err = execute(t, "proxy", "access", "nemo", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", out)
}

func TestProxyGrantUnauthorized(t *testing.T) {
	db := tempDB(t)
	_, err := execute(t, "proxy", "create", "nemo", "Captain Nemo", "--as", "1", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "--format", "json", "proxy", "grant", "nemo", "3", "--as", "2", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	out, err = execute(t, "proxy", "access", "nemo", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestProxyDelete(t *testing.T) {
	db := tempDB(t)
	_, err := execute(t, "proxy", "create", "nemo", "Captain Nemo", "--as", "1", "--db", db)
	require.NoError(t, err)
	_, err = execute(t, "proxy", "grant", "nemo", "2", "--as", "1", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "proxy", "delete", "nemo", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "Proxy 'nemo' and all associated access have been deleted (2 grants).\n", out)

	out, err = execute(t, "proxy", "access", "nemo", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No known holders for 'nemo'.\n", out)

	out, err = execute(t, "proxy", "list", "2", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No proxies.\n", out)
}

func TestProxyDeleteUnknownKey(t *testing.T) {
	out, err := execute(t, "--format", "json", "proxy", "delete", "ghost", "--db", tempDB(t))
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, map[string]any{"proxy_key": "ghost", "grants_removed": float64(0)}, resp.Data)
}

func TestProxyListJSONEmpty(t *testing.T) {
	out, err := execute(t, "--format", "json", "proxy", "list", "9", "--db", tempDB(t))
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	// An empty list is still a list.
	assert.Contains(t, out, `"data":[]`)
}

func TestProxyArgs(t *testing.T) {
	_, err := execute(t, "proxy", "grant", "nemo", "--as", "1", "--db", tempDB(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg")
}
