package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokensale/internal/ir"
)

func TestResolveAsset(t *testing.T) {
	alice := ir.AccountAddress("alice")
	gam := ir.Asset{Address: ir.AccountAddress("asset:gam"), Index: 0, Name: "Gamma", Symbol: "GAM", Creator: alice}
	del := ir.Asset{Address: ir.AccountAddress("asset:del"), Index: 1, Name: "Delta", Symbol: "DEL", Creator: alice}
	dup := ir.Asset{Address: ir.AccountAddress("asset:dup"), Index: 2, Name: "Delta Two", Symbol: "del", Creator: alice}
	assets := []ir.Asset{gam, del}

	got, err := resolveAsset("GAM", assets)
	require.NoError(t, err)
	assert.Equal(t, gam.Address, got.Address)

	got, err = resolveAsset("gam", assets)
	require.NoError(t, err)
	assert.Equal(t, gam.Address, got.Address)

	got, err = resolveAsset("1", assets)
	require.NoError(t, err)
	assert.Equal(t, del.Address, got.Address)

	got, err = resolveAsset(del.Address.String(), assets)
	require.NoError(t, err)
	assert.Equal(t, "DEL", got.Symbol)

	unknown := ir.AccountAddress("elsewhere")
	got, err = resolveAsset(unknown.String(), assets)
	require.NoError(t, err)
	assert.Equal(t, unknown, got.Address)
	assert.Empty(t, got.Symbol)

	_, err = resolveAsset("7", assets)
	assert.ErrorContains(t, err, "no asset at index 7")

	_, err = resolveAsset("DEL", append(assets, dup))
	assert.ErrorContains(t, err, "matches 2 assets")

	_, err = resolveAsset("0xzz", assets)
	assert.ErrorContains(t, err, "invalid asset address")

	_, err = resolveAsset(" ", assets)
	assert.ErrorContains(t, err, "empty asset reference")
}

func TestResolveAccount(t *testing.T) {
	addr, err := resolveAccount("--from", "bob")
	require.NoError(t, err)
	assert.Equal(t, ir.AccountAddress("bob"), addr)

	_, err = resolveAccount("--from", "")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --from")
}
