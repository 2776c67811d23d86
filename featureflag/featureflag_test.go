package featureflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeatureFlag(t *testing.T) {
	f := New([]string{string(FlagDisableTextureLOD)})

	t.Run("run if enabled", func(t *testing.T) {
		var textureLOD bool
		f.IfSet(FlagDisableTextureLOD, func() {
			textureLOD = true
		})
		require.True(t, textureLOD)

		var culling bool
		f.IfSet(FlagDisableFrustumCulling, func() {
			culling = true
		})
		require.False(t, culling)
	})

	t.Run("run if disabled", func(t *testing.T) {
		var textureLOD bool
		f.IfNotSet(FlagDisableTextureLOD, func() {
			textureLOD = true
		})
		require.False(t, textureLOD)

		var culling bool
		f.IfNotSet(FlagDisableFrustumCulling, func() {
			culling = true
		})
		require.True(t, culling)
	})

	t.Run("nil flags", func(t *testing.T) {
		var empty FeatureFlag
		require.False(t, empty.IsSet(FlagDisableFrustumCulling))
		require.Empty(t, empty.Names())
		require.Equal(t, []string{"DISABLE_TEXTURE_LOD"}, f.Names())
	})
}
