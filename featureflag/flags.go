package featureflag

type Flag string

const (
	// Shows every tile of the active surface regardless of the camera.
	FlagDisableFrustumCulling Flag = "DISABLE_FRUSTUM_CULLING"

	// Builds textures at full resolution only.
	FlagDisableTextureLOD Flag = "DISABLE_TEXTURE_LOD"
)
