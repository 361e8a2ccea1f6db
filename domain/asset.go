package domain

import "time"

type AssetKind string

const (
	StartImageAsset AssetKind = "start_image"
	EndImageAsset   AssetKind = "end_image"
	VideoAsset      AssetKind = "video"
)

// AssetReference points at a generated artifact. References are shared, never
// copied: a later scene's start image is the same reference as its
// predecessor's end image.
type AssetReference struct {
	SceneID   string    `json:"scene_id"`
	Kind      AssetKind `json:"kind"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// SceneAssets tracks the references a single scene has accumulated.
type SceneAssets struct {
	StartImage *AssetReference `json:"start_image,omitempty"`
	EndImage   *AssetReference `json:"end_image,omitempty"`
	Video      *AssetReference `json:"video,omitempty"`
}

func (a *SceneAssets) Ref(kind AssetKind) *AssetReference {
	if a == nil {
		return nil
	}
	switch kind {
	case StartImageAsset:
		return a.StartImage
	case EndImageAsset:
		return a.EndImage
	case VideoAsset:
		return a.Video
	}
	return nil
}

func (a *SceneAssets) SetRef(kind AssetKind, ref *AssetReference) {
	switch kind {
	case StartImageAsset:
		a.StartImage = ref
	case EndImageAsset:
		a.EndImage = ref
	case VideoAsset:
		a.Video = ref
	}
}
