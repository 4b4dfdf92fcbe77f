package overlay

import (
	"slices"

	"go.uber.org/zap"
)

// Material parameter prefixes set on a mesh material per overlay key.
const (
	TextureParamPrefix          = "_overlay_texture_"
	CoordinateIndexParamPrefix  = "_overlay_texture_coordinate_index_"
	TranslationScaleParamPrefix = "_overlay_translation_and_scale_"
)

// TextureParam returns the texture parameter name for key.
func TextureParam(key string) string { return TextureParamPrefix + key }

// CoordinateIndexParam returns the UV slot parameter name for key.
func CoordinateIndexParam(key string) string { return CoordinateIndexParamPrefix + key }

// TranslationScaleParam returns the translation and scale parameter name for
// key.
func TranslationScaleParam(key string) string { return TranslationScaleParamPrefix + key }

// MaterialKeys is the ordered set of overlay keys a tileset material exposes.
type MaterialKeys struct {
	keys []string
	log  *zap.Logger
}

// NewMaterialKeys returns an empty key set.
func NewMaterialKeys(log *zap.Logger) *MaterialKeys {
	if log == nil {
		log = zap.NewNop()
	}
	return &MaterialKeys{log: log}
}

// Add registers key. Duplicates are ignored and logged.
func (k *MaterialKeys) Add(key string) bool {
	if slices.Contains(k.keys, key) {
		k.log.Warn("duplicate overlay material key ignored", zap.String("key", key))
		return false
	}
	k.keys = append(k.keys, key)
	return true
}

// Remove drops key.
func (k *MaterialKeys) Remove(key string) {
	k.keys = slices.DeleteFunc(k.keys, func(s string) bool { return s == key })
}

// Has reports whether key is registered.
func (k *MaterialKeys) Has(key string) bool { return slices.Contains(k.keys, key) }

// Keys returns the registered keys in insertion order.
func (k *MaterialKeys) Keys() []string { return slices.Clone(k.keys) }

// Params returns the three parameter names of every registered key.
func (k *MaterialKeys) Params() []string {
	out := make([]string, 0, 3*len(k.keys))
	for _, key := range k.keys {
		out = append(out, TextureParam(key), CoordinateIndexParam(key), TranslationScaleParam(key))
	}
	return out
}
