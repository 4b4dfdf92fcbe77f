package overlay

// Image is one encoded raster overlay tile as fetched by the engine.
type Image struct {
	Data []byte
	// Rectangle is the tile's extent in overlay texture coordinates.
	Rectangle [4]float64
}
