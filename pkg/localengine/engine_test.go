package localengine

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/overlay"
	"github.com/taigrr/tilekit/pkg/renderer"
	"github.com/taigrr/tilekit/pkg/scene"
	"github.com/taigrr/tilekit/pkg/tileset"
	"github.com/taigrr/tilekit/pkg/view"
)

func writeTile(t *testing.T, path string, offset float32) {
	t.Helper()
	doc := gltf.NewDocument()
	uv := [][2]float32{{0, 0}, {1, 0}, {0, 1}}
	attrs := gltf.PrimitiveAttributes{
		gltf.POSITION: modeler.WritePosition(doc, [][3]float32{
			{offset, 0, 0}, {offset + 1, 0, 0}, {offset, 1, 0},
		}),
		"_CESIUMOVERLAY_0": modeler.WriteTextureCoord(doc, uv),
	}
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{{Attributes: attrs}}}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0}}}
	doc.Scene = gltf.Index(0)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatal(err)
	}
}

type env struct {
	dir      string
	owner    *scene.Node
	engine   *Engine
	failures []tileset.LoadFailure
}

func newEnv(t *testing.T, opts tileset.Options) *env {
	t.Helper()
	dir := t.TempDir()
	writeTile(t, filepath.Join(dir, "a.glb"), 0)
	writeTile(t, filepath.Join(dir, "sub", "b.glb"), 2)
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	en := &env{dir: dir, owner: scene.NewNode("tileset")}
	ext := tileset.Externals{
		Resources:   renderer.New(en.owner, nil),
		MaxTasks:    2,
		OnLoadError: func(f tileset.LoadFailure) { en.failures = append(en.failures, f) },
	}
	e, err := Open(dir, ext, opts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(e.Close)
	en.engine = e
	return en
}

// settle runs frames until cond holds or the deadline passes.
func (en *env) settle(t *testing.T, views []view.ViewState, cond func(*tileset.ViewUpdateResult) bool) *tileset.ViewUpdateResult {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		res := en.engine.UpdateView(views, 0.016)
		if cond(res) {
			return res
		}
		if time.Now().After(deadline) {
			t.Fatalf("did not settle: loaded %d, progress %v", en.engine.TilesLoaded(), en.engine.LoadProgress())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func allLoaded(en *env) func(*tileset.ViewUpdateResult) bool {
	return func(*tileset.ViewUpdateResult) bool { return en.engine.TilesLoaded() == len(en.engine.Tiles()) }
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestOpenEmptyDirectory(t *testing.T) {
	ext := tileset.Externals{Resources: renderer.New(scene.NewNode("tileset"), nil)}
	if _, err := Open(t.TempDir(), ext, tileset.DefaultOptions()); !errors.Is(err, ErrNoTiles) {
		t.Errorf("err = %v, want ErrNoTiles", err)
	}
}

func TestLoadsEveryTile(t *testing.T) {
	en := newEnv(t, tileset.DefaultOptions())
	if got := len(en.engine.Tiles()); got != 2 {
		t.Fatalf("Tiles() = %d, want 2", got)
	}
	if en.engine.Tiles()[1].URL != "sub/b.glb" {
		t.Errorf("URL = %q", en.engine.Tiles()[1].URL)
	}

	en.settle(t, nil, allLoaded(en))
	res := en.engine.UpdateView(nil, 0.016)

	if got := len(res.TilesToRenderThisFrame); got != 2 {
		t.Errorf("rendered = %d, want 2", got)
	}
	if en.engine.LoadProgress() != 100 {
		t.Errorf("LoadProgress() = %v", en.engine.LoadProgress())
	}
	if got := len(en.owner.Children()); got != 2 {
		t.Errorf("owner children = %d, want 2", got)
	}
	if got := en.owner.Children()[0].Name; got != "a.glb" && got != "sub/b.glb" {
		t.Errorf("instance name = %q", got)
	}
	box, ok := en.engine.Bounds()
	if !ok || box.Max.X < 2.99 {
		t.Errorf("Bounds() = %+v, %v", box, ok)
	}
}

func TestFrustumCulling(t *testing.T) {
	en := newEnv(t, tileset.DefaultOptions())
	en.settle(t, nil, allLoaded(en))
	en.engine.UpdateView(nil, 0.016)

	away := []view.ViewState{{
		Position:      math3d.V3(0, 0, 10),
		Direction:     math3d.V3(0, 0, 1),
		Up:            math3d.V3(0, 1, 0),
		ViewportSize:  math3d.V2(800, 600),
		VerticalFOV:   1,
		HorizontalFOV: 1.2,
	}}
	res := en.engine.UpdateView(away, 0.016)
	if len(res.TilesToRenderThisFrame) != 0 || len(res.TilesFadingOut) != 2 || res.TilesCulled != 2 {
		t.Errorf("render %d, fading %d, culled %d", len(res.TilesToRenderThisFrame), len(res.TilesFadingOut), res.TilesCulled)
	}

	toward := away
	toward[0].Direction = math3d.V3(0, 0, -1)
	res = en.engine.UpdateView(toward, 0.016)
	if len(res.TilesToRenderThisFrame) != 2 {
		t.Errorf("render %d, want 2", len(res.TilesToRenderThisFrame))
	}
}

func TestEvictsIdleTiles(t *testing.T) {
	opts := tileset.DefaultOptions()
	opts.MaximumCachedBytes = 1
	en := newEnv(t, opts)
	en.settle(t, nil, allLoaded(en))

	away := []view.ViewState{{
		Position:     math3d.V3(0, 0, 10),
		Direction:    math3d.V3(0, 0, 1),
		Up:           math3d.V3(0, 1, 0),
		ViewportSize: math3d.V2(800, 600),
		VerticalFOV:  1,
	}}
	en.engine.UpdateView(nil, 0.016)
	en.engine.UpdateView(away, 0.016)

	if got := en.engine.TilesLoaded(); got != 0 {
		t.Errorf("TilesLoaded() = %d after eviction", got)
	}
	if got := len(en.owner.Children()); got != 0 {
		t.Errorf("owner children = %d after eviction", got)
	}
}

func TestCloseFreesTiles(t *testing.T) {
	en := newEnv(t, tileset.DefaultOptions())
	en.settle(t, nil, allLoaded(en))
	en.engine.Close()

	if got := len(en.owner.Children()); got != 0 {
		t.Errorf("owner children = %d after Close", got)
	}
	res := en.engine.UpdateView(nil, 0.016)
	if len(res.TilesToRenderThisFrame) != 0 {
		t.Error("closed engine still renders")
	}
}

func TestDebugColorizeOverlay(t *testing.T) {
	en := newEnv(t, tileset.DefaultOptions())
	en.settle(t, nil, allLoaded(en))

	p := overlay.NewDebugColorize()
	p.AddToTileset(en.engine, nil)

	param := overlay.TextureParam(overlay.DefaultMaterialKey)
	for _, tile := range en.engine.Tiles() {
		mat := tile.RenderResources().Instances[0].Mesh.Material
		if _, ok := mat.Param(param); !ok {
			t.Errorf("%s: overlay texture not bound", tile.URL)
		}
	}

	p.RemoveFromTileset(en.engine)
	for _, tile := range en.engine.Tiles() {
		if n := tile.RenderResources().Instances[0].Mesh.Material.ParamCount(); n != 0 {
			t.Errorf("%s: %d params after removal", tile.URL, n)
		}
	}
}

func TestTileMapServiceOverlay(t *testing.T) {
	en := newEnv(t, tileset.DefaultOptions())
	tms := filepath.Join(t.TempDir(), "tms")
	if err := os.MkdirAll(filepath.Join(tms, "0", "0"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tms, "0", "0", "0.png"), pngData(t), 0o644); err != nil {
		t.Fatal(err)
	}

	p := overlay.NewTileMapService(tms)
	p.AddToTileset(en.engine, nil)

	param := overlay.TextureParam(overlay.DefaultMaterialKey)
	en.settle(t, nil, func(*tileset.ViewUpdateResult) bool {
		for _, tile := range en.engine.Tiles() {
			node := tile.RenderResources()
			if node == nil {
				return false
			}
			if _, ok := node.Instances[0].Mesh.Material.Param(param); !ok {
				return false
			}
		}
		return true
	})
}

func TestTileMapServiceMissing(t *testing.T) {
	en := newEnv(t, tileset.DefaultOptions())
	var status int
	layer := &overlay.Layer{
		Name:        "0",
		Kind:        overlay.KindTileMapService,
		URL:         filepath.Join(t.TempDir(), "missing"),
		OnLoadError: func(code int, _ string) { status = code },
	}
	en.engine.AddOverlay(layer)
	en.settle(t, nil, func(*tileset.ViewUpdateResult) bool { return status != 0 })
	if status != 404 {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestBrokenTileReportsFailure(t *testing.T) {
	en := newEnv(t, tileset.DefaultOptions())
	if err := os.WriteFile(filepath.Join(en.dir, "a.glb"), []byte("not gltf"), 0o644); err != nil {
		t.Fatal(err)
	}
	en.settle(t, nil, func(*tileset.ViewUpdateResult) bool { return en.engine.LoadProgress() == 100 })

	if len(en.failures) != 1 || en.failures[0].URL != "a.glb" {
		t.Errorf("failures = %+v", en.failures)
	}
	if en.engine.Tiles()[0].State() != tileset.Failed {
		t.Errorf("state = %v, want failed", en.engine.Tiles()[0].State())
	}
}
