package scene

import (
	"encoding/json"
	"fmt"

	"github.com/spaghettifunk/aurora/engine/containers"
	"github.com/spaghettifunk/aurora/engine/math"
)

// The render tree is persisted by stable node ids only. Node payloads
// are serialized separately; deserialization resolves the ids back to
// pointers through a lookup built from the payloads.

type treeNodeJson struct {
	Id       string         `json:"id,omitempty"`
	Children []treeNodeJson `json:"children,omitempty"`
}

// RenderTreeIntoJson serializes the tree topology. getId must return
// a stable id for every linked node.
func RenderTreeIntoJson[T any](tree *containers.RenderTree[T], getId func(node *T) string) ([]byte, error) {
	var build func(node *T) treeNodeJson
	build = func(node *T) treeNodeJson {
		out := treeNodeJson{}
		if node != nil {
			out.Id = getId(node)
		}
		tree.ForEachChild(func(child *T) {
			out.Children = append(out.Children, build(child))
		}, node)
		return out
	}
	return json.Marshal(build(nil))
}

// RenderTreeFromJson rebuilds the tree topology into tree, resolving
// node ids through findNode. An id that resolves to nil fails the
// whole load.
func RenderTreeFromJson[T any](tree *containers.RenderTree[T], data []byte, findNode func(id string) *T) error {
	var root treeNodeJson
	if err := json.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("render tree json: %w", err)
	}
	var link func(parent *T, chunk treeNodeJson) error
	link = func(parent *T, chunk treeNodeJson) error {
		node := parent
		if chunk.Id != "" {
			node = findNode(chunk.Id)
			if node == nil {
				return fmt.Errorf("render tree json: no node with id '%s'", chunk.Id)
			}
			tree.LinkChild(parent, node)
		}
		for _, child := range chunk.Children {
			if err := link(node, child); err != nil {
				return err
			}
		}
		return nil
	}
	tree.Clear()
	return link(nil, root)
}

type vec2Json struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type vec3Json struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

type vec4Json struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

func vec2ToJson(v math.Vec2) vec2Json   { return vec2Json{v.X, v.Y} }
func vec2FromJson(v vec2Json) math.Vec2 { return math.NewVec2(v.X, v.Y) }
func vec3ToJson(v math.Vec3) vec3Json   { return vec3Json{v.X, v.Y, v.Z} }
func vec3FromJson(v vec3Json) math.Vec3 { return math.NewVec3(v.X, v.Y, v.Z) }
func vec4ToJson(v math.Vec4) vec4Json   { return vec4Json{v.X, v.Y, v.Z, v.W} }
func vec4FromJson(v vec4Json) math.Vec4 { return math.Vec4{X: v.X, Y: v.Y, Z: v.Z, W: v.W} }

type scriptVarJson struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Value    json.RawMessage `json:"value"`
	ReadOnly bool            `json:"readonly,omitempty"`
}

func scriptVarToJson(v *ScriptVar) (scriptVarJson, error) {
	var value any = v.GetValue()
	if vec, ok := value.(math.Vec2); ok {
		value = vec2ToJson(vec)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return scriptVarJson{}, fmt.Errorf("script variable '%s': %w", v.GetName(), err)
	}
	return scriptVarJson{
		Name:     v.GetName(),
		Type:     v.GetType().String(),
		Value:    raw,
		ReadOnly: v.IsReadOnly(),
	}, nil
}

func scriptVarFromJson(chunk scriptVarJson) (*ScriptVar, error) {
	var value any
	switch chunk.Type {
	case "string":
		var s string
		if err := json.Unmarshal(chunk.Value, &s); err != nil {
			return nil, fmt.Errorf("script variable '%s': %w", chunk.Name, err)
		}
		value = s
	case "int":
		var i int
		if err := json.Unmarshal(chunk.Value, &i); err != nil {
			return nil, fmt.Errorf("script variable '%s': %w", chunk.Name, err)
		}
		value = i
	case "float":
		var f float32
		if err := json.Unmarshal(chunk.Value, &f); err != nil {
			return nil, fmt.Errorf("script variable '%s': %w", chunk.Name, err)
		}
		value = f
	case "bool":
		var b bool
		if err := json.Unmarshal(chunk.Value, &b); err != nil {
			return nil, fmt.Errorf("script variable '%s': %w", chunk.Name, err)
		}
		value = b
	case "vec2":
		var v vec2Json
		if err := json.Unmarshal(chunk.Value, &v); err != nil {
			return nil, fmt.Errorf("script variable '%s': %w", chunk.Name, err)
		}
		value = vec2FromJson(v)
	default:
		return nil, fmt.Errorf("script variable '%s': unknown type '%s'", chunk.Name, chunk.Type)
	}
	return NewScriptVar(chunk.Name, value, chunk.ReadOnly), nil
}

type drawableItemJson struct {
	MaterialId     string         `json:"material"`
	DrawableId     string         `json:"drawable"`
	Layer          int            `json:"layer,omitempty"`
	RenderPass     int            `json:"pass,omitempty"`
	Style          int            `json:"style,omitempty"`
	LineWidth      float32        `json:"linewidth"`
	TimeScale      float32        `json:"timescale"`
	Flags          uint32         `json:"flags"`
	MaterialParams map[string]any `json:"params,omitempty"`
}

type textItemJson struct {
	Text         string   `json:"text"`
	FontName     string   `json:"font"`
	FontSize     int      `json:"fontsize"`
	LineHeight   float32  `json:"lineheight"`
	HAlign       int      `json:"halign,omitempty"`
	VAlign       int      `json:"valign,omitempty"`
	Color        vec4Json `json:"color"`
	Layer        int      `json:"layer,omitempty"`
	RasterWidth  int      `json:"rasterwidth,omitempty"`
	RasterHeight int      `json:"rasterheight,omitempty"`
	Flags        uint32   `json:"flags"`
}

type basicLightJson struct {
	Type                 int      `json:"type"`
	AmbientColor         vec4Json `json:"ambient"`
	DiffuseColor         vec4Json `json:"diffuse"`
	SpecularColor        vec4Json `json:"specular"`
	Direction            vec3Json `json:"direction"`
	Translation          vec3Json `json:"translation"`
	ConstantAttenuation  float32  `json:"constattenuation"`
	LinearAttenuation    float32  `json:"linearattenuation,omitempty"`
	QuadraticAttenuation float32  `json:"quadattenuation,omitempty"`
	SpotHalfAngle        float32  `json:"spothalfangle,omitempty"`
	Layer                int      `json:"layer,omitempty"`
	Enabled              bool     `json:"enabled"`
}

type spatialNodeJson struct {
	Shape         int  `json:"shape"`
	Enabled       bool `json:"enabled"`
	ReportOverlap bool `json:"reportoverlap,omitempty"`
}

type entityNodeClassJson struct {
	Id          string            `json:"id"`
	Name        string            `json:"name"`
	Translation vec2Json          `json:"translation"`
	Scale       vec2Json          `json:"scale"`
	Rotation    float32           `json:"rotation,omitempty"`
	Size        vec2Json          `json:"size"`
	Drawable    *drawableItemJson `json:"drawableitem,omitempty"`
	TextItem    *textItemJson     `json:"textitem,omitempty"`
	BasicLight  *basicLightJson   `json:"basiclight,omitempty"`
	SpatialNode *spatialNodeJson  `json:"spatialnode,omitempty"`
}

func entityNodeClassToJson(node *EntityNodeClass) entityNodeClassJson {
	out := entityNodeClassJson{
		Id:          node.Id,
		Name:        node.Name,
		Translation: vec2ToJson(node.Translation),
		Scale:       vec2ToJson(node.Scale),
		Rotation:    node.Rotation,
		Size:        vec2ToJson(node.Size),
	}
	if d := node.Drawable; d != nil {
		out.Drawable = &drawableItemJson{
			MaterialId:     d.MaterialId,
			DrawableId:     d.DrawableId,
			Layer:          d.Layer,
			RenderPass:     int(d.RenderPass),
			Style:          int(d.Style),
			LineWidth:      d.LineWidth,
			TimeScale:      d.TimeScale,
			Flags:          uint32(d.Flags),
			MaterialParams: d.MaterialParams,
		}
	}
	if t := node.TextItem; t != nil {
		out.TextItem = &textItemJson{
			Text:         t.Text,
			FontName:     t.FontName,
			FontSize:     t.FontSize,
			LineHeight:   t.LineHeight,
			HAlign:       int(t.HAlign),
			VAlign:       int(t.VAlign),
			Color:        vec4ToJson(t.Color),
			Layer:        t.Layer,
			RasterWidth:  t.RasterWidth,
			RasterHeight: t.RasterHeight,
			Flags:        uint32(t.Flags),
		}
	}
	if l := node.BasicLight; l != nil {
		out.BasicLight = &basicLightJson{
			Type:                 int(l.Type),
			AmbientColor:         vec4ToJson(l.AmbientColor),
			DiffuseColor:         vec4ToJson(l.DiffuseColor),
			SpecularColor:        vec4ToJson(l.SpecularColor),
			Direction:            vec3ToJson(l.Direction),
			Translation:          vec3ToJson(l.Translation),
			ConstantAttenuation:  l.ConstantAttenuation,
			LinearAttenuation:    l.LinearAttenuation,
			QuadraticAttenuation: l.QuadraticAttenuation,
			SpotHalfAngle:        l.SpotHalfAngle,
			Layer:                l.Layer,
			Enabled:              l.Enabled,
		}
	}
	if s := node.SpatialNode; s != nil {
		out.SpatialNode = &spatialNodeJson{
			Shape:         int(s.Shape),
			Enabled:       s.Enabled,
			ReportOverlap: s.ReportOverlap,
		}
	}
	return out
}

func entityNodeClassFromJson(chunk entityNodeClassJson) *EntityNodeClass {
	node := &EntityNodeClass{
		Id:          chunk.Id,
		Name:        chunk.Name,
		Translation: vec2FromJson(chunk.Translation),
		Scale:       vec2FromJson(chunk.Scale),
		Rotation:    chunk.Rotation,
		Size:        vec2FromJson(chunk.Size),
	}
	if d := chunk.Drawable; d != nil {
		node.Drawable = &DrawableItem{
			MaterialId:     d.MaterialId,
			DrawableId:     d.DrawableId,
			Layer:          d.Layer,
			RenderPass:     RenderPass(d.RenderPass),
			Style:          RenderStyle(d.Style),
			LineWidth:      d.LineWidth,
			TimeScale:      d.TimeScale,
			Flags:          DrawableFlags(d.Flags),
			MaterialParams: d.MaterialParams,
		}
	}
	if t := chunk.TextItem; t != nil {
		node.TextItem = &TextItem{
			Text:         t.Text,
			FontName:     t.FontName,
			FontSize:     t.FontSize,
			LineHeight:   t.LineHeight,
			HAlign:       HorizontalTextAlign(t.HAlign),
			VAlign:       VerticalTextAlign(t.VAlign),
			Color:        vec4FromJson(t.Color),
			Layer:        t.Layer,
			RasterWidth:  t.RasterWidth,
			RasterHeight: t.RasterHeight,
			Flags:        TextFlags(t.Flags),
		}
	}
	if l := chunk.BasicLight; l != nil {
		node.BasicLight = &BasicLight{
			Type:                 BasicLightType(l.Type),
			AmbientColor:         vec4FromJson(l.AmbientColor),
			DiffuseColor:         vec4FromJson(l.DiffuseColor),
			SpecularColor:        vec4FromJson(l.SpecularColor),
			Direction:            vec3FromJson(l.Direction),
			Translation:          vec3FromJson(l.Translation),
			ConstantAttenuation:  l.ConstantAttenuation,
			LinearAttenuation:    l.LinearAttenuation,
			QuadraticAttenuation: l.QuadraticAttenuation,
			SpotHalfAngle:        l.SpotHalfAngle,
			Layer:                l.Layer,
			Enabled:              l.Enabled,
		}
	}
	if s := chunk.SpatialNode; s != nil {
		node.SpatialNode = &SpatialNode{
			Shape:         SpatialShape(s.Shape),
			Enabled:       s.Enabled,
			ReportOverlap: s.ReportOverlap,
		}
	}
	return node
}

type entityClassJson struct {
	Id         string                `json:"id"`
	Name       string                `json:"name"`
	Lifetime   float32               `json:"lifetime,omitempty"`
	Flags      uint32                `json:"flags"`
	Nodes      []entityNodeClassJson `json:"nodes,omitempty"`
	ScriptVars []scriptVarJson       `json:"scriptvars,omitempty"`
	RenderTree json.RawMessage       `json:"rendertree,omitempty"`
}

// IntoJson serializes the entity class including its render tree
// topology.
func (c *EntityClass) IntoJson() ([]byte, error) {
	out := entityClassJson{
		Id:       c.Id,
		Name:     c.Name,
		Lifetime: c.Lifetime,
		Flags:    uint32(c.Flags),
	}
	for _, node := range c.nodes {
		out.Nodes = append(out.Nodes, entityNodeClassToJson(node))
	}
	for _, v := range c.scriptVars {
		chunk, err := scriptVarToJson(v)
		if err != nil {
			return nil, err
		}
		out.ScriptVars = append(out.ScriptVars, chunk)
	}
	tree, err := RenderTreeIntoJson(c.renderTree, func(node *EntityNodeClass) string {
		return node.Id
	})
	if err != nil {
		return nil, err
	}
	out.RenderTree = tree
	return json.Marshal(out)
}

// EntityClassFromJson loads an entity class serialized with IntoJson.
func EntityClassFromJson(data []byte) (*EntityClass, error) {
	var chunk entityClassJson
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, fmt.Errorf("entity class json: %w", err)
	}
	class := NewEntityClass(chunk.Name)
	class.Id = chunk.Id
	class.Lifetime = chunk.Lifetime
	class.Flags = EntityFlags(chunk.Flags)
	for _, nodeChunk := range chunk.Nodes {
		class.nodes = append(class.nodes, entityNodeClassFromJson(nodeChunk))
	}
	for _, varChunk := range chunk.ScriptVars {
		v, err := scriptVarFromJson(varChunk)
		if err != nil {
			return nil, fmt.Errorf("entity class '%s': %w", chunk.Name, err)
		}
		class.scriptVars = append(class.scriptVars, v)
	}
	if len(chunk.RenderTree) > 0 {
		err := RenderTreeFromJson(class.renderTree, chunk.RenderTree, class.FindNodeById)
		if err != nil {
			return nil, fmt.Errorf("entity class '%s': %w", chunk.Name, err)
		}
	}
	return class, nil
}

type entityPlacementJson struct {
	Id                string               `json:"id"`
	Name              string               `json:"name"`
	EntityClassId     string               `json:"entity"`
	Position          vec2Json             `json:"position"`
	Scale             vec2Json             `json:"scale"`
	Rotation          float32              `json:"rotation,omitempty"`
	Layer             int                  `json:"layer,omitempty"`
	ParentNodeClassId string               `json:"parentnode,omitempty"`
	Lifetime          *float32             `json:"lifetime,omitempty"`
	FlagVals          uint32               `json:"flagvals,omitempty"`
	FlagSets          uint32               `json:"flagsets,omitempty"`
	ScriptVarValues   []scriptVarValueJson `json:"scriptvarvalues,omitempty"`
}

type scriptVarValueJson struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type sceneClassJson struct {
	Id         string                `json:"id"`
	Name       string                `json:"name"`
	Placements []entityPlacementJson `json:"placements,omitempty"`
	ScriptVars []scriptVarJson       `json:"scriptvars,omitempty"`
	RenderTree json.RawMessage       `json:"rendertree,omitempty"`
	IndexKind  int                   `json:"indexkind,omitempty"`
	QuadTree   QuadTreeArgs          `json:"quadtree,omitempty"`
	DenseGrid  DenseGridArgs         `json:"densegrid,omitempty"`
	Left       *float32              `json:"boundleft,omitempty"`
	Right      *float32              `json:"boundright,omitempty"`
	Top        *float32              `json:"boundtop,omitempty"`
	Bottom     *float32              `json:"boundbottom,omitempty"`
}

// IntoJson serializes the scene class. Entity classes referenced by
// the placements are stored by id only.
func (c *SceneClass) IntoJson() ([]byte, error) {
	out := sceneClassJson{
		Id:        c.Id,
		Name:      c.Name,
		IndexKind: int(c.IndexSetting.Kind),
		QuadTree:  c.IndexSetting.QuadTree,
		DenseGrid: c.IndexSetting.DenseGrid,
		Left:      c.Boundary.Left,
		Right:     c.Boundary.Right,
		Top:       c.Boundary.Top,
		Bottom:    c.Boundary.Bottom,
	}
	for _, p := range c.placements {
		chunk := entityPlacementJson{
			Id:                p.Id,
			Name:              p.Name,
			EntityClassId:     p.EntityClassId,
			Position:          vec2ToJson(p.Position),
			Scale:             vec2ToJson(p.Scale),
			Rotation:          p.Rotation,
			Layer:             p.Layer,
			ParentNodeClassId: p.ParentNodeClassId,
			Lifetime:          p.Lifetime,
			FlagVals:          uint32(p.flagVals),
			FlagSets:          uint32(p.flagSets),
		}
		for _, value := range p.ScriptVarValues {
			v := value.Value
			if vec, ok := v.(math.Vec2); ok {
				v = vec2ToJson(vec)
			}
			chunk.ScriptVarValues = append(chunk.ScriptVarValues, scriptVarValueJson{
				Name:  value.Name,
				Value: v,
			})
		}
		out.Placements = append(out.Placements, chunk)
	}
	for _, v := range c.scriptVars {
		chunk, err := scriptVarToJson(v)
		if err != nil {
			return nil, err
		}
		out.ScriptVars = append(out.ScriptVars, chunk)
	}
	tree, err := RenderTreeIntoJson(c.renderTree, func(p *EntityPlacement) string {
		return p.Id
	})
	if err != nil {
		return nil, err
	}
	out.RenderTree = tree
	return json.Marshal(out)
}

// SceneClassFromJson loads a scene class serialized with IntoJson.
// resolve maps placement entity class ids to loaded classes; a nil
// result leaves the placement broken and it is skipped at scene
// instantiation.
func SceneClassFromJson(data []byte, resolve func(classId string) *EntityClass) (*SceneClass, error) {
	var chunk sceneClassJson
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, fmt.Errorf("scene class json: %w", err)
	}
	class := NewSceneClass(chunk.Name)
	class.Id = chunk.Id
	class.IndexSetting = IndexSetting{
		Kind:      IndexKind(chunk.IndexKind),
		QuadTree:  chunk.QuadTree,
		DenseGrid: chunk.DenseGrid,
	}
	class.Boundary = BoundarySetting{
		Left:   chunk.Left,
		Right:  chunk.Right,
		Top:    chunk.Top,
		Bottom: chunk.Bottom,
	}
	for _, pc := range chunk.Placements {
		placement := &EntityPlacement{
			Id:                pc.Id,
			Name:              pc.Name,
			EntityClassId:     pc.EntityClassId,
			Position:          vec2FromJson(pc.Position),
			Scale:             vec2FromJson(pc.Scale),
			Rotation:          pc.Rotation,
			Layer:             pc.Layer,
			ParentNodeClassId: pc.ParentNodeClassId,
			Lifetime:          pc.Lifetime,
			flagVals:          EntityFlags(pc.FlagVals),
			flagSets:          EntityFlags(pc.FlagSets),
		}
		if resolve != nil {
			placement.EntityClass = resolve(pc.EntityClassId)
		}
		for _, value := range pc.ScriptVarValues {
			v := value.Value
			// objects decode into maps; a vec2 shape becomes a Vec2.
			if m, ok := v.(map[string]any); ok {
				x, xok := m["x"].(float64)
				y, yok := m["y"].(float64)
				if xok && yok && len(m) == 2 {
					v = math.NewVec2(float32(x), float32(y))
				}
			}
			placement.ScriptVarValues = append(placement.ScriptVarValues, ScriptVarValue{
				Name:  value.Name,
				Value: v,
			})
		}
		class.placements = append(class.placements, placement)
	}
	for _, varChunk := range chunk.ScriptVars {
		v, err := scriptVarFromJson(varChunk)
		if err != nil {
			return nil, fmt.Errorf("scene class '%s': %w", chunk.Name, err)
		}
		class.scriptVars = append(class.scriptVars, v)
	}
	if len(chunk.RenderTree) > 0 {
		err := RenderTreeFromJson(class.renderTree, chunk.RenderTree, class.FindPlacementById)
		if err != nil {
			return nil, fmt.Errorf("scene class '%s': %w", chunk.Name, err)
		}
	}
	return class, nil
}
