package service

import (
	"bytes"
	"fmt"
	"image/png"
	"math"

	"edusloth/app/model"

	"github.com/fogleman/gg"
)

const (
	mindmapWidth  = 1200
	mindmapHeight = 900
	levelRadius   = 180.0
)

type mindmapLayout struct {
	x, y float64
}

// RenderMindmapPNG 把思维导图渲染为 PNG 图片
// 布局：根节点居中，子节点按层级分布在同心圆上
func RenderMindmapPNG(mindmap map[string]model.MindMapNode) ([]byte, error) {
	root, ok := mindmap["root"]
	if !ok {
		return nil, fmt.Errorf("思维导图缺少 root 节点")
	}

	positions := layoutMindmap(mindmap, root)

	dc := gg.NewContext(mindmapWidth, mindmapHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// 先画连线再画节点，避免线压在文字上
	dc.SetRGB(0.6, 0.6, 0.6)
	dc.SetLineWidth(1.5)
	for id, node := range mindmap {
		from, ok := positions[id]
		if !ok {
			continue
		}
		for _, childID := range node.Children {
			to, ok := positions[childID]
			if !ok {
				continue
			}
			dc.DrawLine(from.x, from.y, to.x, to.y)
			dc.Stroke()
		}
	}

	for id, node := range mindmap {
		pos, ok := positions[id]
		if !ok {
			continue
		}

		label := node.Label
		if runes := []rune(label); len(runes) > 28 {
			label = string(runes[:25]) + "..."
		}

		w, h := dc.MeasureString(label)
		padX, padY := 12.0, 8.0

		if id == "root" {
			dc.SetRGB(0.18, 0.45, 0.85)
		} else {
			dc.SetRGB(0.92, 0.95, 1.0)
		}
		dc.DrawRoundedRectangle(pos.x-w/2-padX, pos.y-h/2-padY, w+2*padX, h+2*padY, 8)
		dc.Fill()

		dc.SetRGB(0.18, 0.45, 0.85)
		dc.DrawRoundedRectangle(pos.x-w/2-padX, pos.y-h/2-padY, w+2*padX, h+2*padY, 8)
		dc.Stroke()

		if id == "root" {
			dc.SetRGB(1, 1, 1)
		} else {
			dc.SetRGB(0.1, 0.1, 0.2)
		}
		dc.DrawStringAnchored(label, pos.x, pos.y, 0.5, 0.35)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// layoutMindmap 从根节点 BFS 分层，按同心圆均匀放置
func layoutMindmap(mindmap map[string]model.MindMapNode, root model.MindMapNode) map[string]mindmapLayout {
	cx, cy := float64(mindmapWidth)/2, float64(mindmapHeight)/2
	positions := map[string]mindmapLayout{"root": {cx, cy}}

	visited := map[string]bool{"root": true}
	level := []string{"root"}

	for depth := 1; len(level) > 0; depth++ {
		var next []string
		for _, id := range level {
			for _, childID := range mindmap[id].Children {
				if _, ok := mindmap[childID]; !ok || visited[childID] {
					continue
				}
				visited[childID] = true
				next = append(next, childID)
			}
		}
		if len(next) == 0 {
			break
		}

		radius := levelRadius * float64(depth)
		for i, id := range next {
			angle := 2 * math.Pi * float64(i) / float64(len(next))
			positions[id] = mindmapLayout{
				x: cx + radius*math.Cos(angle),
				y: cy + radius*math.Sin(angle)*0.72, // 画布偏宽，纵向略压缩
			}
		}
		level = next
	}

	return positions
}
