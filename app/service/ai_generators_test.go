package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"edusloth/app/model"
)

// TestSplitChunks verifies chunk boundaries and full coverage of the input.
func TestSplitChunks(t *testing.T) {
	short := "短文本"
	if got := splitChunks(short, 100); len(got) != 1 || got[0] != short {
		t.Fatalf("short text should stay one chunk, got %d", len(got))
	}

	text := strings.Repeat("a", 25)
	chunks := splitChunks(text, 10)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if len(chunks[0]) != 10 || len(chunks[1]) != 10 || len(chunks[2]) != 5 {
		t.Fatalf("chunk sizes = %d/%d/%d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if strings.Join(chunks, "") != text {
		t.Fatal("chunks should reassemble to the original text")
	}
}

// TestSplitChunksRuneBoundary verifies multi-byte characters are never
// cut in half at chunk boundaries.
func TestSplitChunksRuneBoundary(t *testing.T) {
	// 每个汉字 3 字节；10 字节的块大小落在字符中间
	text := strings.Repeat("学", 8)
	chunks := splitChunks(text, 10)

	total := ""
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk[%d] is not valid UTF-8: %q", i, chunk)
		}
		total += chunk
	}
	if total != text {
		t.Fatal("chunks should reassemble to the original text")
	}
}

// TestUnmarshalJSONArray verifies extraction of a JSON array from
// surrounding model chatter.
func TestUnmarshalJSONArray(t *testing.T) {
	content := "Here are your flashcards:\n```json\n[{\"question\":\"Q1\",\"answer\":\"A1\"}]\n```\nEnjoy!"

	var cards []model.Flashcard
	if err := unmarshalJSONArray(content, &cards); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(cards) != 1 || cards[0].Question != "Q1" || cards[0].Answer != "A1" {
		t.Fatalf("cards = %+v", cards)
	}

	var none []model.Flashcard
	if err := unmarshalJSONArray("no json here", &none); err == nil {
		t.Fatal("expected error when no array present")
	}
}

// TestUnmarshalJSONObject verifies extraction of a mindmap object and
// the root-node requirement downstream code relies on.
func TestUnmarshalJSONObject(t *testing.T) {
	content := `Sure! {"root":{"id":"root","label":"微积分","children":["n1"]},"n1":{"id":"n1","label":"导数","children":[]}}`

	var mindmap map[string]model.MindMapNode
	if err := unmarshalJSONObject(content, &mindmap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	root, ok := mindmap["root"]
	if !ok {
		t.Fatal("missing root node")
	}
	if root.Label != "微积分" || len(root.Children) != 1 {
		t.Fatalf("root = %+v", root)
	}

	var bad map[string]model.MindMapNode
	if err := unmarshalJSONObject("nothing structured", &bad); err == nil {
		t.Fatal("expected error when no object present")
	}
}

// TestRenderMindmapPNG verifies the renderer produces a PNG for a small
// map, including a label long enough to be truncated.
func TestRenderMindmapPNG(t *testing.T) {
	mindmap := map[string]model.MindMapNode{
		"root": {ID: "root", Label: "微积分", Children: []string{"n1", "n2"}},
		"n1":   {ID: "n1", Label: strings.Repeat("微分方程与级数展开", 5), Children: []string{}},
		"n2":   {ID: "n2", Label: "积分", Children: []string{}},
	}

	png, err := RenderMindmapPNG(mindmap)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Fatalf("output is not a PNG (%d bytes)", len(png))
	}
}
