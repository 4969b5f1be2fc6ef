package localstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"edusloth/app/config"
	"edusloth/app/logger"
)

func newTestCollections(t *testing.T) (*Collections, *Store) {
	t.Helper()
	store, err := NewStore(t.TempDir(), logger.New(config.LogConfig{Level: "error"}))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return NewCollections(store), store
}

// TestTodoRoundTrip verifies todos survive a reload with order and
// field values intact.
func TestTodoRoundTrip(t *testing.T) {
	c, store := newTestCollections(t)

	texts := []string{"复习第一章", "整理错题", "背单词"}
	for _, text := range texts {
		if _, err := c.AddTodo(text); err != nil {
			t.Fatalf("add todo: %v", err)
		}
	}

	// reload through a fresh Collections over the same store
	reloaded := NewCollections(store).Todos()
	if len(reloaded) != len(texts) {
		t.Fatalf("todos = %d, want %d", len(reloaded), len(texts))
	}
	for i, text := range texts {
		if reloaded[i].Text != text {
			t.Fatalf("todo[%d] = %q, want %q", i, reloaded[i].Text, text)
		}
		if reloaded[i].ID == "" {
			t.Fatalf("todo[%d] missing id", i)
		}
	}
}

// TestTodoToggleAndDelete exercises the mutation paths.
func TestTodoToggleAndDelete(t *testing.T) {
	c, _ := newTestCollections(t)

	todo, err := c.AddTodo("复习第一章")
	if err != nil {
		t.Fatalf("add todo: %v", err)
	}

	if err := c.ToggleTodo(todo.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got := c.Todos(); !got[0].Done {
		t.Fatal("todo should be done after toggle")
	}

	if err := c.DeleteTodo(todo.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := c.Todos(); len(got) != 0 {
		t.Fatalf("todos = %d, want 0", len(got))
	}

	if err := c.DeleteTodo("missing"); err == nil {
		t.Fatal("expected error deleting missing todo")
	}
}

// TestMalformedSlotResets verifies corrupt slot content is discarded
// and the collection starts empty instead of erroring.
func TestMalformedSlotResets(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, logger.New(config.LogConfig{Level: "error"}))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, SlotTodos+".json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt slot: %v", err)
	}

	c := NewCollections(store)
	if got := c.Todos(); len(got) != 0 {
		t.Fatalf("todos = %d, want 0 after reset", len(got))
	}

	// the slot is usable again after the reset
	if _, err := c.AddTodo("重新开始"); err != nil {
		t.Fatalf("add todo after reset: %v", err)
	}
	if got := c.Todos(); len(got) != 1 {
		t.Fatalf("todos = %d, want 1", len(got))
	}
}

// TestTypeMismatchedSlotResets verifies that syntactically valid JSON
// with wrong field types is discarded whole, not returned half-decoded.
func TestTypeMismatchedSlotResets(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, logger.New(config.LogConfig{Level: "error"}))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	bad := `[{"id":"a","text":"ok","done":false},{"id":"b","text":5,"done":"nope"}]`
	if err := os.WriteFile(filepath.Join(dir, SlotTodos+".json"), []byte(bad), 0644); err != nil {
		t.Fatalf("write slot: %v", err)
	}

	c := NewCollections(store)
	if got := c.Todos(); len(got) != 0 {
		t.Fatalf("todos = %d (%+v), want 0 after reset", len(got), got)
	}

	if _, err := c.AddTodo("重新开始"); err != nil {
		t.Fatalf("add todo after reset: %v", err)
	}
	if got := c.Todos(); len(got) != 1 {
		t.Fatalf("todos = %d, want 1", len(got))
	}
}

// TestStudyGoalCascade verifies deleting a goal removes its sessions
// and leaves everything else untouched.
func TestStudyGoalCascade(t *testing.T) {
	c, _ := newTestCollections(t)

	goal, err := c.AddStudyGoal("高数期末", 40, time.Now().AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}
	other, err := c.AddStudyGoal("英语四级", 20, time.Now().AddDate(0, 2, 0))
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := c.AddStudySession(goal.ID, 45, "", time.Now()); err != nil {
			t.Fatalf("add session: %v", err)
		}
	}
	keep, err := c.AddStudySession(other.ID, 30, "听力练习", time.Now())
	if err != nil {
		t.Fatalf("add session: %v", err)
	}

	if _, err := c.AddTodo("不相关的待办"); err != nil {
		t.Fatalf("add todo: %v", err)
	}

	if err := c.DeleteStudyGoal(goal.ID); err != nil {
		t.Fatalf("delete goal: %v", err)
	}

	if got := c.StudyGoals(); len(got) != 1 || got[0].ID != other.ID {
		t.Fatalf("goals = %v, want only %s", got, other.ID)
	}
	sessions := c.StudySessions("")
	if len(sessions) != 1 || sessions[0].ID != keep.ID {
		t.Fatalf("sessions = %d, want only the unrelated one", len(sessions))
	}
	// unrelated slots are unaffected
	if got := c.Todos(); len(got) != 1 {
		t.Fatalf("todos = %d, want 1", len(got))
	}
}

// TestStudySessionRequiresGoal verifies the foreign-key-like check.
func TestStudySessionRequiresGoal(t *testing.T) {
	c, _ := newTestCollections(t)

	if _, err := c.AddStudySession("missing", 30, "", time.Now()); err == nil {
		t.Fatal("expected error adding session for missing goal")
	}
}

// TestFlashcardEdit covers the flashcard mutation paths.
func TestFlashcardEdit(t *testing.T) {
	c, _ := newTestCollections(t)

	card, err := c.AddFlashcard("什么是导数", "函数的瞬时变化率")
	if err != nil {
		t.Fatalf("add flashcard: %v", err)
	}

	if err := c.EditFlashcard(card.ID, "什么是导数", "变化率的极限"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := c.Flashcards(); got[0].Answer != "变化率的极限" {
		t.Fatalf("answer = %q", got[0].Answer)
	}

	if err := c.DeleteFlashcard(card.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := c.Flashcards(); len(got) != 0 {
		t.Fatalf("flashcards = %d, want 0", len(got))
	}
}
