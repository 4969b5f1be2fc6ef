package localstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// 存储槽名称
const (
	SlotTodos         = "edusloth-todos"
	SlotFlashcards    = "edusloth-flashcards"
	SlotStudyGoals    = "edusloth-study-goals"
	SlotStudySessions = "edusloth-study-sessions"
)

// Todo 待办事项
type Todo struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// Flashcard 本地闪卡
type Flashcard struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// StudyGoal 学习目标
type StudyGoal struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	TargetHours float64   `json:"target_hours"`
	Deadline    time.Time `json:"deadline"`
	CreatedAt   time.Time `json:"created_at"`
}

// StudySession 学习记录，归属于某个学习目标
type StudySession struct {
	ID      string    `json:"id"`
	GoalID  string    `json:"goal_id"`
	Minutes int       `json:"minutes"`
	Notes   string    `json:"notes"`
	Date    time.Time `json:"date"`
}

// Collections 本地集合：待办、闪卡、学习计划。
// 每次变更都会整体重写对应的存储槽。
type Collections struct {
	store *Store
}

// NewCollections 创建本地集合
func NewCollections(store *Store) *Collections {
	return &Collections{store: store}
}

// Todos 返回全部待办（按加入顺序）
func (c *Collections) Todos() []Todo {
	var todos []Todo
	c.store.Load(SlotTodos, &todos)
	return todos
}

// AddTodo 添加待办
func (c *Collections) AddTodo(text string) (Todo, error) {
	todos := c.Todos()
	todo := Todo{
		ID:        uuid.New().String(),
		Text:      text,
		CreatedAt: time.Now(),
	}
	todos = append(todos, todo)
	return todo, c.store.Save(SlotTodos, todos)
}

// ToggleTodo 切换待办完成状态
func (c *Collections) ToggleTodo(id string) error {
	todos := c.Todos()
	for i := range todos {
		if todos[i].ID == id {
			todos[i].Done = !todos[i].Done
			return c.store.Save(SlotTodos, todos)
		}
	}
	return fmt.Errorf("待办 %s 不存在", id)
}

// EditTodo 修改待办内容
func (c *Collections) EditTodo(id, text string) error {
	todos := c.Todos()
	for i := range todos {
		if todos[i].ID == id {
			todos[i].Text = text
			return c.store.Save(SlotTodos, todos)
		}
	}
	return fmt.Errorf("待办 %s 不存在", id)
}

// DeleteTodo 删除待办
func (c *Collections) DeleteTodo(id string) error {
	todos := c.Todos()
	for i := range todos {
		if todos[i].ID == id {
			todos = append(todos[:i], todos[i+1:]...)
			return c.store.Save(SlotTodos, todos)
		}
	}
	return fmt.Errorf("待办 %s 不存在", id)
}

// Flashcards 返回全部本地闪卡
func (c *Collections) Flashcards() []Flashcard {
	var cards []Flashcard
	c.store.Load(SlotFlashcards, &cards)
	return cards
}

// AddFlashcard 添加闪卡
func (c *Collections) AddFlashcard(question, answer string) (Flashcard, error) {
	cards := c.Flashcards()
	card := Flashcard{
		ID:        uuid.New().String(),
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}
	cards = append(cards, card)
	return card, c.store.Save(SlotFlashcards, cards)
}

// EditFlashcard 修改闪卡
func (c *Collections) EditFlashcard(id, question, answer string) error {
	cards := c.Flashcards()
	for i := range cards {
		if cards[i].ID == id {
			cards[i].Question = question
			cards[i].Answer = answer
			return c.store.Save(SlotFlashcards, cards)
		}
	}
	return fmt.Errorf("闪卡 %s 不存在", id)
}

// DeleteFlashcard 删除闪卡
func (c *Collections) DeleteFlashcard(id string) error {
	cards := c.Flashcards()
	for i := range cards {
		if cards[i].ID == id {
			cards = append(cards[:i], cards[i+1:]...)
			return c.store.Save(SlotFlashcards, cards)
		}
	}
	return fmt.Errorf("闪卡 %s 不存在", id)
}

// StudyGoals 返回全部学习目标
func (c *Collections) StudyGoals() []StudyGoal {
	var goals []StudyGoal
	c.store.Load(SlotStudyGoals, &goals)
	return goals
}

// AddStudyGoal 添加学习目标
func (c *Collections) AddStudyGoal(title string, targetHours float64, deadline time.Time) (StudyGoal, error) {
	goals := c.StudyGoals()
	goal := StudyGoal{
		ID:          uuid.New().String(),
		Title:       title,
		TargetHours: targetHours,
		Deadline:    deadline,
		CreatedAt:   time.Now(),
	}
	goals = append(goals, goal)
	return goal, c.store.Save(SlotStudyGoals, goals)
}

// DeleteStudyGoal 删除学习目标，并级联删除其全部学习记录
func (c *Collections) DeleteStudyGoal(id string) error {
	goals := c.StudyGoals()
	found := false
	for i := range goals {
		if goals[i].ID == id {
			goals = append(goals[:i], goals[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("学习目标 %s 不存在", id)
	}

	if err := c.store.Save(SlotStudyGoals, goals); err != nil {
		return err
	}

	sessions := c.StudySessions("")
	kept := sessions[:0]
	for _, s := range sessions {
		if s.GoalID != id {
			kept = append(kept, s)
		}
	}
	return c.store.Save(SlotStudySessions, kept)
}

// StudySessions 返回学习记录；goalID 非空时仅返回该目标的记录
func (c *Collections) StudySessions(goalID string) []StudySession {
	var sessions []StudySession
	c.store.Load(SlotStudySessions, &sessions)

	if goalID == "" {
		return sessions
	}

	filtered := make([]StudySession, 0, len(sessions))
	for _, s := range sessions {
		if s.GoalID == goalID {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// AddStudySession 为某个学习目标添加学习记录
func (c *Collections) AddStudySession(goalID string, minutes int, notes string, date time.Time) (StudySession, error) {
	goalExists := false
	for _, g := range c.StudyGoals() {
		if g.ID == goalID {
			goalExists = true
			break
		}
	}
	if !goalExists {
		return StudySession{}, fmt.Errorf("学习目标 %s 不存在", goalID)
	}

	sessions := c.StudySessions("")
	session := StudySession{
		ID:      uuid.New().String(),
		GoalID:  goalID,
		Minutes: minutes,
		Notes:   notes,
		Date:    date,
	}
	sessions = append(sessions, session)
	return session, c.store.Save(SlotStudySessions, sessions)
}

// DeleteStudySession 删除单条学习记录
func (c *Collections) DeleteStudySession(id string) error {
	sessions := c.StudySessions("")
	for i := range sessions {
		if sessions[i].ID == id {
			sessions = append(sessions[:i], sessions[i+1:]...)
			return c.store.Save(SlotStudySessions, sessions)
		}
	}
	return fmt.Errorf("学习记录 %s 不存在", id)
}
