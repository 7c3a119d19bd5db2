package conversation

import "sync"

// Role — роль реплики в диалоге.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn — одна реплика диалога. После создания не меняется.
type Turn struct {
	Role    Role
	Content string
}

// Window — окно диалога одного пользователя: системная реплика всегда на позиции 0,
// за ней не более maxNonSystem последних реплик user/assistant.
// mu защищает только срез реплик; сериализация запросов пользователя — через Store.Acquire.
type Window struct {
	mu           sync.Mutex
	exchange     sync.Mutex
	pins         int // под Store.mu
	system       Turn
	turns        []Turn
	maxNonSystem int
}

func newWindow(systemPrompt string, maxNonSystem int) *Window {
	if maxNonSystem < 0 {
		maxNonSystem = 0
	}
	return &Window{
		system:       Turn{Role: RoleSystem, Content: systemPrompt},
		turns:        make([]Turn, 0, maxNonSystem+1),
		maxNonSystem: maxNonSystem,
	}
}

// AppendUser добавляет реплику пользователя и сразу обрезает окно.
// Текст не проверяется: пустой и сколь угодно длинный принимаются как есть.
func (w *Window) AppendUser(text string) {
	w.append(Turn{Role: RoleUser, Content: text})
}

// AppendAssistant добавляет ответ сервиса и обрезает окно.
func (w *Window) AppendAssistant(text string) {
	w.append(Turn{Role: RoleAssistant, Content: text})
}

func (w *Window) append(t Turn) {
	w.mu.Lock()
	w.turns = append(w.turns, t)
	w.trimLocked(w.maxNonSystem)
	w.mu.Unlock()
}

// Trim оставляет не более maxNonSystem последних несистемных реплик.
// Системная реплика не трогается, повторный вызов ничего не меняет.
func (w *Window) Trim(maxNonSystem int) {
	w.mu.Lock()
	w.trimLocked(maxNonSystem)
	w.mu.Unlock()
}

func (w *Window) trimLocked(maxNonSystem int) {
	if maxNonSystem < 0 {
		maxNonSystem = 0
	}
	if len(w.turns) <= maxNonSystem {
		return
	}
	// Сдвигаем хвост в начало, чтобы базовый массив не рос бесконечно
	n := copy(w.turns, w.turns[len(w.turns)-maxNonSystem:])
	clear(w.turns[n:])
	w.turns = w.turns[:n]
}

// Snapshot возвращает копию всей последовательности: сначала системная реплика.
func (w *Window) Snapshot() []Turn {
	w.mu.Lock()
	out := make([]Turn, 0, len(w.turns)+1)
	out = append(out, w.system)
	out = append(out, w.turns...)
	w.mu.Unlock()
	return out
}

// Len — число реплик вместе с системной.
func (w *Window) Len() int {
	w.mu.Lock()
	l := len(w.turns) + 1
	w.mu.Unlock()
	return l
}
