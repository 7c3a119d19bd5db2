package conversation

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store — окна диалогов по идентификатору пользователя. Создаётся при старте процесса
// и живёт до его завершения. При maxConversations > 0 давно неактивные окна вытесняются (LRU),
// иначе отображение растёт без ограничений.
type Store struct {
	systemPrompt string
	maxHistory   int

	mu      sync.Mutex
	windows map[string]*Window
	cache   *lru.Cache[string, *Window]
	// pinned — окна, вытесненные из LRU, пока их держит Acquire
	pinned map[string]*Window
}

// NewStore создаёт хранилище окон. maxHistory — максимум несистемных реплик в окне.
func NewStore(systemPrompt string, maxHistory, maxConversations int) (*Store, error) {
	s := &Store{systemPrompt: systemPrompt, maxHistory: maxHistory}
	if maxConversations > 0 {
		s.pinned = make(map[string]*Window)
		// Колбэк вызывается внутри Add/Purge, то есть под s.mu
		c, err := lru.NewWithEvict(maxConversations, func(userID string, w *Window) {
			if w.pins > 0 {
				s.pinned[userID] = w
			}
		})
		if err != nil {
			return nil, err
		}
		s.cache = c
		return s, nil
	}
	s.windows = make(map[string]*Window)
	return s, nil
}

// GetOrCreate возвращает окно пользователя, создавая его с одной системной репликой.
func (s *Store) GetOrCreate(userID string) *Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(userID)
}

func (s *Store) getOrCreateLocked(userID string) *Window {
	if s.cache != nil {
		if w, ok := s.cache.Get(userID); ok {
			return w
		}
		w, ok := s.pinned[userID]
		if ok {
			delete(s.pinned, userID)
		} else {
			w = newWindow(s.systemPrompt, s.maxHistory)
		}
		s.cache.Add(userID, w)
		return w
	}
	w, ok := s.windows[userID]
	if !ok {
		w = newWindow(s.systemPrompt, s.maxHistory)
		s.windows[userID] = w
	}
	return w
}

// Acquire захватывает окно пользователя на время обмена с сервисом: пока release не вызван,
// другой обработчик того же пользователя ждёт. Удерживаемое окно LRU не теряет.
// Используется только при SERIALIZE_PER_USER.
func (s *Store) Acquire(userID string) (w *Window, release func()) {
	s.mu.Lock()
	w = s.getOrCreateLocked(userID)
	w.pins++
	s.mu.Unlock()

	w.exchange.Lock()
	return w, func() {
		w.exchange.Unlock()
		s.mu.Lock()
		w.pins--
		if w.pins == 0 && s.pinned[userID] == w {
			delete(s.pinned, userID)
		}
		s.mu.Unlock()
	}
}

// Len — количество окон в хранилище.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		return s.cache.Len() + len(s.pinned)
	}
	return len(s.windows)
}

// Reset удаляет все окна. Вызывается при остановке.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		s.cache.Purge()
		clear(s.pinned)
		return
	}
	clear(s.windows)
}
