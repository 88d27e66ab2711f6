package locale

import (
	"log/slog"
	"maps"
	"sync"

	"purpose-ideas/internal/domain"
)

// Context owns the active locale and the translation table. It is passed
// explicitly to every component that needs the locale.
type Context struct {
	mu          sync.RWMutex
	current     domain.Locale
	table       Table
	subscribers map[int]func(domain.Locale)
	nextID      int
	logger      *slog.Logger
}

func NewContext(initial domain.Locale, table Table, logger *slog.Logger) *Context {
	if !initial.Valid() {
		initial = domain.DefaultLocale
	}
	if table == nil {
		table = DefaultTable()
	}
	return &Context{
		current:     initial,
		table:       table,
		subscribers: make(map[int]func(domain.Locale)),
		logger:      logger,
	}
}

func (c *Context) Current() domain.Locale {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Set changes the locale and notifies every subscriber before returning.
// Subscribers run outside the lock and may call Current or Translate.
func (c *Context) Set(loc domain.Locale) {
	c.mu.Lock()
	if c.current == loc {
		c.mu.Unlock()
		return
	}
	c.current = loc
	subs := make([]func(domain.Locale), 0, len(c.subscribers))
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.subscribers[id]; ok {
			subs = append(subs, fn)
		}
	}
	c.mu.Unlock()

	c.logger.Info("locale changed", "locale", loc)

	for _, fn := range subs {
		fn(loc)
	}
}

// Subscribe registers fn for locale changes. The returned func removes it.
func (c *Context) Subscribe(fn func(domain.Locale)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subscribers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Translate returns the text for key in the current locale, or key itself.
func (c *Context) Translate(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if text, ok := c.table[c.current][key]; ok {
		return text
	}
	return key
}

func (c *Context) Translations() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.table[c.current])
}

// ReplaceTable swaps the translation table, e.g. after the file changed.
func (c *Context) ReplaceTable(table Table) {
	c.mu.Lock()
	c.table = table
	c.mu.Unlock()
}
