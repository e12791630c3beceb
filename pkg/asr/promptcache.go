package asr

import "sync"

// PromptCache memoizes the tokenization of per-job prompt overrides, keyed
// by the raw prompt text, so repeatedly-used prompts (e.g. a fixed system
// prompt a client resends on every segment) aren't retokenized on every
// job. Bounded to maxEntries; eviction is simple FIFO rather than true LRU
// — acceptable here since prompt text churn is low and a cache miss just
// costs one retokenization, not correctness.
type PromptCache struct {
	mu       sync.Mutex
	maxEntries int
	order    []string
	entries  map[string][]int32
}

// DefaultPromptCacheSize bounds the cache to a modest number of distinct
// prompts — enough for a handful of client-configured system prompts.
const DefaultPromptCacheSize = 32

// NewPromptCache creates a PromptCache bounded to maxEntries distinct
// prompt texts.
func NewPromptCache(maxEntries int) *PromptCache {
	if maxEntries <= 0 {
		maxEntries = DefaultPromptCacheSize
	}
	return &PromptCache{
		maxEntries: maxEntries,
		entries:    make(map[string][]int32, maxEntries),
	}
}

// Tokenize returns the cached token ids for prompt, calling tokenize and
// storing the result only on a cache miss.
func (c *PromptCache) Tokenize(prompt string, tokenize func(string) ([]int32, error)) ([]int32, error) {
	c.mu.Lock()
	if ids, ok := c.entries[prompt]; ok {
		c.mu.Unlock()
		return ids, nil
	}
	c.mu.Unlock()

	ids, err := tokenize(prompt)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[prompt]; !ok {
		if len(c.order) >= c.maxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, prompt)
		c.entries[prompt] = ids
	}
	return ids, nil
}
