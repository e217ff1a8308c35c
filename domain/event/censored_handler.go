package event

import (
	"log/slog"
	"sync"

	"chat-relay/errors"
)

// CensoredHandler keeps a tally of censored words.
type CensoredHandler struct {
	mu      sync.Mutex
	log     *slog.Logger
	counter uint64
	hit     map[string]uint64
	byLang  map[string]uint64
}

func NewCensoredHandler(log *slog.Logger) *CensoredHandler {
	return &CensoredHandler{
		log:    log,
		hit:    make(map[string]uint64),
		byLang: make(map[string]uint64),
	}
}

func (h *CensoredHandler) Handle(event Event) {
	switch event.Type {
	case CensorshipHitType:
		payload, ok := event.Payload.(CensorshipHit)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		h.counter++
		for _, w := range payload.Words {
			h.hit[w]++
		}
		h.byLang[payload.Lang]++
		h.log.Debug("message censored", "author", payload.Author, "words", len(payload.Words), "lang", payload.Lang)
	}
}

// Hits returns how many times word was censored.
func (h *CensoredHandler) Hits(word string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hit[word]
}

// Languages returns how many censored messages were detected in lang.
func (h *CensoredHandler) Languages(lang string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.byLang[lang]
}

// Messages returns how many messages contained at least one censored word.
func (h *CensoredHandler) Messages() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counter
}
