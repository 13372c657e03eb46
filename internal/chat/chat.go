// Package chat defines the records produced by parsing a chat export and the
// per-author message store they are collected into.
package chat

import (
	"encoding/json"
	"slices"
	"strings"
)

// AuthorKey is the canonical bucket a participant's messages are grouped under.
type AuthorKey string

// UnknownKey is the reserved bucket for authors no routing rule matches.
const UnknownKey AuthorKey = "unknown"

// Record is a single accepted line of a chat export.
type Record struct {
	Author  string `json:"author"`
	Message string `json:"message"`
}

// Rule routes authors whose name starts with Prefix to Key.
type Rule struct {
	Prefix string    `json:"prefix" mapstructure:"prefix" yaml:"prefix" validate:"required"`
	Key    AuthorKey `json:"key" mapstructure:"key" yaml:"key" validate:"required"`
}

// Router maps raw author names to bucket keys using an ordered rule list.
// The first rule whose prefix matches wins. Matching is case-sensitive.
type Router struct {
	rules []Rule
}

// NewRouter creates a Router. The rules slice is copied.
func NewRouter(rules []Rule) *Router {
	return &Router{rules: slices.Clone(rules)}
}

// Route returns the bucket key for author, or UnknownKey when nothing matches.
func (r *Router) Route(author string) AuthorKey {
	if r == nil {
		return UnknownKey
	}
	for _, rule := range r.rules {
		if strings.HasPrefix(author, rule.Prefix) {
			return rule.Key
		}
	}
	return UnknownKey
}

// Keys returns the distinct rule keys in rule order.
func (r *Router) Keys() []AuthorKey {
	if r == nil {
		return nil
	}
	keys := make([]AuthorKey, 0, len(r.rules))
	for _, rule := range r.rules {
		if !slices.Contains(keys, rule.Key) {
			keys = append(keys, rule.Key)
		}
	}
	return keys
}

// Store holds messages per author key. Messages keep file order and buckets
// keep creation order.
type Store struct {
	keys    []AuthorKey
	buckets map[AuthorKey][]string
}

// NewStore creates a Store with empty buckets pre-created for keys.
func NewStore(keys ...AuthorKey) *Store {
	s := &Store{buckets: make(map[AuthorKey][]string, len(keys)+1)}
	for _, k := range keys {
		s.ensure(k)
	}
	return s
}

func (s *Store) ensure(key AuthorKey) {
	if _, ok := s.buckets[key]; ok {
		return
	}
	s.keys = append(s.keys, key)
	s.buckets[key] = []string{}
}

// Append adds message to the end of the bucket for key, creating it if needed.
func (s *Store) Append(key AuthorKey, message string) {
	s.ensure(key)
	s.buckets[key] = append(s.buckets[key], message)
}

// Keys returns the bucket keys in creation order.
func (s *Store) Keys() []AuthorKey {
	return slices.Clone(s.keys)
}

// Messages returns a copy of the messages stored under key.
func (s *Store) Messages(key AuthorKey) []string {
	return slices.Clone(s.buckets[key])
}

// Has reports whether a bucket exists for key.
func (s *Store) Has(key AuthorKey) bool {
	_, ok := s.buckets[key]
	return ok
}

// Len returns the number of messages under key.
func (s *Store) Len(key AuthorKey) int {
	return len(s.buckets[key])
}

// Total returns the number of messages across all buckets.
func (s *Store) Total() int {
	n := 0
	for _, msgs := range s.buckets {
		n += len(msgs)
	}
	return n
}

// Map returns a copy of the store as a plain map.
func (s *Store) Map() map[AuthorKey][]string {
	out := make(map[AuthorKey][]string, len(s.buckets))
	for k, msgs := range s.buckets {
		out[k] = slices.Clone(msgs)
	}
	return out
}

// Transform returns a new store with the same buckets in the same order and
// every message passed through fn. The receiver is not modified.
func (s *Store) Transform(fn func(string) string) *Store {
	out := NewStore(s.keys...)
	for _, k := range s.keys {
		for _, msg := range s.buckets[k] {
			out.Append(k, fn(msg))
		}
	}
	return out
}

// MarshalJSON encodes the store as an object of key -> message list.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}
