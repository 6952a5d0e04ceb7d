package session

import (
	"errors"
	"sync/atomic"

	"github.com/danmuck/trctl/internal/protocol"
)

var ErrVersionAlreadySet = errors.New("session: rpc version already set")

// Token is an opaque session id issued by the daemon.
type Token string

func (t Token) String() string {
	return string(t)
}

// Version is the daemon rpc-version reported during negotiation.
type Version int

// Legacy reports whether the daemon uses the bit-flag status vocabulary.
func (v Version) Legacy() bool {
	return protocol.IsLegacy(int(v))
}

// Vocabulary returns the status vocabulary for this version.
func (v Version) Vocabulary() protocol.StatusVocabulary {
	return protocol.VocabularyFor(int(v))
}

// Store holds the session state of one client. Values are replaced whole, so
// readers always observe a complete prior write.
type Store struct {
	token   atomic.Pointer[Token]
	version atomic.Pointer[Version]
}

func NewStore() *Store {
	return &Store{}
}

// Token returns the current token; ok is false until one has been stored.
func (s *Store) Token() (Token, bool) {
	t := s.token.Load()
	if t == nil {
		return "", false
	}
	return *t, true
}

// SetToken replaces the current token. Last write wins.
func (s *Store) SetToken(t Token) {
	s.token.Store(&t)
}

// Version returns the negotiated rpc-version; ok is false until negotiated.
func (s *Store) Version() (Version, bool) {
	v := s.version.Load()
	if v == nil {
		return 0, false
	}
	return *v, true
}

// SetVersion records the rpc-version. It is immutable once set.
func (s *Store) SetVersion(v Version) error {
	if !s.version.CompareAndSwap(nil, &v) {
		return ErrVersionAlreadySet
	}
	return nil
}

// Vocabulary returns the status vocabulary for the negotiated version, or
// protocol.UnknownStatuses before negotiation completes.
func (s *Store) Vocabulary() protocol.StatusVocabulary {
	v, ok := s.Version()
	if !ok {
		return protocol.UnknownStatuses
	}
	return v.Vocabulary()
}
