package memory

import (
	"time"

	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #region channels
// Memory channels. Contextual holds conversational exchanges; identity holds
// durable self-knowledge.
const (
	ChannelContextual = "contextual"
	ChannelIdentity   = "identity"
)

// #endregion channels

// #region exchange
// Exchange is one stored side of a conversation turn.
type Exchange struct {
	ExchangeID    string
	ThreadID      string
	Channel       string
	Role          string // "requester" | "responder"
	Content       string
	EmotionalTone string
	Triad         triad.Score
	CreatedAt     time.Time

	// Score is the cosine similarity to the retrieval query.
	// Set only on retrieved exchanges.
	Score float64
}

// #endregion exchange

// #region thread
// Thread groups exchanges belonging to one conversation.
type Thread struct {
	ThreadID  string
	UserKey   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// #endregion thread
