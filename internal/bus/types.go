// Package bus holds the canonical inbound interaction that flows from the
// webhook router to the reply workers.
package bus

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Kind distinguishes private messages from public feed comments.
type Kind string

const (
	KindMessage Kind = "message"
	KindComment Kind = "comment"
)

// Interaction is a single inbound message or comment, normalized from a webhook payload.
// It lives only until the reply task that consumes it finishes.
type Interaction struct {
	SourceChannelID string    `json:"source_channel_id"` // page id the event was delivered for
	CounterpartyID  string    `json:"counterparty_id"`   // sender PSID or commenter id
	Kind            Kind      `json:"kind"`
	RawText         string    `json:"raw_text"`
	ReceivedAt      time.Time `json:"received_at"`
	ExternalID      string    `json:"external_id,omitempty"` // provider message id (mid) or comment id
	PostID          string    `json:"post_id,omitempty"`     // commented post, comments only
}

// Fingerprint is a deterministic dedup key derived from an interaction's identifying fields.
type Fingerprint string

// Fingerprint returns the dedup key. Messages key on counterparty and text, since
// redelivered messages repeat both; comments key on the provider-assigned comment id.
func (i Interaction) Fingerprint() Fingerprint {
	switch i.Kind {
	case KindComment:
		return Fingerprint("comment:" + i.ExternalID)
	default:
		sum := sha256.Sum256([]byte(strings.TrimSpace(i.RawText)))
		return Fingerprint("msg:" + i.CounterpartyID + ":" + hex.EncodeToString(sum[:12]))
	}
}
