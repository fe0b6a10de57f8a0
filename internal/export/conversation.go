// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"time"

	"github.com/jeranaias/docchat-tui/internal/history"
)

// Conversation is the exportable form of a session.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Server    string    `json:"server,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Message is one exported message.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	State     string    `json:"state,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FromHistory builds a Conversation from stored records.
func FromHistory(sess *history.Session, msgs []history.Message) *Conversation {
	conv := &Conversation{
		ID:        sess.ID,
		Title:     sess.DisplayTitle(),
		Server:    sess.Server,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Messages:  make([]Message, 0, len(msgs)),
	}
	for _, m := range msgs {
		conv.Messages = append(conv.Messages, Message{
			Role:      m.Role,
			Content:   m.Content,
			State:     m.State,
			Timestamp: m.CreatedAt,
		})
	}
	return conv
}

// validate rejects conversations that cannot be exported.
func (c *Conversation) validate() error {
	if c == nil {
		return errNilConversation
	}
	if len(c.Messages) == 0 {
		return errNoMessages
	}
	return nil
}
