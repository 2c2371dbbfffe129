// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jeranaias/helia-tui/internal/engine"
	"github.com/jeranaias/helia-tui/internal/model"
	"github.com/jeranaias/helia-tui/internal/pending"
)

// replyPrinter writes the streaming reply to out as fragments arrive. It
// subscribes to engine snapshots and prints only the new suffix of the
// reply, so the output equals the final content for a finalized reply.
type replyPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	replyID string
	printed int
	done    bool
	failed  bool
}

func newReplyPrinter(out io.Writer) *replyPrinter {
	return &replyPrinter{out: out}
}

// reset prepares for the next reply.
func (p *replyPrinter) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyID, p.printed, p.done, p.failed = "", 0, false, false
}

// observe is an engine.Subscriber.
func (p *replyPrinter) observe(s engine.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return
	}
	if p.replyID == "" {
		if s.StreamingID == "" {
			return
		}
		p.replyID = s.StreamingID
	}

	var msg model.Message
	found := false
	for _, m := range s.Messages {
		if m.ID == p.replyID {
			msg, found = m, true
			break
		}
	}
	if !found {
		// Session switched away; the reply was abandoned.
		p.done = true
		return
	}

	if msg.IsError {
		if p.printed > 0 {
			fmt.Fprintln(p.out)
		}
		fmt.Fprintln(p.out, ErrorStyle.Render(msg.Content))
		p.done, p.failed = true, true
		return
	}
	if len(msg.Content) > p.printed {
		io.WriteString(p.out, msg.Content[p.printed:])
		p.printed = len(msg.Content)
	}
	if !msg.IsStreaming {
		fmt.Fprintln(p.out)
		p.done = true
	}
}

// Failed reports whether the last reply ended errored.
func (p *replyPrinter) Failed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// =============================================================================
// DELIVERY
// =============================================================================

// deliverPending sends the pending message bound to sessionID, at most
// once, and discards it afterwards. It reports whether a message was sent.
func deliverPending(ctx context.Context, eng *engine.Engine, store *pending.Store, sessionID string) (bool, error) {
	msg, ok := store.Claim(sessionID)
	if !ok {
		return false, nil
	}
	defer store.Clear(msg.ID)

	err := eng.SendMessage(ctx, engine.SendRequest{
		SessionID:  sessionID,
		Content:    msg.Content,
		Attachment: msg.Attachment,
		ModelID:    msg.ModelID,
	})
	return true, err
}

// errReplyFailed is returned when the reply ended errored; the error text
// has already been printed.
var errReplyFailed = errors.New("the reply failed")
