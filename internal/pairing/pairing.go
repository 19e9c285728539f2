// Package pairing joins the chronological message stream into user/assistant
// pairs.
package pairing

import "github.com/MikeSquared-Agency/chatmark/internal/message"

// Pair walks msgs once, holding at most one pending user turn.
//
// A user turn replaces any pending one (the earlier is dropped unpaired). An
// assistant turn closes the pending user turn into a pair, or is dropped when
// nothing is pending. A user turn still pending at the end is dropped. System
// turns are skipped and do not disturb the pending slot.
func Pair(msgs []message.Message) []message.Pair {
	pairs := make([]message.Pair, 0, len(msgs)/2)

	var pending *message.Message
	for i := range msgs {
		msg := msgs[i]
		switch msg.Role {
		case message.RoleUser:
			pending = &msg
		case message.RoleAssistant:
			if pending == nil {
				continue
			}
			assistant := msg
			pairs = append(pairs, message.Pair{
				ID:        pending.ID,
				User:      *pending,
				Assistant: &assistant,
				Timestamp: pending.Timestamp,
				Site:      pending.Site,
			})
			pending = nil
		}
	}

	return pairs
}
