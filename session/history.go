package session

import "github.com/tbxark/voiceform/types"

// Window bounds the conversation history handed to the advisory oracle.
// System messages always survive; only the last Size non-system messages
// are kept. When Size <= 0, only system messages are kept.
type Window struct {
	Size int
}

// Trim returns the bounded view of history. Input order is preserved.
func (w Window) Trim(history []types.Message) []types.Message {
	if len(history) == 0 {
		return history
	}

	if w.Size <= 0 {
		out := make([]types.Message, 0, len(history))
		for _, m := range history {
			if m.Role == types.RoleSystem {
				out = append(out, m)
			}
		}
		return out
	}

	nonSystemIdx := make([]int, 0, len(history))
	for i, m := range history {
		if m.Role != types.RoleSystem {
			nonSystemIdx = append(nonSystemIdx, i)
		}
	}
	if len(nonSystemIdx) <= w.Size {
		return history
	}

	keep := make(map[int]struct{}, w.Size)
	for _, i := range nonSystemIdx[len(nonSystemIdx)-w.Size:] {
		keep[i] = struct{}{}
	}

	out := make([]types.Message, 0, len(history))
	for i, m := range history {
		if m.Role == types.RoleSystem {
			out = append(out, m)
			continue
		}
		if _, found := keep[i]; found {
			out = append(out, m)
		}
	}
	return out
}
