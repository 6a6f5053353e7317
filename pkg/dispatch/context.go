package dispatch

import "mercator-hq/pulse/pkg/backends"

// BuildContext assembles the conversation sent to a backend: the last
// maxTurns prior turns followed by the new user message. Older turns are
// dropped silently. System turns in history are skipped; the system
// instruction travels separately.
//
// The returned request owns its slice; later changes to history do not
// affect it.
func BuildContext(system string, history []backends.Turn, message string, maxTurns int) *backends.Request {
	prior := make([]backends.Turn, 0, len(history))
	for _, turn := range history {
		if turn.Role == backends.RoleSystem || turn.Text == "" {
			continue
		}
		prior = append(prior, turn)
	}

	if maxTurns < 0 {
		maxTurns = 0
	}
	if len(prior) > maxTurns {
		prior = prior[len(prior)-maxTurns:]
	}

	turns := make([]backends.Turn, 0, len(prior)+1)
	turns = append(turns, prior...)
	turns = append(turns, backends.Turn{Role: backends.RoleUser, Text: message})

	return &backends.Request{
		System: system,
		Turns:  turns,
	}
}
