package mailbox

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Command is a sync intent the editor-side plugin polls for.
type Command string

const (
	CommandImport    Command = "import"
	CommandExport    Command = "export"
	CommandSourcemap Command = "sourcemap"
)

// Parse validates a wire token and returns the matching Command.
func Parse(token string) (Command, error) {
	switch Command(token) {
	case CommandImport, CommandExport, CommandSourcemap:
		return Command(token), nil
	default:
		return "", fmt.Errorf("unknown sync command %q", token)
	}
}

// UnmarshalJSON decodes a Command from its bare lowercase string token,
// rejecting anything outside the known set.
func (c *Command) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("sync command must be a string: %w", err)
	}

	cmd, err := Parse(token)
	if err != nil {
		return err
	}

	*c = cmd
	return nil
}

// Mailbox holds at most one pending command. Submitting overwrites any
// unconsumed value; only the most recent sync intent matters, intermediate
// commands issued between polls are intentionally discardable.
type Mailbox struct {
	mu      sync.Mutex
	pending Command
	set     bool
}

// New creates an empty mailbox.
func New() *Mailbox {
	return &Mailbox{}
}

// Submit stores cmd as the pending command, replacing any previous value.
func (m *Mailbox) Submit(cmd Command) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = cmd
	m.set = true
}

// Take atomically reads and clears the pending command. The second return
// value reports whether a command was pending; taking from an empty mailbox
// leaves it empty.
func (m *Mailbox) Take() (Command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.set {
		return "", false
	}

	cmd := m.pending
	m.pending = ""
	m.set = false
	return cmd, true
}
