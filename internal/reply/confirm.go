package reply

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer decides whether a rendered reply may be transmitted.
// Injected so automated runs auto-approve while an operator session
// can review each send.
type Confirmer interface {
	Confirm(to, subject, body string) (bool, error)
}

// AutoApprove approves every send. The default for non-interactive
// runs.
type AutoApprove struct{}

func (AutoApprove) Confirm(_, _, _ string) (bool, error) {
	return true, nil
}

// TerminalConfirmer prints the proposed reply and reads a yes/no
// answer.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (c *TerminalConfirmer) Confirm(to, subject, body string) (bool, error) {
	divider := strings.Repeat("-", 50)
	fmt.Fprintf(c.Out, "\nProposed Reply:\n%s\nTo: %s\nSubject: %s\n\nBody:\n%s\n%s\n\nSend this reply? (yes/no): ",
		divider, to, subject, body, divider)

	answer, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
