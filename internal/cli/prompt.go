package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/bolasblack/svnscm/internal/scm"
	"github.com/bolasblack/svnscm/internal/svn"
)

// isInteractive reports whether prompts can be shown.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// huhCredentialPrompt asks for svn credentials. A nil result cancels.
func huhCredentialPrompt(_ context.Context, previousUsername string) (*scm.Credentials, error) {
	if !isInteractive() {
		return nil, nil
	}

	creds := scm.Credentials{Username: previousUsername}
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Username").
			Value(&creds.Username),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&creds.Password),
	)).Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, nil
		}
		return nil, err
	}
	return &creds, nil
}

// promptCommitMessage asks for a commit message.
var promptCommitMessage = func() (string, error) {
	if !isInteractive() {
		return "", errors.New("commit message required: pass -m")
	}
	var msg string
	err := huh.NewText().
		Title("Commit message").
		Value(&msg).
		Run()
	if err != nil {
		return "", fmt.Errorf("commit cancelled: %w", err)
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", errors.New("empty commit message")
	}
	return msg, nil
}

// promptResolveAction asks how conflicts should be resolved.
var promptResolveAction = func() (string, error) {
	if !isInteractive() {
		return "", fmt.Errorf("--accept required, one of %s", strings.Join(svn.ResolveActions, ", "))
	}
	options := make([]huh.Option[string], 0, len(svn.ResolveActions))
	for _, action := range svn.ResolveActions {
		options = append(options, huh.NewOption(resolveActionLabel(action), action))
	}

	var choice string
	err := huh.NewSelect[string]().
		Title("How to resolve?").
		Options(options...).
		Value(&choice).
		Run()
	if err != nil {
		return "", fmt.Errorf("resolve cancelled: %w", err)
	}
	return choice, nil
}

func resolveActionLabel(action string) string {
	switch action {
	case "base":
		return "Base - the file as it was before your edits"
	case "working":
		return "Working - the file as it is now"
	case "mine-conflict":
		return "Mine (conflicts) - keep my side of conflicting hunks"
	case "theirs-conflict":
		return "Theirs (conflicts) - take their side of conflicting hunks"
	case "mine-full":
		return "Mine (full) - keep my file"
	case "theirs-full":
		return "Theirs (full) - take their file"
	default:
		return action
	}
}
