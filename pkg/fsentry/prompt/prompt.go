// Package prompt supplies no-echo passphrase entry for the core's
// keyfile operations. It is kept outside pkg/fsentry's core packages
// per spec §1/§5: the core never calls a terminal directly. The core's
// container package takes passphrases as plain bytes; cmd/fsentry
// resolves them through a PassphraseSource, so a front end can supply
// its own source (a fixed value, a secrets-manager lookup) without
// linking a TTY dependency into the core.
package prompt

import (
	"fmt"
	"os"

	"github.com/mutagen-io/gopass"
	"github.com/pkg/errors"
)

// PassphraseSource supplies a passphrase for a keyfile operation, given
// a human-readable label ("site keyfile", "local keyfile", ...).
// cmd/fsentry calls one to obtain each passphrase it hands to the
// container package, so automation can supply one that never touches a
// terminal.
type PassphraseSource func(label string) (string, error)

// FromTerminal reads a passphrase from the controlling terminal with
// echo disabled, grounded on the teacher's
// pkg/prompt.PromptCommandLineWithResponseMode(ResponseModeSecret, ...)
// call into gopass.GetPasswd.
func FromTerminal(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "Passphrase for %s: ", label)
	result, err := gopass.GetPasswd()
	if err != nil {
		return "", errors.Wrap(err, "unable to read passphrase")
	}
	return string(result), nil
}

// Fixed returns a PassphraseSource that always returns value, for
// automation front ends that accept a command-line-supplied passphrase
// (spec §6: "either from the TTY or from a command-line-supplied
// value; the latter intended for automation").
func Fixed(value string) PassphraseSource {
	return func(string) (string, error) {
		return value, nil
	}
}
