package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source lazily resolves a keystore passphrase from an environment variable or
// by prompting the operator. The value is cached after the first successful
// retrieval so repeated calls reuse the same secret.
type Source struct {
	envVar  string
	prompt  string
	confirm bool

	stdin  *os.File
	stderr io.Writer

	once  sync.Once
	value string
	err   error
}

// NewSource constructs a passphrase source that checks envVar before
// interactively prompting on the terminal.
func NewSource(envVar, prompt string) *Source {
	if strings.TrimSpace(prompt) == "" {
		prompt = "Enter keystore passphrase"
	}
	return &Source{envVar: strings.TrimSpace(envVar), prompt: prompt, stdin: os.Stdin, stderr: os.Stderr}
}

// WithConfirmation makes interactive prompts ask twice, for new keystores.
func (s *Source) WithConfirmation() *Source {
	s.confirm = true
	return s
}

// Get returns the cached passphrase or resolves it if this is the first call.
// Whitespace-only passphrases are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return value, nil
		}
	}

	fd := int(s.stdin.Fd())
	if !term.IsTerminal(fd) {
		if s.envVar != "" {
			return "", fmt.Errorf("keystore passphrase required; set %s or run interactively", s.envVar)
		}
		return "", errors.New("keystore passphrase required and no terminal available")
	}

	first, err := s.read(fd, s.prompt+": ")
	if err != nil {
		return "", err
	}
	if s.confirm {
		second, err := s.read(fd, "Repeat passphrase: ")
		if err != nil {
			return "", err
		}
		if second != first {
			return "", errors.New("passphrases do not match")
		}
	}
	return first, nil
}

func (s *Source) read(fd int, prompt string) (string, error) {
	fmt.Fprint(s.stderr, prompt)
	bytes, err := term.ReadPassword(fd)
	fmt.Fprintln(s.stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	passphrase := string(bytes)
	if strings.TrimSpace(passphrase) == "" {
		return "", errors.New("keystore passphrase cannot be empty")
	}
	return passphrase, nil
}
