// Package prompt reads operator input for the command-line tools.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// Prompter asks questions on w and reads answers from r. Passwords are read
// from the terminal behind fd without echo.
type Prompter struct {
	r  *bufio.Reader
	w  io.Writer
	fd int
}

func New(r io.Reader, w io.Writer, fd int) *Prompter {
	return &Prompter{r: bufio.NewReader(r), w: w, fd: fd}
}

// Text prints prompt and reads one trimmed line. A final line without a
// newline is accepted.
func (p *Prompter) Text(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := p.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Password prints prompt and reads a password without echo.
func (p *Prompter) Password(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.w, prompt+": "); err != nil {
		return "", err
	}
	pw, err := readPassword(p.fd)
	fmt.Fprintln(p.w)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// NewPassword reads a password twice and fails if the entries differ.
func (p *Prompter) NewPassword() (string, error) {
	first, err := p.Password("Enter password")
	if err != nil {
		return "", err
	}
	second, err := p.Password("Repeat password")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}
