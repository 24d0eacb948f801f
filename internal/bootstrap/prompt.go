// Package bootstrap pide por terminal los datos del admin inicial para
// `printdesk provision --prompt-password`.
package bootstrap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dropDatabas3/printdesk/internal/security/password"
)

var (
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Prompt lee email y password. Los campos nil usan stdin/stdout y
// term.ReadPassword (sin eco).
type Prompt struct {
	In           io.Reader
	Out          io.Writer
	ReadPassword func() ([]byte, error)
	Policy       password.Policy
}

func (p *Prompt) defaults() {
	if p.In == nil {
		p.In = os.Stdin
	}
	if p.Out == nil {
		p.Out = os.Stdout
	}
	if p.ReadPassword == nil {
		p.ReadPassword = func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) }
	}
}

// AdminCredentials pide el email si email viene vacío y siempre pide el
// password dos veces. El password no se imprime nunca.
func (p Prompt) AdminCredentials(email string) (string, string, error) {
	p.defaults()

	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Fprint(p.Out, "Admin Email: ")
		line, err := bufio.NewReader(p.In).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", "", err
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return "", "", ErrEmptyEmail
	}
	if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 {
		return "", "", ErrInvalidEmail
	}

	fmt.Fprintf(p.Out, "Admin Password (min %d chars): ", p.Policy.MinLength)
	pass, err := p.ReadPassword()
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", "", err
	}
	if err := p.Policy.Check(string(pass)); err != nil {
		return "", "", err
	}

	fmt.Fprint(p.Out, "Confirm Password: ")
	confirm, err := p.ReadPassword()
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", "", err
	}
	if string(pass) != string(confirm) {
		return "", "", ErrPasswordMismatch
	}
	return email, string(pass), nil
}
