// Package prompt reads interactive answers for the CLI.
//
// On a terminal passwords are read with echo disabled. Otherwise, as when
// input is piped or in tests, every answer is one line.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const maxAttempts = 3

// Reader prompts on out and reads answers from in.
type Reader struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

// NewReader reads from stdin and prompts on stdout.
func NewReader() *Reader {
	fd := int(os.Stdin.Fd())
	return &Reader{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		fd:  fd,
		tty: term.IsTerminal(fd),
	}
}

// NewReaderFrom reads line by line from in, passwords included.
func NewReaderFrom(in io.Reader, out io.Writer) *Reader {
	return &Reader{in: bufio.NewReader(in), out: out, fd: -1}
}

// Line prompts once and returns the trimmed answer.
func (r *Reader) Line(prompt string) (string, error) {
	fmt.Fprintf(r.out, "%s: ", prompt)
	return r.readLine()
}

// Required reprompts until the answer is non-empty.
func (r *Reader) Required(prompt string) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		input, err := r.Line(prompt)
		if err != nil {
			return "", err
		}
		if input != "" {
			return input, nil
		}
		fmt.Fprintln(r.out, "A value is required.")
	}
	return "", fmt.Errorf("%s: no value after %d attempts", strings.ToLower(prompt), maxAttempts)
}

// Email prompts for an email address with basic validation and reprompts
// on an invalid one.
func (r *Reader) Email(prompt string) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		input, err := r.Line(prompt)
		if err != nil {
			return "", err
		}

		// Basic email validation
		at := strings.Index(input, "@")
		if at <= 0 || !strings.Contains(input[at:], ".") {
			fmt.Fprintln(r.out, "Please enter a valid email address.")
			continue
		}

		return input, nil
	}
	return "", fmt.Errorf("no valid email address after %d attempts", maxAttempts)
}

// Password prompts for a password, hidden on a terminal.
func (r *Reader) Password(prompt string) (string, error) {
	fmt.Fprintf(r.out, "%s: ", prompt)

	if !r.tty {
		return r.readLine()
	}

	password, err := term.ReadPassword(r.fd)
	fmt.Fprintln(r.out) // Add newline after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// ConfirmPassword asks for password again, up to three times.
func (r *Reader) ConfirmPassword(prompt string, password string) error {
	for i := 0; i < maxAttempts; i++ {
		confirm, err := r.Password(prompt)
		if err != nil {
			return err
		}

		if confirm == password {
			return nil
		}

		if i < maxAttempts-1 {
			fmt.Fprintln(r.out, "Passwords do not match. Please try again.")
		}
	}

	return fmt.Errorf("password confirmation failed after %d attempts", maxAttempts)
}

// Bool asks a yes/no question. An empty answer returns def.
func (r *Reader) Bool(prompt string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}

	for {
		input, err := r.Line(fmt.Sprintf("%s [%s]", prompt, hint))
		if err != nil {
			return false, err
		}

		switch strings.ToLower(input) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(r.out, "Please answer y or n.")
	}
}

func (r *Reader) readLine() (string, error) {
	input, err := r.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(input), nil
}
