package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// interactive reports whether stdin is a terminal; prompts are only drawn then.
func interactive() bool {
	return isTerminal(int(os.Stdin.Fd()))
}

// GetSimpleText asks prompt on w and returns one trimmed line from reader.
// A final line without a newline is still accepted; io.EOF is returned only
// when nothing was typed.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprintf(w, "%s\n> ", prompt); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetNumber reads a decimal number. An empty answer yields def; anything
// that does not parse is asked again until EOF.
func GetNumber(reader *bufio.Reader, prompt string, def float64, w io.Writer) (float64, error) {
	for {
		s, err := GetSimpleText(reader, fmt.Sprintf("%s [%g]", prompt, def), w)
		if err != nil {
			return 0, err
		}
		if s == "" {
			return def, nil
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err == nil {
			return v, nil
		}
		fmt.Fprintf(w, "%q is not a number\n", s)
	}
}

// GetYesNo reads y/yes or n/no; an empty answer yields def.
func GetYesNo(reader *bufio.Reader, prompt string, def bool, w io.Writer) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		s, err := GetSimpleText(reader, fmt.Sprintf("%s [%s]", prompt, hint), w)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(s) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(w, "please answer y or n")
	}
}

// GetMultiline collects lines until a blank one or EOF and returns them
// joined by newlines. Used for free-form notes.
func GetMultiline(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprintf(w, "%s\n(blank line to finish)\n", prompt); err != nil {
		return "", err
	}

	var b strings.Builder
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(line)
		}
		if line == "" || err != nil {
			break
		}
	}
	return strings.TrimSpace(b.String()), nil
}
