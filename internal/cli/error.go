package cli

import (
	"io"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
)

// usagePrefixes are the cobra and pflag messages that warrant a --help hint.
// Matching on strings is the only option until the errors are typed, see
// https://github.com/spf13/cobra/pull/2266.
var usagePrefixes = []string{
	"flag needs an argument:",
	"unknown flag:",
	"unknown shorthand flag:",
	"unknown command",
	"invalid argument",
}

// ErrorHandler renders run errors with the fang styles. Usage mistakes get
// an extra hint pointing at --help.
func ErrorHandler(w io.Writer, styles fang.Styles, err error) {
	var b strings.Builder

	b.WriteString(styles.ErrorHeader.String())
	b.WriteByte('\n')
	b.WriteString(lipgloss.NewStyle().MarginLeft(2).Render(err.Error()))
	b.WriteString("\n\n")

	if isUsageError(err) {
		b.WriteString(lipgloss.JoinHorizontal(
			lipgloss.Left,
			styles.ErrorText.UnsetWidth().Render("Try"),
			styles.Program.Flag.Render("--help"),
			styles.ErrorText.UnsetWidth().UnsetMargins().UnsetTransform().PaddingLeft(1).Render("for usage."),
		))
		b.WriteString("\n\n")
	}

	_, _ = io.WriteString(w, b.String())
}

func isUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range usagePrefixes {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}

	return false
}
