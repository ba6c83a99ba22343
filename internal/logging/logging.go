package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	ColorBlue   = "\033[1;34m"
	ColorGreen  = "\033[1;36m"
	ColorYellow = "\033[1;33m"
	ColorRed    = "\033[1;31m"
	ColorReset  = "\033[0m"

	ColorSuccess  = ColorGreen
	ColorWarning  = ColorYellow
	ColorProgress = ColorBlue
	ColorError    = ColorRed
	ColorFailure  = ColorRed
)

// Output receives every user-facing message.
var Output io.Writer = os.Stdout

// NoColor disables ANSI colors, set from NO_COLOR or when stdout is redirected.
var NoColor = os.Getenv("NO_COLOR") != ""

func Colorize(color, text string) string {
	if NoColor || color == "" {
		return text
	}
	return strings.Join([]string{color, text, ColorReset}, "")
}

func userMessage(color, prefix, msg string, format ...interface{}) {
	msg = fmt.Sprintf(prefix+msg, format...)
	_, _ = fmt.Fprintln(Output, Colorize(color, msg))
}

// UserSuccess prints a colorized success message
func UserSuccess(msg string, format ...interface{}) {
	userMessage(ColorSuccess, "", msg, format...)
}

// UserInfo prints a plain message
func UserInfo(msg string, format ...interface{}) {
	userMessage("", "", msg, format...)
}

// UserWarning prints a colorized warning message
func UserWarning(msg string, format ...interface{}) {
	userMessage(ColorWarning, "WARNING: ", msg, format...)
}

// UserProgress prints a colorized progress message
func UserProgress(msg string, format ...interface{}) {
	userMessage(ColorProgress, "", msg, format...)
}

// UserFailure prints a colorized failure message
func UserFailure(msg string, format ...interface{}) {
	userMessage(ColorFailure, "ERROR: ", msg, format...)
}

// UserError prints a colorized error message and terminates with a non-zero exit code
func UserError(msg string, format ...interface{}) {
	userMessage(ColorError, "ERROR: ", msg, format...)
	os.Exit(2)
}
