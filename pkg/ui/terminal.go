package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔══════════════════════════════════════════════╗
    ║   S C R A P E G U A R D                      ║
    ║   AES > 3DES > BLOWFISH  x8  ADMIN CODE GATE ║
    ╚══════════════════════════════════════════════╝
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

var (
	mu      sync.Mutex
	out     io.Writer = os.Stdout
	errOut  io.Writer = os.Stderr
	quiet   bool
	noColor bool
)

// SetOutput redirects normal and error output. A nil writer restores the
// process stream.
func SetOutput(stdout, stderr io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	out = stdout
	errOut = stderr
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// SetNoColor disables ANSI colors
func SetNoColor(n bool) {
	mu.Lock()
	defer mu.Unlock()
	noColor = n
}

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		mu.Lock()
		plain := noColor
		mu.Unlock()
		if plain {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// writeMu keeps lines from concurrent callers whole
var writeMu sync.Mutex

func emit(w func() io.Writer, always bool, s string) {
	mu.Lock()
	skip := quiet && !always
	mu.Unlock()
	if skip {
		return
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	fmt.Fprint(w(), s)
}

func stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

func stderr() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return errOut
}

// withDetail appends the first arg to msg, if any
func withDetail(msg string, args []interface{}) string {
	if len(args) > 0 && fmt.Sprintf("%v", args[0]) != "" {
		return msg + ": " + fmt.Sprintf("%v", args[0])
	}
	return msg
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	emit(stderr, false, Cyan(ASCIILogo))
}

// PrintError prints an error message in red. Errors are shown in quiet mode.
func PrintError(msg string, args ...interface{}) {
	emit(stderr, true, Red(withDetail(msg, args))+"\n")
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	emit(stdout, false, Green(msg)+"\n")
}

// PrintInfo prints an info message in cyan
func PrintInfo(label string, value string) {
	emit(stdout, false, fmt.Sprintf("%s: %s\n", Cyan(label), Yellow(value)))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	emit(stdout, false, Yellow(withDetail(msg, args))+"\n")
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	emit(stdout, false, Magenta(msg)+"\n")
}

// Println prints plain text, honouring quiet mode
func Println(a ...interface{}) {
	emit(stdout, false, fmt.Sprintln(a...))
}

// Printf prints formatted plain text, honouring quiet mode
func Printf(format string, a ...interface{}) {
	emit(stdout, false, fmt.Sprintf(format, a...))
}
