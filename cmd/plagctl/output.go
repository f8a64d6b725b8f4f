package main

import (
	"fmt"
	"os"
)

// ANSI SGR codes for the stderr status helpers. Human-facing chatter stays on
// stderr so stdout carries only pipeable data (ids, paths, file contents).
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// statusLine writes one marker-prefixed line, coloring only the marker so long
// messages stay readable on light terminals.
func statusLine(color, marker, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", colorize(color, marker), fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) {
	statusLine(colorGreen, "✔", format, args...)
}

func printError(format string, args ...any) {
	statusLine(colorRed, "✖", format, args...)
}

func printWarning(format string, args ...any) {
	statusLine(colorYellow, "!", format, args...)
}

func printStep(format string, args ...any) {
	statusLine(colorCyan, "›", format, args...)
}

// printStatus renders an indented "label: value" detail row under the
// preceding step or result line.
func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "    %s %s\n", colorize(colorDim, label+":"), val)
}
