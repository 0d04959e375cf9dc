package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

// palette decides whether status lines carry ANSI color. It is disabled for
// anything that is not a terminal.
type palette struct {
	enabled bool
}

func newPalette(w io.Writer) palette {
	file, ok := w.(*os.File)
	if !ok {
		return palette{}
	}
	fd := file.Fd()
	return palette{enabled: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)}
}

func (p palette) paint(kind statusKind, line string) string {
	if !p.enabled {
		return line
	}
	var color string
	switch kind {
	case statusOK:
		color = ansiGreen
	case statusWarn:
		color = ansiYellow
	case statusError:
		color = ansiRed
	case statusInfo:
		color = ansiBlue
	}
	if color == "" {
		return line
	}
	return color + line + ansiReset
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func renderStatusLine(label string, kind statusKind, detail string, pal palette) string {
	status := "[" + statusKindLabel(kind) + "]"
	if detail != "" {
		status += " " + detail
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", status)
	return pal.paint(kind, line)
}

func renderSectionHeader(title string, pal palette) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	return []string{pal.paint(statusInfo, line), pal.paint(statusInfo, rule)}
}
