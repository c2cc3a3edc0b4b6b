package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// normalizePane forces s to exactly width columns (ANSI-aware) and, when height > 0,
// exactly height lines.
func normalizePane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}

	for i, ln := range lines {
		w := xansi.StringWidth(ln)
		if w > width {
			switch {
			case width <= 0:
				ln = ""
			case width == 1:
				ln = xansi.Cut(ln, 0, 1)
			default:
				ln = xansi.Cut(ln, 0, width-1) + "…"
			}
			w = xansi.StringWidth(ln)
		}
		if w < width {
			ln += strings.Repeat(" ", width-w)
		}
		lines[i] = ln
	}
	return strings.Join(lines, "\n")
}

func truncateText(s string, maxW int) string {
	if xansi.StringWidth(s) <= maxW {
		return s
	}
	if maxW <= 1 {
		return xansi.Cut(s, 0, maxW)
	}
	return xansi.Cut(s, 0, maxW-1) + "…"
}

// wrapWords word-wraps plain text to maxW columns. The first line gets firstPrefix, the
// rest contPrefix; words wider than a line are hard-cut.
func wrapWords(s string, maxW int, firstPrefix, contPrefix string) []string {
	if maxW <= 0 {
		return []string{""}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{firstPrefix}
	}
	firstAvail := max(maxW-xansi.StringWidth(firstPrefix), 1)
	contAvail := max(maxW-xansi.StringWidth(contPrefix), 1)

	var lines []string
	prefix, avail := firstPrefix, firstAvail
	cur, curW := "", 0
	flush := func() {
		lines = append(lines, prefix+cur)
		prefix, avail = contPrefix, contAvail
		cur, curW = "", 0
	}
	place := func(w string) {
		rest := w
		for xansi.StringWidth(rest) > avail {
			lines = append(lines, prefix+xansi.Cut(rest, 0, avail))
			rest = xansi.Cut(rest, avail, xansi.StringWidth(rest))
			prefix, avail = contPrefix, contAvail
		}
		cur, curW = rest, xansi.StringWidth(rest)
	}

	for _, w := range strings.Fields(s) {
		wordW := xansi.StringWidth(w)
		switch {
		case cur == "":
			place(w)
		case curW+1+wordW <= avail:
			cur += " " + w
			curW += 1 + wordW
		default:
			flush()
			place(w)
		}
	}
	if cur != "" || len(lines) == 0 {
		lines = append(lines, prefix+cur)
	}
	return lines
}
