package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/Gojibodev/keklauncher/pkg/preflight"
)

// progressPrinter renders batch progress. On a terminal the current line is
// redrawn in place; otherwise one line per finished item is printed.
type progressPrinter struct {
	out         io.Writer
	interactive bool
	width       int

	mu      sync.Mutex
	current string
}

func newProgressPrinter(out *os.File, quiet bool) *progressPrinter {
	fd := int(out.Fd())
	interactive := !quiet && term.IsTerminal(fd)
	width := 80
	if interactive {
		if w, _, err := term.GetSize(fd); err == nil && w > 20 {
			width = w
		}
	}
	return &progressPrinter{out: out, interactive: interactive, width: width}
}

func (p *progressPrinter) line(s string) {
	if len(s) > p.width-1 {
		s = s[:p.width-1]
	}
	fmt.Fprintf(p.out, "\r%s%s", s, strings.Repeat(" ", p.width-1-len(s)))
}

func (p *progressPrinter) ItemProgress(filename string, downloaded, total int64, percent float64) {
	if !p.interactive {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = filename
	if total > 0 {
		p.line(fmt.Sprintf("%s %5.1f%% (%s / %s)", filename, percent,
			preflight.HumanBytes(uint64(downloaded)), preflight.HumanBytes(uint64(total))))
		return
	}
	p.line(fmt.Sprintf("%s %s", filename, preflight.HumanBytes(uint64(downloaded))))
}

func (p *progressPrinter) OverallProgress(completed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.interactive {
		p.line(fmt.Sprintf("[%d/%d] %s", completed, total, p.current))
		if completed == total {
			fmt.Fprintln(p.out)
		}
		return
	}
	fmt.Fprintf(p.out, "[%d/%d]\n", completed, total)
}
