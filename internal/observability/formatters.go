// Package observability provides the boxed, human-readable output the CLI prints.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-tailor/internal/generation"
	"github.com/jonathan/resume-tailor/internal/selection"
	"github.com/jonathan/resume-tailor/internal/types"
	"github.com/jonathan/resume-tailor/internal/warmup"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// innerWidth is the text width inside a box
	innerWidth = boxWidth - 4
	// maxSkillsToShow caps the skills listed per candidate
	maxSkillsToShow = 6
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content. Long lines wrap.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", innerWidth, truncate(title, innerWidth))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		for _, wrapped := range wrap(line, innerWidth) {
			fmt.Fprintf(p.out, "│ %-*s │\n", innerWidth, wrapped)
		}
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintMessage prints a one-line box, used for notices and errors.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintMessage(message string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	for _, line := range wrap(message, innerWidth) {
		fmt.Fprintf(p.out, "│ %-*s │\n", innerWidth, line)
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintWarmup reports backend readiness.
func (p *Printer) PrintWarmup(state warmup.State) {
	switch {
	case state.Ready:
		p.PrintMessage(fmt.Sprintf("✅ Backend ready (%d attempt%s)", state.Attempts, plural(state.Attempts)))
	case state.Failed != nil:
		p.PrintMessage(fmt.Sprintf("❌ Backend did not become ready after %d attempts", state.Attempts))
	default:
		p.PrintMessage("⏳ Backend is starting up. This may take up to a minute...")
	}
}

// PrintSession shows who is signed in.
func (p *Printer) PrintSession(user *types.User) {
	if user == nil {
		p.PrintMessage("Not signed in.")
		return
	}
	p.printBox("SIGNED IN", fmt.Sprintf("Email:  %s\nUser:   %s", user.Email, user.ID))
}

// PrintMatches outputs the search results with their selection marks.
func (p *Printer) PrintMatches(state selection.State) {
	switch state.Phase {
	case selection.PhaseIdle:
		if state.Error != "" {
			p.PrintMessage("❌ " + state.Error)
		}
		return
	case selection.PhaseSearching:
		p.PrintMessage("🔍 Searching...")
		return
	}

	var sb strings.Builder
	if len(state.Candidates) == 0 {
		sb.WriteString("No matching experiences found.\n")
	}
	for i, c := range state.Candidates {
		mark := " "
		if state.IsSelected(c.ID) {
			mark = "x"
		}
		sb.WriteString(fmt.Sprintf("[%s] %d. %s  (%d%% match)\n", mark, i+1, c.Title, c.RelevancePercent()))
		sb.WriteString(fmt.Sprintf("    %s · %s · id %s\n", c.Type, c.DateLabel(), c.ID))
		if len(c.Skills) > 0 {
			sb.WriteString(fmt.Sprintf("    Skills: %s\n", joinLimited(c.Skills, maxSkillsToShow)))
		}
		if i < len(state.Candidates)-1 {
			sb.WriteString("\n")
		}
	}
	if state.Notice != "" {
		sb.WriteString("\n" + state.Notice + "\n")
	}
	sb.WriteString(fmt.Sprintf("\nSelected %d of %d", len(state.Selected), len(state.Candidates)))

	p.printBox("MATCHING EXPERIENCES", sb.String())
}

// PrintGeneration outputs generated bullets grouped by experience, with the
// copy key of each bullet and a mark on the one most recently copied.
func (p *Printer) PrintGeneration(state generation.State) {
	if state.Busy {
		p.PrintMessage("✍ Generating bullets...")
		return
	}
	if state.Error != "" {
		p.PrintMessage("❌ " + state.Error)
	}
	if len(state.Results) == 0 {
		return
	}

	var sb strings.Builder
	for g, group := range state.Results {
		sb.WriteString(group.Project + "\n")
		for b, bullet := range group.Bullets {
			key := generation.BulletKey(g, b)
			ack := ""
			if state.Copied == key {
				ack = "  ✓ copied"
			}
			sb.WriteString(fmt.Sprintf("  %-5s • %s%s\n", key, bullet, ack))
		}
		if g < len(state.Results)-1 {
			sb.WriteString("\n")
		}
	}
	if state.Copied == generation.CopyAllKey {
		sb.WriteString("\n✓ All bullets copied")
	}

	p.printBox("GENERATED BULLETS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintExperiences lists stored experiences.
func (p *Printer) PrintExperiences(exps []types.Experience) {
	if len(exps) == 0 {
		p.PrintMessage("No experiences yet. Add one with `experiences add` or `experiences import`.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total: %d\n\n", len(exps)))
	for i, e := range exps {
		date := "N/A"
		if e.DateRange != nil && *e.DateRange != "" {
			date = *e.DateRange
		}
		sb.WriteString(fmt.Sprintf("• %s (%s, %s)\n", e.Title, e.Type, date))
		sb.WriteString(fmt.Sprintf("  id %s\n", e.ID))
		if len(e.Skills) > 0 {
			sb.WriteString(fmt.Sprintf("  Skills: %s\n", joinLimited(e.Skills, maxSkillsToShow)))
		}
		if i < len(exps)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("EXPERIENCES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintParsed lists entries extracted from LinkedIn text before they are saved.
func (p *Printer) PrintParsed(parsed []types.ParsedExperience) {
	if len(parsed) == 0 {
		p.PrintMessage("No experiences found in the pasted text.")
		return
	}

	var sb strings.Builder
	for i, e := range parsed {
		sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, e.Title, e.Type))
		if e.Content != "" {
			sb.WriteString("   " + truncate(strings.ReplaceAll(e.Content, "\n", " "), innerWidth-3) + "\n")
		}
	}

	p.printBox(fmt.Sprintf("PARSED %d EXPERIENCE%s", len(parsed), strings.ToUpper(plural(len(parsed)))), strings.TrimSuffix(sb.String(), "\n"))
}

func joinLimited(items []string, limit int) string {
	if len(items) <= limit {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(items[:limit], ", "), len(items)-limit)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// wrap breaks a line at spaces so no piece exceeds width runes. Continuation
// lines keep the original indentation plus two spaces.
func wrap(line string, width int) []string {
	if len([]rune(line)) <= width {
		return []string{line}
	}

	indent := line[:len(line)-len(strings.TrimLeft(line, " "))]
	cont := indent + "  "
	var out []string
	current := indent
	for _, word := range strings.Fields(line) {
		candidate := current + word
		if current != indent && current != cont {
			candidate = current + " " + word
		}
		if len([]rune(candidate)) > width && current != indent && current != cont {
			out = append(out, current)
			current = cont + word
			continue
		}
		current = candidate
	}
	out = append(out, current)

	for i, l := range out {
		out[i] = truncate(l, width)
	}
	return out
}
