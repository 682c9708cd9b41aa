package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-tailor/internal/app"
	"github.com/jonathan/resume-tailor/internal/observability"
)

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"i"},
	Short:   "Search, pick experiences and generate bullets in a prompt loop",
	Args:    cobra.NoArgs,
	RunE:    runInteractive,
}

const interactiveHelp = `Commands:
  toggle <n|id>...   select or deselect results
  all | none         select every result or none
  generate           generate bullets for the selection
  copy <all|g-b>     copy all bullets, or one such as 0-1
  search [source]    search again, optionally with a new job description
  show               print the current state
  help               show this help
  quit               exit`

func init() {
	interactiveCmd.Flags().StringVarP(&jobSource, "job", "j", "", "Job description file or URL to search right away")
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	a, user, err := startSignedIn(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	p := printer(cmd)
	_, _ = fmt.Fprintf(out, "Signed in as %s. Type help for commands.\n", user.Email)

	if jobSource != "" && jobSource != "-" {
		if err := search(cmd, a, jobSource); err != nil {
			_, _ = fmt.Fprintf(out, "%v\n", err)
		}
		p.PrintMatches(a.Selection.State())
	}

	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		_, _ = fmt.Fprint(out, "> ")
		if !in.Scan() {
			break
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		quit, err := dispatch(cmd, a, p, out, fields[0], fields[1:])
		if err != nil {
			_, _ = fmt.Fprintf(out, "%v\n", err)
		}
		if quit {
			return nil
		}
	}
	if err := in.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

// dispatch runs one REPL command and renders the state it changed.
func dispatch(cmd *cobra.Command, a *app.App, p *observability.Printer, out io.Writer, verb string, args []string) (bool, error) {
	switch strings.ToLower(verb) {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		_, _ = fmt.Fprintln(out, interactiveHelp)
	case "show":
		p.PrintMatches(a.Selection.State())
		p.PrintGeneration(a.Generation.State())
	case "toggle", "t":
		if len(args) == 0 {
			return false, errors.New("usage: toggle <n|id>...")
		}
		for _, ref := range args {
			id, err := resolveCandidate(a.Selection.State(), ref)
			if err != nil {
				return false, err
			}
			a.Selection.Toggle(id)
		}
		p.PrintMatches(a.Selection.State())
	case "all":
		a.Selection.SelectAll()
		p.PrintMatches(a.Selection.State())
	case "none":
		a.Selection.SelectNone()
		p.PrintMatches(a.Selection.State())
	case "search", "s":
		source := a.Selection.Query()
		if len(args) > 0 {
			source = strings.Join(args, " ")
			if err := search(cmd, a, source); err != nil {
				return false, err
			}
		} else {
			if source == "" {
				return false, errors.New("usage: search <file|url>")
			}
			if err := a.Selection.Search(cmd.Context(), source); err != nil {
				return false, friendly(err, "Failed to search experiences")
			}
		}
		p.PrintMatches(a.Selection.State())
	case "generate", "g":
		if !a.Selection.CanGenerate() {
			return false, errors.New("select at least one experience first")
		}
		err := a.GenerateSelected(cmd.Context())
		state := a.Generation.State()
		p.PrintGeneration(state)
		// The printed state already shows backend failures.
		if err != nil && state.Error == "" {
			return false, friendly(err, "Failed to generate bullets")
		}
	case "copy", "c":
		if len(args) != 1 {
			return false, errors.New("usage: copy <all|g-b>")
		}
		if err := copyBullets(a, args[0]); err != nil {
			return false, err
		}
		p.PrintGeneration(a.Generation.State())
	default:
		return false, fmt.Errorf("unknown command %q; type help", verb)
	}
	return false, nil
}
