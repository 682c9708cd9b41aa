package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-tailor/internal/app"
	"github.com/jonathan/resume-tailor/internal/generation"
	"github.com/jonathan/resume-tailor/internal/selection"
)

var (
	jobSource     string
	tailorExclude []string
	tailorOnly    []string
	tailorCopy    string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find the experiences that best match a job description",
	Long:  "Search your stored experiences for the best matches to a job description read from a file (.txt, .md, .pdf, .docx), a job posting URL, or stdin (-).",
	Args:  cobra.NoArgs,
	RunE:  runSearch,
}

var tailorCmd = &cobra.Command{
	Use:   "tailor",
	Short: "Search, adjust the selection, and generate resume bullets",
	Long: "Search your experiences for a job description, keep every match unless --only or --exclude say otherwise, " +
		"and generate resume bullets for the selection. --copy puts all bullets (all) or one bullet (group-bullet, e.g. 0-1) on the clipboard.",
	Args: cobra.NoArgs,
	RunE: runTailor,
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, tailorCmd} {
		c.Flags().StringVarP(&jobSource, "job", "j", "", "Job description file, URL, or - for stdin (required)")
		_ = c.MarkFlagRequired("job")
	}
	tailorCmd.Flags().StringSliceVar(&tailorExclude, "exclude", nil, "Experience id or result number to leave out (repeatable)")
	tailorCmd.Flags().StringSliceVar(&tailorOnly, "only", nil, "Use only these experience ids or result numbers (repeatable)")
	tailorCmd.Flags().StringVar(&tailorCopy, "copy", "", "Copy bullets to the clipboard: all, or group-bullet such as 0-1")
	tailorCmd.MarkFlagsMutuallyExclusive("exclude", "only")

	rootCmd.AddCommand(searchCmd, tailorCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	a, _, err := startSignedIn(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := search(cmd, a, jobSource); err != nil {
		return err
	}
	printer(cmd).PrintMatches(a.Selection.State())
	return nil
}

func runTailor(cmd *cobra.Command, _ []string) error {
	a, _, err := startSignedIn(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := search(cmd, a, jobSource); err != nil {
		return err
	}

	if len(tailorOnly) > 0 {
		a.Selection.SelectNone()
		for _, ref := range tailorOnly {
			id, err := resolveCandidate(a.Selection.State(), ref)
			if err != nil {
				return err
			}
			if !a.Selection.State().IsSelected(id) {
				a.Selection.Toggle(id)
			}
		}
	}
	for _, ref := range tailorExclude {
		id, err := resolveCandidate(a.Selection.State(), ref)
		if err != nil {
			return err
		}
		if a.Selection.State().IsSelected(id) {
			a.Selection.Toggle(id)
		}
	}

	p := printer(cmd)
	p.PrintMatches(a.Selection.State())
	if !a.Selection.CanGenerate() {
		return errors.New("no experiences selected; nothing to generate")
	}

	if err := a.GenerateSelected(cmd.Context()); err != nil {
		return friendly(err, "Failed to generate bullets")
	}

	if tailorCopy != "" {
		if err := copyBullets(a, tailorCopy); err != nil {
			return err
		}
	}
	p.PrintGeneration(a.Generation.State())
	return nil
}

// search loads the job description and runs the selection search.
func search(cmd *cobra.Command, a *app.App, source string) error {
	text, err := loadJob(cmd, a, source)
	if err != nil {
		return err
	}
	if err := a.Selection.Search(cmd.Context(), text); err != nil {
		if errors.Is(err, selection.ErrEmptyQuery) {
			return err
		}
		return friendly(err, "Failed to search experiences")
	}
	return nil
}

// resolveCandidate accepts an experience id or a 1-based result number.
func resolveCandidate(state selection.State, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	for _, c := range state.Candidates {
		if c.ID == ref {
			return c.ID, nil
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(state.Candidates) {
		return state.Candidates[n-1].ID, nil
	}
	return "", fmt.Errorf("no search result matches %q", ref)
}

// copyBullets copies "all" or a "group-bullet" key from the current results.
func copyBullets(a *app.App, key string) error {
	results := a.Generation.Results()
	if len(results) == 0 {
		return errors.New("nothing to copy yet; generate bullets first")
	}
	if key == generation.CopyAllKey {
		return a.Generation.CopyAllBullets(results)
	}

	var g, b int
	if _, err := fmt.Sscanf(key, "%d-%d", &g, &b); err != nil || generation.BulletKey(g, b) != key {
		return fmt.Errorf("invalid copy target %q: use all or group-bullet such as 0-1", key)
	}
	if g < 0 || g >= len(results) || b < 0 || b >= len(results[g].Bullets) {
		return fmt.Errorf("no bullet %s in the results", key)
	}
	return a.Generation.CopyBullet(results[g].Bullets[b], key)
}
