package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-tailor/internal/experience"
	"github.com/jonathan/resume-tailor/internal/types"
)

var (
	addTitle       string
	addType        string
	addDateRange   string
	addSkills      []string
	addTags        []string
	addIndustry    []string
	addContent     string
	addContentFile string

	linkedInExperiences  string
	linkedInProjects     string
	linkedInVolunteering string
	linkedInSave         bool
)

var experiencesCmd = &cobra.Command{
	Use:     "experiences",
	Aliases: []string{"exp"},
	Short:   "Manage the experiences searches draw from",
}

var experiencesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your stored experiences",
	Args:  cobra.NoArgs,
	RunE:  runExperiencesList,
}

var experiencesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add one experience",
	Args:  cobra.NoArgs,
	RunE:  runExperiencesAdd,
}

var experiencesDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete experiences by id",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExperiencesDelete,
}

var experiencesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import experiences from a JSON or YAML file",
	Long: "Import experiences from a JSON or YAML file holding either a list of experiences or an object with an " +
		"\"experiences\" list. Records are checked against the import schema and normalized before upload.",
	Args: cobra.ExactArgs(1),
	RunE: runExperiencesImport,
}

var experiencesLinkedInCmd = &cobra.Command{
	Use:   "linkedin",
	Short: "Turn pasted LinkedIn sections into experiences",
	Long:  "Parse text copied from LinkedIn profile sections. Each flag takes a file, or - for stdin. --save stores the parsed experiences.",
	Args:  cobra.NoArgs,
	RunE:  runExperiencesLinkedIn,
}

func init() {
	f := experiencesAddCmd.Flags()
	f.StringVar(&addTitle, "title", "", "Title (required)")
	f.StringVar(&addType, "type", "project", "Type: work, project or volunteering")
	f.StringVar(&addDateRange, "date-range", "", "Date range, e.g. \"2021 - 2023\"")
	f.StringSliceVar(&addSkills, "skills", nil, "Skills (comma separated or repeated)")
	f.StringSliceVar(&addTags, "tags", nil, "Tags (comma separated or repeated)")
	f.StringSliceVar(&addIndustry, "industry", nil, "Industries (comma separated or repeated)")
	f.StringVar(&addContent, "content", "", "Description of the work")
	f.StringVar(&addContentFile, "content-file", "", "Read the description from a file, or - for stdin")
	_ = experiencesAddCmd.MarkFlagRequired("title")
	experiencesAddCmd.MarkFlagsOneRequired("content", "content-file")
	experiencesAddCmd.MarkFlagsMutuallyExclusive("content", "content-file")

	l := experiencesLinkedInCmd.Flags()
	l.StringVar(&linkedInExperiences, "experiences", "", "File with the Experience section")
	l.StringVar(&linkedInProjects, "projects", "", "File with the Projects section")
	l.StringVar(&linkedInVolunteering, "volunteering", "", "File with the Volunteering section")
	l.BoolVar(&linkedInSave, "save", false, "Store the parsed experiences")
	experiencesLinkedInCmd.MarkFlagsOneRequired("experiences", "projects", "volunteering")

	experiencesCmd.AddCommand(experiencesListCmd, experiencesAddCmd, experiencesDeleteCmd,
		experiencesImportCmd, experiencesLinkedInCmd)
	rootCmd.AddCommand(experiencesCmd)
}

func runExperiencesList(cmd *cobra.Command, _ []string) error {
	a, _, err := startSignedIn(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	exps, err := a.Experiences.List(cmd.Context())
	if err != nil {
		return friendly(err, "Failed to load experiences")
	}
	printer(cmd).PrintExperiences(exps)
	return nil
}

func runExperiencesAdd(cmd *cobra.Command, _ []string) error {
	content := addContent
	if addContentFile != "" {
		b, err := readSource(cmd, addContentFile)
		if err != nil {
			return err
		}
		content = b
	}
	exp := types.Experience{
		Type:     addType,
		Title:    addTitle,
		Skills:   addSkills,
		Industry: addIndustry,
		Tags:     addTags,
		Content:  content,
	}
	if addDateRange != "" {
		exp.DateRange = &addDateRange
	}
	// Fail before any network work.
	check := exp
	if err := experience.Normalize(&check); err != nil {
		return err
	}

	a, _, err := startSignedIn(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	saved, err := a.Experiences.Create(cmd.Context(), exp)
	if err != nil {
		return friendly(err, "Failed to save experience")
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added %q (id %s).\n", saved.Title, saved.ID)
	return nil
}

func runExperiencesDelete(cmd *cobra.Command, args []string) error {
	a, _, err := startSignedIn(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, id := range args {
		if err := a.Experiences.Delete(cmd.Context(), id); err != nil {
			return friendly(err, "Failed to delete experience")
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", id)
	}
	return nil
}

func runExperiencesImport(cmd *cobra.Command, args []string) error {
	exps, err := experience.LoadFile(args[0])
	if err != nil {
		return err
	}

	a, _, err := startSignedIn(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	saved, err := a.Experiences.CreateBatch(cmd.Context(), exps)
	if err != nil {
		if saved > 0 {
			cmd.PrintErrf("Imported %d of %d experiences before the failure.\n", saved, len(exps))
		}
		return friendly(err, "Failed to import experiences")
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d experience%s.\n", saved, pluralS(saved))
	return nil
}

func runExperiencesLinkedIn(cmd *cobra.Command, _ []string) error {
	var req types.LinkedInParseRequest
	var err error
	if req.ExperiencesText, err = readOptional(cmd, linkedInExperiences); err != nil {
		return err
	}
	if req.ProjectsText, err = readOptional(cmd, linkedInProjects); err != nil {
		return err
	}
	if req.VolunteeringText, err = readOptional(cmd, linkedInVolunteering); err != nil {
		return err
	}
	if req.Empty() {
		return experience.ErrNothingToParse
	}

	a, _, err := startSignedIn(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	parsed, err := a.Experiences.ParseLinkedIn(cmd.Context(), req)
	if err != nil {
		return friendly(err, "Failed to parse LinkedIn data")
	}
	printer(cmd).PrintParsed(parsed)
	if !linkedInSave || len(parsed) == 0 {
		return nil
	}

	exps, err := experience.FromParsed(parsed)
	if err != nil {
		return err
	}
	saved, err := a.Experiences.CreateBatch(cmd.Context(), exps)
	if err != nil {
		return friendly(err, "Failed to save experiences")
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %d experience%s.\n", saved, pluralS(saved))
	return nil
}

// readSource reads a file, or stdin for "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

func readOptional(cmd *cobra.Command, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	text, err := readSource(cmd, path)
	return strings.TrimSpace(text), err
}

func pluralS(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
