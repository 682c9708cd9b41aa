package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-tailor/internal/apiclient"
	"github.com/jonathan/resume-tailor/internal/app"
	"github.com/jonathan/resume-tailor/internal/auth"
	"github.com/jonathan/resume-tailor/internal/config"
	"github.com/jonathan/resume-tailor/internal/fetch"
	"github.com/jonathan/resume-tailor/internal/ingestion"
	"github.com/jonathan/resume-tailor/internal/observability"
	"github.com/jonathan/resume-tailor/internal/types"
	"github.com/jonathan/resume-tailor/internal/warmup"
)

// appOptions are appended to every app the commands build. Tests use it to
// swap the identity provider, session store and clipboard.
var appOptions []app.Option

// userError carries a message meant for the terminal while keeping the cause for errors.Is.
type userError struct {
	msg   string
	cause error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.cause }

// friendly converts err into the message the browser client would show.
func friendly(err error, fallback string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return &userError{msg: authErr.UserMessage(), cause: err}
	}
	return &userError{msg: apiclient.UserMessage(err, fallback), cause: err}
}

func newLogger() *log.Logger {
	if verbose {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// newApp builds the client from configuration. Callers must Close it.
func newApp(cfg config.Config) *app.App {
	opts := []app.Option{
		app.WithLogger(newLogger()),
		app.WithRenderer(fetch.Chrome(fetch.DefaultRenderTimeout)),
	}
	return app.New(cfg, append(opts, appOptions...)...)
}

func printer(cmd *cobra.Command) *observability.Printer {
	return observability.NewPrinter(cmd.OutOrStdout())
}

// startSignedIn waits for the backend and the saved session, printing the
// cold-start notice once if the backend is still waking up.
func startSignedIn(cmd *cobra.Command) (*app.App, types.User, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, types.User{}, err
	}
	a := newApp(cfg)

	p := printer(cmd)
	var once sync.Once
	cancel := a.Gate.Subscribe(func(s warmup.State) {
		if s.Polling && !s.Ready {
			once.Do(func() { p.PrintWarmup(s) })
		}
	})
	defer cancel()

	if err := a.Start(cmd.Context()); err != nil {
		a.Close()
		return nil, types.User{}, err
	}

	user, err := a.RequireUser()
	if err != nil {
		a.Close()
		return nil, types.User{}, &userError{msg: "Please sign in first. Run `resume_tailor login`.", cause: err}
	}
	return a, user, nil
}

// loadJob reads a job description and cuts it to the backend's maximum length.
func loadJob(cmd *cobra.Command, a *app.App, source string) (string, error) {
	a.Loader.Stdin = cmd.InOrStdin()
	doc, err := a.Loader.Load(cmd.Context(), source)
	if errors.Is(err, ingestion.ErrEmptyDescription) {
		return "", &userError{msg: fmt.Sprintf("No job description text found in %s.", source), cause: err}
	}
	if err != nil {
		return "", err
	}
	text, cut := doc.Truncated(types.MaxQueryLength)
	if cut {
		cmd.PrintErrf("Note: job description truncated to %d characters\n", types.MaxQueryLength)
	}
	return text, nil
}
