package experience

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonathan/resume-tailor/internal/apiclient"
	"github.com/jonathan/resume-tailor/internal/types"
)

// BatchSize is the most experiences the batch endpoint accepts per request.
const BatchSize = 25

// Fetcher is the authenticated request capability the manager needs.
// *apiclient.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, method, path string, body any, header http.Header) (*http.Response, error)
	BaseURL() string
}

// Manager performs experience CRUD against the backend.
type Manager struct {
	client Fetcher
	logger *log.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager over the given client.
func NewManager(client Fetcher, opts ...ManagerOption) *Manager {
	m := &Manager{
		client: client,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// List returns every stored experience.
func (m *Manager) List(ctx context.Context) ([]types.Experience, error) {
	var list types.ExperienceList
	if err := m.do(ctx, http.MethodGet, "/api/experiences", nil, &list); err != nil {
		return nil, err
	}
	if list.Experiences == nil {
		list.Experiences = []types.Experience{}
	}
	return list.Experiences, nil
}

// Create normalizes and stores one experience, assigning an id when it has none.
func (m *Manager) Create(ctx context.Context, exp types.Experience) (*types.Experience, error) {
	if err := Normalize(&exp); err != nil {
		return nil, err
	}

	var resp types.MutationResponse
	if err := m.do(ctx, http.MethodPost, "/api/experiences", exp, &resp); err != nil {
		return nil, err
	}
	if resp.ID != "" {
		exp.ID = resp.ID
	}
	m.logger.Printf("[experiences] created %s", exp.ID)
	return &exp, nil
}

// CreateBatch stores experiences in chunks of BatchSize and returns how many
// were saved. A failing chunk stops the import; earlier chunks stay saved.
func (m *Manager) CreateBatch(ctx context.Context, exps []types.Experience) (int, error) {
	if err := NormalizeAll(exps); err != nil {
		return 0, err
	}

	saved := 0
	for start := 0; start < len(exps); start += BatchSize {
		end := min(start+BatchSize, len(exps))
		req := types.BatchExperienceRequest{Experiences: exps[start:end]}
		if err := req.Validate(); err != nil {
			return saved, fmt.Errorf("invalid batch request: %w", err)
		}

		var resp types.MutationResponse
		if err := m.do(ctx, http.MethodPost, "/api/experiences/batch", req, &resp); err != nil {
			return saved, err
		}
		count := resp.Count
		if count == 0 {
			count = end - start
		}
		saved += count
		m.logger.Printf("[experiences] batch saved %d (%d/%d)", count, end, len(exps))
	}
	return saved, nil
}

// Update replaces the stored experience with the same id.
func (m *Manager) Update(ctx context.Context, exp types.Experience) error {
	if strings.TrimSpace(exp.ID) == "" {
		return &NormalizationError{Message: "cannot update an experience without an id"}
	}
	if err := Normalize(&exp); err != nil {
		return err
	}
	return m.do(ctx, http.MethodPut, "/api/experiences/"+url.PathEscape(exp.ID), exp, nil)
}

// Delete removes an experience by id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &NormalizationError{Message: "cannot delete an experience without an id"}
	}
	if err := m.do(ctx, http.MethodDelete, "/api/experiences/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}
	m.logger.Printf("[experiences] deleted %s", id)
	return nil
}

// ParseLinkedIn sends pasted LinkedIn profile sections to the backend parser.
// The returned entries have no ids; pass them through FromParsed before saving.
func (m *Manager) ParseLinkedIn(ctx context.Context, req types.LinkedInParseRequest) ([]types.ParsedExperience, error) {
	if req.Empty() {
		return nil, ErrNothingToParse
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parse request: %w", err)
	}

	var resp types.LinkedInParseResponse
	if err := m.do(ctx, http.MethodPost, "/api/parse-linkedin", req, &resp); err != nil {
		return nil, err
	}
	return resp.Experiences, nil
}

func (m *Manager) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := m.client.Fetch(ctx, method, m.client.BaseURL()+path, body, nil)
	if err != nil {
		return err
	}
	if err := apiclient.CheckResponse(resp); err != nil {
		_ = resp.Body.Close()
		return err
	}
	if out == nil {
		_ = resp.Body.Close()
		return nil
	}
	return apiclient.DecodeJSON(resp, out)
}
