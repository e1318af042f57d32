package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"testing"
	"time"

	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/internal/leads/query"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/internal/leads/transport"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) List(ctx context.Context, params repository.ListParams) ([]domain.Lead, int, error) {
	args := m.Called(ctx, params)
	leads, _ := args.Get(0).([]domain.Lead)
	return leads, args.Int(1), args.Error(2)
}

func (m *mockRepo) Export(ctx context.Context, params repository.ExportParams) (repository.Cursor, error) {
	args := m.Called(ctx, params)
	cursor, _ := args.Get(0).(repository.Cursor)
	return cursor, args.Error(1)
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Lead), args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, id uuid.UUID, fields domain.Fields) (domain.Lead, error) {
	args := m.Called(ctx, id, fields)
	return args.Get(0).(domain.Lead), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, id uuid.UUID, fields domain.Fields) (domain.Lead, error) {
	args := m.Called(ctx, id, fields)
	return args.Get(0).(domain.Lead), args.Error(1)
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) BulkDelete(ctx context.Context, ids []uuid.UUID) (int, error) {
	args := m.Called(ctx, ids)
	return args.Int(0), args.Error(1)
}

// sliceCursor serves leads from memory and stops once its own limit is hit,
// like the LIMIT clause of the real query.
type sliceCursor struct {
	leads  []domain.Lead
	pos    int
	err    error
	closed bool
}

func (c *sliceCursor) Next() bool {
	if c.pos >= len(c.leads) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Lead() domain.Lead { return c.leads[c.pos-1] }
func (c *sliceCursor) Err() error        { return c.err }
func (c *sliceCursor) Close()            { c.closed = true }

type recordingArchiver struct {
	name string
	body []byte
	err  error
}

func (a *recordingArchiver) Archive(_ context.Context, name, _ string, body []byte) error {
	a.name = name
	a.body = append([]byte(nil), body...)
	return a.err
}

func newTestService(repo Repository, exportLimit int) *Service {
	log := logger.Wrap(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return New(repo, query.MustSortBuilder(repository.SortColumns), log, exportLimit)
}

func makeLeads(n int) []domain.Lead {
	now := time.Now().UTC()
	leads := make([]domain.Lead, n)
	for i := range leads {
		leads[i] = domain.Lead{
			ID:          uuid.New(),
			Name:        "Lead",
			Email:       uuid.NewString() + "@example.com",
			CompanyName: "Acme",
			Stage:       domain.StageNew,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return leads
}

func assertKind(t *testing.T, err error, kind apperr.Kind, status int) *apperr.Error {
	t.Helper()
	domainErr, ok := apperr.AsError(err)
	require.True(t, ok, "expected *apperr.Error, got %T", err)
	assert.Equal(t, kind, domainErr.Kind)
	assert.Equal(t, status, domainErr.HTTPStatus())
	return domainErr
}

func TestListComputesPagination(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)

	repo.On("List", mock.Anything, mock.MatchedBy(func(p repository.ListParams) bool {
		return p.Limit == 10 && p.Offset == 20 && p.Search == "acme" && len(p.Sort) == 1
	})).Return(makeLeads(5), 25, nil)

	resp, err := svc.List(context.Background(), transport.ListLeadsRequest{Page: 3, PageSize: 10, Query: "acme"})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.CurrentPage)
	assert.Equal(t, 10, resp.PageSize)
	assert.Equal(t, 25, resp.TotalRecords)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Len(t, resp.Data, 5)
	repo.AssertExpectations(t)
}

func TestListPastLastPageReturnsEmptyData(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	repo.On("List", mock.Anything, mock.Anything).Return([]domain.Lead{}, 25, nil)

	resp, err := svc.List(context.Background(), transport.ListLeadsRequest{Page: 9, PageSize: 10})
	require.NoError(t, err)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
	assert.Equal(t, 3, resp.TotalPages)
}

func TestListHugePageReturnsEmptyData(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	repo.On("List", mock.Anything, mock.MatchedBy(func(p repository.ListParams) bool {
		return p.Offset >= 0 && p.Limit == 10
	})).Return([]domain.Lead{}, 25, nil)

	resp, err := svc.List(context.Background(), transport.ListLeadsRequest{Page: math.MaxInt, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, resp.CurrentPage)
	assert.Equal(t, 25, resp.TotalRecords)
	assert.Empty(t, resp.Data)
	repo.AssertExpectations(t)
}

func TestListRejectsInvalidSortBeforeStorage(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)

	_, err := svc.List(context.Background(), transport.ListLeadsRequest{Page: 1, PageSize: 10, SortBy: "bogus"})
	domainErr := assertKind(t, err, apperr.KindValidation, http.StatusBadRequest)
	assert.Contains(t, domainErr.Message, "bogus")
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestListHidesStorageErrors(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	repo.On("List", mock.Anything, mock.Anything).Return(nil, 0, errors.New("dial tcp: connection refused"))

	_, err := svc.List(context.Background(), transport.ListLeadsRequest{Page: 1, PageSize: 10})
	domainErr := assertKind(t, err, apperr.KindInternal, http.StatusInternalServerError)
	assert.Equal(t, "Could not list the leads. Please try again later.", domainErr.Message)
	assert.NotContains(t, domainErr.Message, "connection refused")
}

func TestGetByIDNotFound(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(domain.Lead{}, repository.ErrNotFound)

	_, err := svc.GetByID(context.Background(), id)
	domainErr := assertKind(t, err, apperr.KindNotFound, http.StatusNotFound)
	assert.Equal(t, "Lead not found", domainErr.Message)
}

func TestCreateNormalizesBeforePersisting(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)

	expected := domain.Fields{Name: "Ada", Email: "ada@example.com", CompanyName: "Engines", Stage: domain.StageNew}
	repo.On("Create", mock.Anything, mock.AnythingOfType("uuid.UUID"), expected).
		Return(domain.Lead{ID: uuid.New(), Name: "Ada", Email: "ada@example.com", CompanyName: "Engines", Stage: domain.StageNew}, nil)

	resp, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		Name:        "  Ada ",
		Email:       " ADA@Example.com",
		CompanyName: "Engines  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.Email)
	assert.Equal(t, domain.StageNew, resp.Stage)
	repo.AssertExpectations(t)
}

func TestCreateDuplicateEmailIsConflict(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)

	repo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(f domain.Fields) bool {
		return f.Email == "a@x.com"
	})).Return(domain.Lead{ID: uuid.New(), Email: "a@x.com"}, nil).Once()
	repo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(f domain.Fields) bool {
		return f.Email == "a@x.com"
	})).Return(domain.Lead{}, repository.ErrDuplicateEmail).Once()

	_, err := svc.Create(context.Background(), transport.CreateLeadRequest{Name: "A", Email: "A@x.com", CompanyName: "X"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), transport.CreateLeadRequest{Name: "B", Email: "a@x.com", CompanyName: "Y"})
	domainErr := assertKind(t, err, apperr.KindValidation, http.StatusConflict)
	assert.Equal(t, "A lead with this email already exists", domainErr.Message)
}

func TestCreateRejectsBlankFieldsWithoutStorage(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)

	_, err := svc.Create(context.Background(), transport.CreateLeadRequest{Name: "   ", Email: "a@b.co", CompanyName: "X"})
	assertKind(t, err, apperr.KindValidation, http.StatusBadRequest)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateStorageFailureIsInternal(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	repo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(domain.Lead{}, errors.New("deadlock detected"))

	_, err := svc.Create(context.Background(), transport.CreateLeadRequest{Name: "A", Email: "a@b.co", CompanyName: "X"})
	domainErr := assertKind(t, err, apperr.KindInternal, http.StatusInternalServerError)
	assert.Equal(t, "Could not create the lead. Please try again later.", domainErr.Message)
}

func TestUpdateMissingLeadIsNotFound(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	id := uuid.New()
	repo.On("Update", mock.Anything, id, mock.Anything).Return(domain.Lead{}, repository.ErrNotFound)

	_, err := svc.Update(context.Background(), id, transport.UpdateLeadRequest{Name: "A", Email: "a@b.co", CompanyName: "X"})
	assertKind(t, err, apperr.KindNotFound, http.StatusNotFound)
}

func TestUpdateDuplicateEmailIsConflict(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	repo.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(domain.Lead{}, repository.ErrDuplicateEmail)

	_, err := svc.Update(context.Background(), uuid.New(), transport.UpdateLeadRequest{Name: "A", Email: "a@b.co", CompanyName: "X"})
	assertKind(t, err, apperr.KindValidation, http.StatusConflict)
}

func TestUpdateReturnsStoredLead(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	id := uuid.New()
	before := time.Now().UTC().Add(-time.Hour)
	after := before.Add(time.Hour)

	repo.On("Update", mock.Anything, id, mock.MatchedBy(func(f domain.Fields) bool {
		return f.Stage == domain.StageContacted && f.IsEngaged
	})).Return(domain.Lead{ID: id, Stage: domain.StageContacted, IsEngaged: true, CreatedAt: before, UpdatedAt: after}, nil)

	resp, err := svc.Update(context.Background(), id, transport.UpdateLeadRequest{
		Name: "A", Email: "a@b.co", CompanyName: "X", Stage: domain.StageContacted, IsEngaged: true,
	})
	require.NoError(t, err)
	assert.True(t, resp.UpdatedAt.After(resp.CreatedAt))
}

func TestDelete(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	present, missing := uuid.New(), uuid.New()
	repo.On("Delete", mock.Anything, present).Return(nil)
	repo.On("Delete", mock.Anything, missing).Return(repository.ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), present))
	assertKind(t, svc.Delete(context.Background(), missing), apperr.KindNotFound, http.StatusNotFound)
}

func TestBulkDeleteEmptyIDsNeverTouchesStorage(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)

	_, err := svc.BulkDelete(context.Background(), transport.BulkDeleteRequest{})
	domainErr := assertKind(t, err, apperr.KindValidation, http.StatusBadRequest)
	assert.Equal(t, "No lead ids provided", domainErr.Message)
	repo.AssertNotCalled(t, "BulkDelete", mock.Anything, mock.Anything)
}

func TestBulkDeleteIgnoresUnknownIDs(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	repo.On("BulkDelete", mock.Anything, ids).Return(1, nil)

	deleted, err := svc.BulkDelete(context.Background(), transport.BulkDeleteRequest{IDs: ids})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestBulkDeleteFailureIsInternal(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	repo.On("BulkDelete", mock.Anything, mock.Anything).Return(0, errors.New("tx aborted"))

	_, err := svc.BulkDelete(context.Background(), transport.BulkDeleteRequest{IDs: []uuid.UUID{uuid.New()}})
	domainErr := assertKind(t, err, apperr.KindInternal, http.StatusInternalServerError)
	assert.Equal(t, "Could not delete the leads. Please try again later.", domainErr.Message)
}

func TestExportCapsRowsSilently(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	cursor := &sliceCursor{leads: makeLeads(15000)}
	repo.On("Export", mock.Anything, mock.MatchedBy(func(p repository.ExportParams) bool {
		return p.Limit == ExportLimit
	})).Return(cursor, nil)

	exp, err := svc.Export(context.Background(), transport.ExportRequest{})
	require.NoError(t, err)
	assert.Equal(t, "sales_leads.csv", exp.Filename())

	var buf bytes.Buffer
	rows, err := exp.WriteTo(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, ExportLimit, rows)
	assert.True(t, cursor.closed)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, ExportLimit+1)
	assert.Equal(t, []string{"ID", "Name", "Email", "Company", "Stage", "Engaged", "Last Contacted"}, records[0])
}

func TestNewClampsExportLimit(t *testing.T) {
	assert.Equal(t, ExportLimit, newTestService(&mockRepo{}, 50000).exportLimit)
	assert.Equal(t, 100, newTestService(&mockRepo{}, 100).exportLimit)
}

func TestExportQueryFailureIsInternal(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	repo.On("Export", mock.Anything, mock.Anything).Return(nil, errors.New("relation does not exist"))

	_, err := svc.Export(context.Background(), transport.ExportRequest{})
	domainErr := assertKind(t, err, apperr.KindInternal, http.StatusInternalServerError)
	assert.Equal(t, "Could not export the leads. Please try again later.", domainErr.Message)
}

func TestExportInvalidSort(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)

	_, err := svc.Export(context.Background(), transport.ExportRequest{SortBy: "-bogus"})
	assertKind(t, err, apperr.KindValidation, http.StatusBadRequest)
}

func TestExportArchivesCopyAndToleratesArchiveFailure(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	archiver := &recordingArchiver{err: errors.New("bucket missing")}
	svc.SetArchiver(archiver)
	repo.On("Export", mock.Anything, mock.Anything).Return(&sliceCursor{leads: makeLeads(3)}, nil)

	exp, err := svc.Export(context.Background(), transport.ExportRequest{Format: transport.ExportFormatCSV})
	require.NoError(t, err)

	var buf bytes.Buffer
	rows, err := exp.WriteTo(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	assert.Equal(t, buf.Bytes(), archiver.body)
	assert.Regexp(t, `^exports/\d{8}T\d{6}Z_[0-9a-f-]{36}\.csv$`, archiver.name)
}

func TestExportCursorErrorIsInternal(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	repo.On("Export", mock.Anything, mock.Anything).Return(&sliceCursor{err: errors.New("conn closed")}, nil)

	exp, err := svc.Export(context.Background(), transport.ExportRequest{})
	require.NoError(t, err)

	_, err = exp.WriteTo(context.Background(), io.Discard)
	assertKind(t, err, apperr.KindInternal, http.StatusInternalServerError)
}

type countingMetrics struct {
	mutated  map[string]int
	exported int
}

func (m *countingMetrics) LeadsMutated(op string, n int) { m.mutated[op] += n }
func (m *countingMetrics) LeadsExported(_ string, n int) { m.exported += n }

func TestMetricsRecorded(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, 0)
	metrics := &countingMetrics{mutated: map[string]int{}}
	svc.SetMetrics(metrics)

	repo.On("BulkDelete", mock.Anything, mock.Anything).Return(2, nil)
	repo.On("Export", mock.Anything, mock.Anything).Return(&sliceCursor{leads: makeLeads(4)}, nil)

	_, err := svc.BulkDelete(context.Background(), transport.BulkDeleteRequest{IDs: []uuid.UUID{uuid.New(), uuid.New()}})
	require.NoError(t, err)

	exp, err := svc.Export(context.Background(), transport.ExportRequest{})
	require.NoError(t, err)
	_, err = exp.WriteTo(context.Background(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, 2, metrics.mutated["bulk_delete"])
	assert.Equal(t, 4, metrics.exported)
}
