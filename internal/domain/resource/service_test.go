package resource

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"parlsync/internal/domain/document"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Insert(ctx context.Context, records ...*Record) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, collection, id string) (*Record, error) {
	args := m.Called(ctx, collection, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Record), args.Error(1)
}

func (m *MockRepository) Replace(ctx context.Context, record *Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, collection, id string) error {
	args := m.Called(ctx, collection, id)
	return args.Error(0)
}

func (m *MockRepository) Find(ctx context.Context, collection string, q Query) ([]Record, int, error) {
	args := m.Called(ctx, collection, q)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]Record), args.Int(1), args.Error(2)
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestService(repo Repository) *Service {
	seq := 0
	return NewService(repo, slog.Default(),
		WithClock(func() time.Time { return testNow.Add(500 * time.Millisecond) }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("gen-%d", seq)
		}),
		WithPaging(10, 20),
	)
}

func TestService_Create(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	mockRepo.On("Find", mock.Anything, "people", mock.AnythingOfType("resource.Query")).
		Return([]Record{}, 0, nil).Once()
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil).Once()

	records, err := service.Create(ctx, "people", []document.Document{
		{"id": "p1", "name": "Anna"},
		{"name": "Jan"},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "p1", records[0].ID)
	assert.Equal(t, "gen-1", records[1].ID)
	assert.Equal(t, "gen-1", records[1].Data.ID())
	assert.Equal(t, testNow, records[0].Created)
	assert.Equal(t, records[0].Created, records[0].Updated)
	assert.NotEmpty(t, records[0].ETag)

	view := records[1].View()
	assert.Equal(t, "Jan", view["name"])
	assert.Equal(t, "Wed, 01 May 2024 10:00:00 GMT", view[FieldCreated])
	assert.Equal(t, records[1].ETag, view[FieldETag])

	mockRepo.AssertExpectations(t)
}

func TestService_Create_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		docs       []document.Document
		taken      []Record
		wantIssues map[int]Issues
	}{
		{
			name: "server managed field",
			docs: []document.Document{{"name": "Anna"}, {"name": "Jan", "_etag": "x"}},
			wantIssues: map[int]Issues{
				1: {"_etag": "unknown field"},
			},
		},
		{
			name: "id is not a string",
			docs: []document.Document{{"id": 7.0}},
			wantIssues: map[int]Issues{
				0: {"id": "must be of string type"},
			},
		},
		{
			name: "duplicate id in request",
			docs: []document.Document{{"id": "p1"}, {"id": "p2"}, {"id": "p1"}},
			wantIssues: map[int]Issues{
				2: {"id": "value 'p1' is not unique"},
			},
		},
		{
			name:  "id already stored",
			docs:  []document.Document{{"id": "p1"}, {"id": "p2"}},
			taken: []Record{{Collection: "people", ID: "p2"}},
			wantIssues: map[int]Issues{
				1: {"id": "value 'p2' is not unique"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := newTestService(mockRepo)
			mockRepo.On("Find", mock.Anything, "people", mock.AnythingOfType("resource.Query")).
				Return(tt.taken, len(tt.taken), nil).Maybe()

			records, err := service.Create(context.Background(), "people", tt.docs)
			require.Error(t, err)
			assert.Nil(t, records)
			assert.ErrorIs(t, err, ErrValidation)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantIssues, vErr.Items)

			mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Create_Empty(t *testing.T) {
	service := newTestService(new(MockRepository))

	_, err := service.Create(context.Background(), "people", nil)
	assert.ErrorIs(t, err, ErrEmptyRequest)
}

func TestService_Create_InsertError(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("Find", mock.Anything, "people", mock.Anything).Return([]Record{}, 0, nil)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(ErrDuplicateID)

	_, err := service.Create(context.Background(), "people", []document.Document{{"id": "p1"}})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func storedPerson() *Record {
	created := testNow.Add(-time.Hour)
	return &Record{
		Collection: "people",
		ID:         "p1",
		Data: document.Document{
			"id":      "p1",
			"name":    "Anna",
			"contact": map[string]any{"email": "anna@example.org", "phone": "123"},
		},
		Created: created,
		Updated: created,
		ETag:    "old",
	}
}

func TestService_Patch(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("Get", mock.Anything, "people", "p1").Return(storedPerson(), nil)
	mockRepo.On("Replace", mock.Anything, mock.AnythingOfType("*resource.Record")).Return(nil)

	rec, err := service.Patch(context.Background(), "people", "p1", document.Document{
		"id":      "p1",
		"contact": map[string]any{"phone": "456"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Anna", rec.Data.GetString("name"))
	assert.Equal(t, "anna@example.org", rec.Data.GetString("contact.email"))
	assert.Equal(t, "456", rec.Data.GetString("contact.phone"))
	assert.Equal(t, "p1", rec.Data.ID())
	assert.Equal(t, testNow.Add(-time.Hour), rec.Created)
	assert.Equal(t, testNow, rec.Updated)
	assert.NotEqual(t, "old", rec.ETag)
	mockRepo.AssertExpectations(t)
}

func TestService_Patch_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := newTestService(mockRepo)
		mockRepo.On("Get", mock.Anything, "people", "p9").Return(nil, ErrNotFound)

		_, err := service.Patch(context.Background(), "people", "p9", document.Document{"name": "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("id cannot change", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := newTestService(mockRepo)
		mockRepo.On("Get", mock.Anything, "people", "p1").Return(storedPerson(), nil)

		_, err := service.Patch(context.Background(), "people", "p1", document.Document{"id": "p2"})
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "field is read-only", vErr.Items[0]["id"])
		mockRepo.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
	})
}

func TestService_Replace(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("Get", mock.Anything, "people", "p1").Return(storedPerson(), nil)
	mockRepo.On("Replace", mock.Anything, mock.AnythingOfType("*resource.Record")).Return(nil)

	rec, err := service.Replace(context.Background(), "people", "p1", document.Document{"name": "Anna Nowak"})
	require.NoError(t, err)

	assert.Equal(t, document.Document{"id": "p1", "name": "Anna Nowak"}, rec.Data)
	assert.Equal(t, testNow.Add(-time.Hour), rec.Created)
}

func TestService_Delete(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("Delete", mock.Anything, "people", "p1").Return(nil)
	mockRepo.On("Delete", mock.Anything, "people", "p2").Return(ErrNotFound)

	assert.NoError(t, service.Delete(context.Background(), "people", "p1"))
	assert.ErrorIs(t, service.Delete(context.Background(), "people", "p2"), ErrNotFound)
}

func TestService_Find_Paging(t *testing.T) {
	tests := []struct {
		name       string
		query      Query
		wantPage   int
		wantMaxRes int
	}{
		{name: "defaults", query: Query{}, wantPage: 1, wantMaxRes: 10},
		{name: "explicit", query: Query{Page: 3, MaxResults: 5}, wantPage: 3, wantMaxRes: 5},
		{name: "clamped to limit", query: Query{Page: 1, MaxResults: 500}, wantPage: 1, wantMaxRes: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := newTestService(mockRepo)

			expected := Query{Page: tt.wantPage, MaxResults: tt.wantMaxRes}
			mockRepo.On("Find", mock.Anything, "people", expected).Return([]Record{}, 42, nil)

			page, err := service.Find(context.Background(), "people", tt.query)
			require.NoError(t, err)
			assert.Equal(t, 42, page.Total)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantMaxRes, page.MaxResults)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_Find_InvalidWhere(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	_, err := service.Find(context.Background(), "people", Query{
		Where: document.Document{"name": map[string]any{"$regex": "^A"}},
	})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	mockRepo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_InvalidCollection(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	_, err := service.Create(ctx, "bad.name", []document.Document{{"a": 1}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = service.Get(ctx, "_internal", "p1")
	assert.ErrorIs(t, err, ErrInvalidCollection)

	_, err = service.Find(ctx, "", Query{})
	assert.ErrorIs(t, err, ErrInvalidCollection)

	assert.ErrorIs(t, service.Delete(ctx, "a/b", "p1"), ErrNotFound)

	mockRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}
