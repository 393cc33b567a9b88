package directory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"enaya/apperrors"
	"enaya/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	guests []models.Guest
	err    error
	calls  int
	last   models.GuestQuery
}

func (f *fakeRepo) FindCandidates(_ context.Context, q models.GuestQuery) ([]models.Guest, error) {
	f.calls++
	f.last = q
	return f.guests, f.err
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*models.Guest, error) {
	for i := range f.guests {
		if f.guests[i].ID == id {
			return &f.guests[i], nil
		}
	}
	return nil, f.err
}

func sampleGuests() []models.Guest {
	return []models.Guest{
		{ID: "c1", Name: "Aisha Al Mansour", Phone: "055 123 4321"},
		{ID: "c2", Name: "Laila Al Saud", Phone: "0531234789"},
		{ID: "c3", Name: "Noor Al Harbi", Phone: "+966 54•• ••112"},
		{ID: "c4", Name: "No Phone"},
	}
}

func ids(guests []models.Guest) []string {
	out := make([]string, 0, len(guests))
	for _, g := range guests {
		out = append(out, g.ID)
	}
	return out
}

func TestSearch_EmptyQueryNeverTouchesStore(t *testing.T) {
	for _, policy := range []Policy{StrictPhonePolicy{}, PartialPhonePolicy{}} {
		repo := &fakeRepo{guests: sampleGuests()}
		d := NewDirectory(repo, policy, 0, nil)

		for _, q := range []string{"", "   ", "\t\n"} {
			got, err := d.Search(context.Background(), q)
			require.NoError(t, err)
			assert.Empty(t, got)
		}
		assert.Zero(t, repo.calls, policy.Name())
	}
}

func TestSearch_NameIsCaseInsensitiveSubstring(t *testing.T) {
	for _, policy := range []Policy{StrictPhonePolicy{}, PartialPhonePolicy{}} {
		repo := &fakeRepo{guests: sampleGuests()}
		d := NewDirectory(repo, policy, 0, nil)

		got, err := d.Search(context.Background(), "  aL sA ")
		require.NoError(t, err)
		assert.Equal(t, []string{"c2"}, ids(got), policy.Name())
		assert.False(t, repo.last.ByPhone)

		got, err = d.Search(context.Background(), "AL")
		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "c2", "c3"}, ids(got), policy.Name())
	}
}

func TestSearch_StrictPolicy(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		want      []string
		wantStore bool
	}{
		{name: "full number exact match", query: "0551234321", want: []string{"c1"}, wantStore: true},
		{name: "stored number without formatting", query: "0531234789", want: []string{"c2"}, wantStore: true},
		{name: "full number with no guest", query: "0512345678", want: []string{}, wantStore: true},
		{name: "prefix is not enough", query: "0551", want: []string{}, wantStore: false},
		{name: "eleven digits", query: "05512343210", want: []string{}, wantStore: false},
		{name: "wrong prefix", query: "5551234321", want: []string{}, wantStore: false},
		{name: "formatted input is rejected", query: "055 123 4321", want: []string{}, wantStore: false},
		{name: "surrounding whitespace is trimmed", query: " 0551234321 ", want: []string{"c1"}, wantStore: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{guests: sampleGuests()}
			d := NewDirectory(repo, StrictPhonePolicy{}, 0, nil)

			got, err := d.Search(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, tt.wantStore, repo.calls == 1)
		})
	}
}

func TestSearch_PartialPolicy(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{query: "321", want: []string{"c1"}},
		{query: "055-123", want: []string{"c1"}},
		{query: "112", want: []string{"c3"}},
		{query: "05", want: []string{"c1", "c2"}},
		{query: "999", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			repo := &fakeRepo{guests: sampleGuests()}
			d := NewDirectory(repo, PartialPhonePolicy{}, 0, nil)

			got, err := d.Search(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			assert.True(t, repo.last.ByPhone)
		})
	}
}

func TestSearch_TruncatesInSourceOrder(t *testing.T) {
	var guests []models.Guest
	for i := 0; i < 30; i++ {
		guests = append(guests, models.Guest{ID: fmt.Sprintf("g%02d", i), Name: "Sara"})
	}
	d := NewDirectory(&fakeRepo{guests: guests}, StrictPhonePolicy{}, DefaultLimit, nil)

	got, err := d.Search(context.Background(), "sara")
	require.NoError(t, err)
	require.Len(t, got, DefaultLimit)
	assert.Equal(t, "g00", got[0].ID)
	assert.Equal(t, "g19", got[19].ID)
}

func TestSearch_StoreFailureIsRetrievalError(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	d := NewDirectory(repo, StrictPhonePolicy{}, 0, nil)

	got, err := d.Search(context.Background(), "Aisha")
	require.Error(t, err)
	assert.True(t, apperrors.IsRetrieval(err))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	assert.Equal(t, "strict", p.Name())

	p, err = PolicyByName("Partial")
	require.NoError(t, err)
	assert.Equal(t, "partial", p.Name())

	_, err = PolicyByName("fuzzy")
	assert.Error(t, err)
}
