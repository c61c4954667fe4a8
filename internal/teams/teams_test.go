package teams

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	teams      []Team
	owners     map[string][]string
	failOwners map[string]error
}

func (f *fakeFetcher) Teams(ctx context.Context) ([]Team, error) {
	return f.teams, nil
}

func (f *fakeFetcher) Owners(ctx context.Context, teamID string) ([]string, error) {
	if err := f.failOwners[teamID]; err != nil {
		return nil, err
	}
	return f.owners[teamID], nil
}

func TestInventoryResolvesOwnersAndSorts(t *testing.T) {
	f := &fakeFetcher{
		teams: []Team{
			{ID: "t2", DisplayName: "Zulu Squad", Visibility: "private"},
			{ID: "t1", DisplayName: "Alpha Crew", Visibility: "public"},
		},
		owners: map[string][]string{
			"t1": {"Alice Admin"},
			"t2": {"Bob Builder", "Carol Chief"},
		},
	}

	list, err := Inventory(context.Background(), f, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "Alpha Crew", list[0].DisplayName)
	assert.Equal(t, []string{"Alice Admin"}, list[0].Owners)
	assert.Equal(t, "Zulu Squad", list[1].DisplayName)
	assert.Len(t, list[1].Owners, 2)
}

func TestInventoryKeepsTeamOnOwnerLookupFailure(t *testing.T) {
	f := &fakeFetcher{
		teams: []Team{
			{ID: "t1", DisplayName: "Working"},
			{ID: "t2", DisplayName: "Broken"},
		},
		owners:     map[string][]string{"t1": {"Alice"}},
		failOwners: map[string]error{"t2": errors.New("forbidden")},
	}

	list, err := Inventory(context.Background(), f, nil)
	require.NoError(t, err)
	require.Len(t, list, 2, "owner failure must not drop the team")

	for _, team := range list {
		if team.ID == "t2" {
			assert.Empty(t, team.Owners)
		}
	}
}
