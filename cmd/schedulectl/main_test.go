package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/schedule"
	"github.com/schedulehub/p2p/internal/search"
)

type fakeSearcher struct {
	got      schedule.Query
	resp     *search.Response
	carriers []schedule.SCAC
	released bool
}

func (f *fakeSearcher) Search(_ context.Context, q schedule.Query) (*search.Response, error) {
	f.got = q
	return f.resp, nil
}

func (f *fakeSearcher) Carriers() []schedule.SCAC { return f.carriers }

func run(t *testing.T, f *fakeSearcher, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	open := func(context.Context, zerolog.Logger) (searcher, func(), error) {
		return f, func() { f.released = true }, nil
	}

	var out, errOut bytes.Buffer
	cmd := newRootCmd(open)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestSearch_PrintsProduct(t *testing.T) {
	f := &fakeSearcher{resp: &search.Response{
		Body:           []byte(`{"productId":"p","scheduleCount":0}`),
		FailedCarriers: []schedule.SCAC{schedule.SCACMSCU},
	}}

	stdout, stderr, err := run(t, f,
		"search", "--from", "hkhkg", "--to", "DEHAM", "--date", "2024-01-01",
		"--scac", "cmdu,MSCU", "--direct-only", "--range", "14")
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"productId\": \"p\",\n  \"scheduleCount\": 0\n}\n", stdout)
	assert.Contains(t, stderr, "MSCU")
	assert.True(t, f.released)

	assert.Equal(t, "HKHKG", f.got.Origin)
	assert.Equal(t, "DEHAM", f.got.Destination)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), f.got.StartDate)
	assert.Equal(t, schedule.DateTypeDeparture, f.got.DateType)
	assert.Equal(t, 14, f.got.SearchRange)
	assert.Equal(t, []schedule.SCAC{schedule.SCACCMDU, schedule.SCACMSCU}, f.got.SCACs)
	require.NotNil(t, f.got.Filters.DirectOnly)
	assert.True(t, *f.got.Filters.DirectOnly)
}

func TestSearch_Compact(t *testing.T) {
	f := &fakeSearcher{resp: &search.Response{Body: []byte(`{"a":1}`)}}

	stdout, _, err := run(t, f, "search", "--from", "CNSHA", "--to", "NLRTM", "--compact")
	require.NoError(t, err)

	assert.Equal(t, "{\"a\":1}\n", stdout)
	assert.Nil(t, f.got.Filters.DirectOnly)
	assert.Equal(t, schedule.DefaultSearchRange, f.got.SearchRange)
	assert.False(t, f.got.StartDate.IsZero())
}

func TestSearch_RequiresPorts(t *testing.T) {
	_, _, err := run(t, &fakeSearcher{}, "search", "--from", "CNSHA")
	assert.Error(t, err)
}

func TestSearchOptions_Query(t *testing.T) {
	tests := []struct {
		name    string
		opts    searchOptions
		wantErr error
	}{
		{
			name:    "bad location",
			opts:    searchOptions{from: "SHA", to: "NLRTM", searchRange: 28},
			wantErr: schedule.ErrInvalidLocationCode,
		},
		{
			name:    "bad date type",
			opts:    searchOptions{from: "CNSHA", to: "NLRTM", dateType: "eta", searchRange: 28},
			wantErr: schedule.ErrInvalidDateType,
		},
		{
			name:    "unknown carrier",
			opts:    searchOptions{from: "CNSHA", to: "NLRTM", scacs: []string{"ACME"}, searchRange: 28},
			wantErr: schedule.ErrUnknownSCAC,
		},
		{
			name:    "range too wide",
			opts:    searchOptions{from: "CNSHA", to: "NLRTM", searchRange: 120},
			wantErr: schedule.ErrInvalidSearchRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.query(false)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	_, err := searchOptions{from: "CNSHA", to: "NLRTM", date: "01/02/2024", searchRange: 28}.query(false)
	assert.ErrorContains(t, err, "--date")
}

func TestCarriers_Lists(t *testing.T) {
	f := &fakeSearcher{carriers: []schedule.SCAC{schedule.SCACHLCU, schedule.SCACMAEU}}

	stdout, _, err := run(t, f, "carriers")
	require.NoError(t, err)
	assert.Equal(t, "HLCU\nMAEU\n", stdout)
}

func TestCarriers_NoneConfigured(t *testing.T) {
	stdout, stderr, err := run(t, &fakeSearcher{}, "carriers")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "no carriers configured")
}
