package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/schedule"
	"github.com/schedulehub/p2p/internal/search"
	"github.com/schedulehub/p2p/internal/worker"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type pruner struct {
	removed int64
	calls   int
}

func (p *pruner) Prune(context.Context) (int64, error) {
	p.calls++
	return p.removed, nil
}

func newDispatcher(t *testing.T, searcher *fakeSearcher, cache worker.Pinger, pr worker.Pruner) *worker.Dispatcher {
	t.Helper()
	return worker.NewDispatcher(worker.DispatcherConfig{
		Warm: worker.NewWarmJob(worker.WarmJobConfig{
			Config:   worker.WarmConfig{Lanes: lanes(t, "CNSHA-NLRTM,HKHKG-DEHAM")},
			Searcher: searcher,
			Logger:   zerolog.Nop(),
		}),
		Cache:  cache,
		Pruner: pr,
		Logger: zerolog.Nop(),
	})
}

func TestDispatcher_WarmLanes(t *testing.T) {
	searcher := &fakeSearcher{}
	d := newDispatcher(t, searcher, nil, nil)

	require.NoError(t, d.Handle(context.Background(), []byte(`{"job_type":"warm_lanes"}`)))
	assert.Len(t, searcher.seen(), 2)
}

func TestDispatcher_WarmLanesOverride(t *testing.T) {
	searcher := &fakeSearcher{}
	d := newDispatcher(t, searcher, nil, nil)

	err := d.Handle(context.Background(), []byte(`{"job_type":"warm_lanes","lanes":["sgsin-nlrtm"]}`))
	require.NoError(t, err)

	require.Len(t, searcher.seen(), 1)
	assert.Equal(t, "SGSIN", searcher.seen()[0].Origin)
}

func TestDispatcher_WarmLanesTooManyFailures(t *testing.T) {
	searcher := &fakeSearcher{errs: map[string]error{
		"CNSHA": errors.New("boom"),
		"HKHKG": errors.New("boom"),
	}}
	d := newDispatcher(t, searcher, nil, nil)

	err := d.Handle(context.Background(), []byte(`{"job_type":"warm_lanes"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2/2")
}

func TestDispatcher_PartialLanesAreNotFailures(t *testing.T) {
	searcher := &fakeSearcher{answers: map[string]*search.Response{
		"CNSHA": {FailedCarriers: []schedule.SCAC{schedule.SCACMSCU}},
		"HKHKG": {FailedCarriers: []schedule.SCAC{schedule.SCACONEY}, Count: 1},
	}}
	d := newDispatcher(t, searcher, nil, nil)

	assert.NoError(t, d.Handle(context.Background(), []byte(`{"job_type":"warm_lanes"}`)))
}

func TestDispatcher_HealthCheck(t *testing.T) {
	searcher := &fakeSearcher{}
	d := newDispatcher(t, searcher, pinger{}, nil)

	require.NoError(t, d.Handle(context.Background(), []byte(`{"job_type":"health_check"}`)))
	require.Len(t, searcher.seen(), 1)
	assert.Equal(t, "CNSHA", searcher.seen()[0].Origin)
}

func TestDispatcher_HealthCheckCacheDown(t *testing.T) {
	searcher := &fakeSearcher{}
	d := newDispatcher(t, searcher, pinger{err: errors.New("connection refused")}, nil)

	err := d.Handle(context.Background(), []byte(`{"job_type":"health_check"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache")
	assert.Empty(t, searcher.seen())
}

func TestDispatcher_HealthCheckLaneUnanswered(t *testing.T) {
	searcher := &fakeSearcher{errs: map[string]error{"CNSHA": errors.New("boom")}}
	d := newDispatcher(t, searcher, nil, nil)

	assert.Error(t, d.Handle(context.Background(), []byte(`{"job_type":"health_check"}`)))
}

func TestDispatcher_PruneCache(t *testing.T) {
	pr := &pruner{removed: 12}
	d := newDispatcher(t, &fakeSearcher{}, nil, pr)

	require.NoError(t, d.Handle(context.Background(), []byte(`{"job_type":"prune_cache"}`)))
	assert.Equal(t, 1, pr.calls)
}

func TestDispatcher_PruneWithoutPruner(t *testing.T) {
	d := newDispatcher(t, &fakeSearcher{}, nil, nil)
	assert.NoError(t, d.Handle(context.Background(), []byte(`{"job_type":"prune_cache"}`)))
}

func TestDispatcher_RejectsBadMessages(t *testing.T) {
	d := newDispatcher(t, &fakeSearcher{}, nil, nil)

	err := d.Handle(context.Background(), []byte(`{"job_type":"provider_refresh"}`))
	assert.ErrorIs(t, err, worker.ErrUnknownJob)

	err = d.Handle(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, worker.ErrMalformedJob)

	err = d.Handle(context.Background(), []byte(`{"job_type":"warm_lanes","lanes":["nowhere"]}`))
	assert.ErrorIs(t, err, worker.ErrMalformedJob)
}
