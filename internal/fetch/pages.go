package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// DefaultPageSize is the Range window used when Request.PageSize is zero.
const DefaultPageSize = 50

var errPageAbsent = errors.New("page absent")

// contentRangePattern matches "0-49/120" with an optional unit prefix.
var contentRangePattern = regexp.MustCompile(`(\d+)-(\d+)/(\d+)`)

// ParseContentRange extracts the first, last and total item positions.
func ParseContentRange(v string) (first, last, total int, err error) {
	m := contentRangePattern.FindStringSubmatch(v)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("malformed Content-Range %q", v)
	}
	first, _ = strconv.Atoi(m[1])
	last, _ = strconv.Atoi(m[2])
	total, _ = strconv.Atoi(m[3])
	return first, last, total, nil
}

func rangeHeader(first, last int) http.Header {
	h := http.Header{}
	h.Set("Range", fmt.Sprintf("%d-%d", first, last))
	return h
}

// Pages fetches a JSON array served in Range windows. A 206 response with
// a Content-Range total triggers concurrent requests for the remaining
// windows; pages are concatenated in order and the caller never sees a
// partial collection. If any page is absent the whole result is absent.
func Pages[T any](ctx context.Context, c *Client, req Request) (Result[[]T], error) {
	size := req.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	key := keyFor(req)
	if raw, found := c.lookup(ctx, req.Namespace, key); found {
		var items []T
		if err := json.Unmarshal(raw, &items); err == nil {
			return Result[[]T]{Value: items, Outcome: OutcomeCached, StatusCode: http.StatusOK}, nil
		}
	}

	firstPage, status, header, err := fetchPage[T](ctx, c, req, 0, size-1)
	if errors.Is(err, errPageAbsent) {
		return Result[[]T]{Outcome: OutcomeAbsent, StatusCode: status}, nil
	}
	if err != nil {
		return Result[[]T]{}, err
	}

	items := firstPage
	if status == http.StatusPartialContent {
		_, last, total, err := ParseContentRange(header.Get("Content-Range"))
		if err != nil {
			return Result[[]T]{}, fmt.Errorf("%w: %w", ErrDecode, err)
		}

		rest, err := fetchRemaining[T](ctx, c, req, last+1, total, size)
		if errors.Is(err, errPageAbsent) {
			return Result[[]T]{Outcome: OutcomeAbsent, StatusCode: status}, nil
		}
		if err != nil {
			return Result[[]T]{}, err
		}
		for _, page := range rest {
			items = append(items, page...)
		}
	}

	if key != "" {
		if raw, err := json.Marshal(items); err == nil {
			c.remember(req.Namespace, key, raw, req.TTL)
		}
	}
	return Result[[]T]{Value: items, Outcome: OutcomeFetched, StatusCode: status}, nil
}

func fetchRemaining[T any](ctx context.Context, c *Client, req Request, from, total, size int) ([][]T, error) {
	if from >= total {
		return nil, nil
	}

	count := (total - from + size - 1) / size
	pages := make([][]T, count)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		first := from + i*size
		last := min(first+size-1, total-1)
		g.Go(func() error {
			page, _, _, err := fetchPage[T](gctx, c, req, first, last)
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

func fetchPage[T any](ctx context.Context, c *Client, req Request, first, last int) ([]T, int, http.Header, error) {
	resp, err := c.send(ctx, req, rangeHeader(first, last))
	if err != nil {
		return nil, 0, nil, err
	}
	if resp.absent {
		return nil, resp.status, resp.header, errPageAbsent
	}
	if resp.empty() {
		return nil, resp.status, resp.header, nil
	}
	defer resp.body.Close()

	raw, err := io.ReadAll(resp.body)
	if err != nil {
		return nil, resp.status, resp.header, errPageAbsent
	}

	var page []T
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, resp.status, resp.header, fmt.Errorf("%w: range %d-%d: %w", ErrDecode, first, last, err)
	}
	return page, resp.status, resp.header, nil
}
