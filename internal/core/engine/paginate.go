package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"

	"go.uber.org/zap"

	"github.com/mygh/mygh/internal/metrics"
)

// MaxPerPage is the largest page size GitHub honors.
const MaxPerPage = 100

// PageOptions controls a paginated fetch.
type PageOptions struct {
	// PerPage falls back to the client default when zero.
	PerPage int
	// MaxItems stops the walk once that many items were yielded; zero means
	// no cap.
	MaxItems int
	// ItemsField names the array inside an object body. Defaults to "items".
	ItemsField string
}

func (o PageOptions) pageSize(fallback int) int {
	size := o.PerPage
	if size <= 0 {
		size = fallback
	}
	if o.MaxItems > 0 && o.MaxItems < size {
		size = o.MaxItems
	}
	if size > MaxPerPage {
		size = MaxPerPage
	}
	if size <= 0 {
		size = MaxPerPage
	}
	return size
}

// FetchAll walks spec's pages following rel="next" with the resolved
// credential. Each call to the returned sequence starts again from the
// first page. A failure is yielded once, after the items of earlier pages,
// and ends the sequence.
func (c *Client) FetchAll(ctx context.Context, spec RequestSpec, opts PageOptions) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		cred, err := c.Credential(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		c.FetchAllWith(ctx, spec, cred, opts)(yield)
	}
}

// FetchAllWith is FetchAll with an explicit credential; the resolver is not
// consulted.
func (c *Client) FetchAllWith(ctx context.Context, spec RequestSpec, cred Credential, opts PageOptions) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		next := spec.WithQuery("per_page", strconv.Itoa(opts.pageSize(c.perPage)))
		yielded := 0
		for page := 1; ; page++ {
			resp, err := c.retrier.ExecuteWithRetry(ctx, next, cred)
			if err != nil {
				yield(nil, err)
				return
			}
			metrics.RecordPage(next.Resource())

			items, err := pageItems(resp.Body, opts.ItemsField)
			if err != nil {
				yield(nil, &Error{
					Kind:       KindValidation,
					Method:     next.method(),
					URL:        next.Path,
					StatusCode: resp.StatusCode,
					Message:    err.Error(),
					Err:        err,
				})
				return
			}
			logDebug(c.logger, "Fetched page",
				zap.Int("page", page),
				zap.Int("items", len(items)),
				zap.Bool("cached", resp.FromCache),
			)

			for _, item := range items {
				if !yield(item, nil) {
					return
				}
				yielded++
				if opts.MaxItems > 0 && yielded >= opts.MaxItems {
					return
				}
			}

			cursor := resp.NextCursor()
			if cursor == "" {
				return
			}
			next = next.WithCursor(relativeTo(c.executor.baseURL(), cursor))
		}
	}
}

// pageItems extracts the items of one page: the body itself when it is an
// array, else the array under field.
func pageItems(body []byte, field string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		return items, nil
	}

	if field == "" {
		field = "items"
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	raw, ok := envelope[field]
	if !ok {
		return nil, fmt.Errorf("page body has no %q array", field)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode page %q: %w", field, err)
	}
	return items, nil
}

// Paginate decodes each item of FetchAll into T.
func Paginate[T any](ctx context.Context, c *Client, spec RequestSpec, opts PageOptions) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for raw, err := range c.FetchAll(ctx, spec, opts) {
			var item T
			if err != nil {
				yield(item, err)
				return
			}
			if err := json.Unmarshal(raw, &item); err != nil {
				yield(item, fmt.Errorf("decode item: %w", err))
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Collect drains seq. On failure it returns the items gathered so far
// together with the error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
