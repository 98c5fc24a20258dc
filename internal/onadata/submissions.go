// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package onadata

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/models"
	"github.com/tomtom215/symbology/internal/result"
)

// DefaultPageSize is used when a caller passes a non-positive page size.
const DefaultPageSize = 100

// Page is one page of submissions.
type Page = []models.Submission

// FetchForm fetches form metadata. Any failure is tagged NetworkError.
func (c *Client) FetchForm(ctx context.Context, formID string) result.Result[*models.Form] {
	data, err := c.do(ctx, call{
		method:    http.MethodGet,
		operation: "fetch_form",
		url:       c.endpoint(FormEndpoint, url.PathEscape(formID)),
	})
	if err == nil {
		var form models.Form
		if err = json.Unmarshal(data, &form); err != nil {
			err = fmt.Errorf("decode form %s: %w", formID, err)
		} else {
			c.logger.Emit(logging.VerboseEntry("Fetched form with form id: %s", formID))
			return result.Ok(&form)
		}
	}

	c.logger.Emit(logging.ErrorEntry("Operation to fetch form: %s, failed with err: %s", formID, logging.Truncate(err.Error(), maxLoggedErrorLen)))
	return result.Fail[*models.Form](err, result.Detail{Code: result.NetworkError})
}

// FetchPage fetches one page of submissions. extra is merged into the query
// string (e.g. "query" and "sort"). On failure the detail carries the code
// and RecordsAffected = pageSize.
func (c *Client) FetchPage(ctx context.Context, formID string, page, pageSize int, extra map[string]string) result.Result[Page] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	for k, v := range extra {
		q.Set(k, v)
	}
	pageURL := c.endpoint(DataEndpoint, url.PathEscape(formID)) + "?" + q.Encode()

	data, err := c.do(ctx, call{method: http.MethodGet, operation: "fetch_submissions", url: pageURL})
	if err == nil {
		var subs Page
		if subs, err = decodeSubmissions(data); err == nil {
			c.logger.Emit(logging.InfoEntry("Fetched %d submissions for form id: %s page: %s", len(subs), formID, pageURL))
			return result.Ok(subs)
		}
	}

	c.logger.Emit(logging.ErrorEntry("Unable to fetch submissions for form id: %s page: %s with err : %s", formID, pageURL, logging.Truncate(err.Error(), maxLoggedErrorLen)))
	return result.Fail[Page](err, result.Detail{Code: codeFor(err), RecordsAffected: pageSize})
}

func decodeSubmissions(data []byte) (Page, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var subs Page
	if err := dec.Decode(&subs); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}
	return subs, nil
}

// FetchSubmissionsPaginated returns a lazy sequence with one Result per
// page. The sequence is single-use: each call starts at page 1 and a second
// range over the same sequence yields nothing.
//
// Pages are requested only when the consumer asks for the next element.
// After page p the sequence continues while p*pageSize <= totalCount, so the
// stop condition depends on the form's reported count rather than on an
// empty page. A failed page yields a failure carrying the number of records
// that page would have covered, and the scan moves on. If ctx is done before
// a page is requested, one EvaluationAborted failure carrying every
// unreached record is yielded and the sequence ends.
func (c *Client) FetchSubmissionsPaginated(ctx context.Context, formID string, totalCount int, extra map[string]string, pageSize int) iter.Seq[result.Result[Page]] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	var consumed atomic.Bool

	return func(yield func(result.Result[Page]) bool) {
		if consumed.Swap(true) {
			return
		}

		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				yield(result.Fail[Page](err, result.Detail{
					Code:            result.EvaluationAborted,
					RecordsAffected: unreached(totalCount, page, pageSize),
				}))
				return
			}

			r := c.FetchPage(ctx, formID, page, pageSize, extra)
			if r.IsFailure() {
				r = pageFailure(r, totalCount, page, pageSize)
			}
			if !yield(r) {
				return
			}
			if page*pageSize > totalCount {
				return
			}
		}
	}
}

// pageFailure re-tags a failed page with the records it covers. An aborted
// page covers every record not yet reached.
func pageFailure(r result.Result[Page], total, page, pageSize int) result.Result[Page] {
	d, _ := r.Detail()
	if d.Code == result.EvaluationAborted {
		d.RecordsAffected = unreached(total, page, pageSize)
	} else {
		d.RecordsAffected = min(pageSize, unreached(total, page, pageSize))
	}
	return result.Fail[Page](r.Err(), d)
}

// unreached counts the records from page onwards.
func unreached(total, page, pageSize int) int {
	return max(0, total-(page-1)*pageSize)
}

// EditSubmission replaces one submission. The payload gets a freshly
// generated meta.instanceID and keeps the previous instance id as
// meta.deprecatedID.
func (c *Client) EditSubmission(ctx context.Context, formID string, submission models.Submission) result.Result[map[string]any] {
	meta := map[string]any{"instanceID": "uuid:" + c.newID()}
	if prev, ok := submission[models.FieldInstanceID]; ok && prev != nil {
		meta["deprecatedID"] = prev
	}
	edited := submission.Clone()
	edited["meta"] = meta

	payload, err := json.Marshal(map[string]any{"id": formID, "submission": edited})
	if err != nil {
		return result.Fail[map[string]any](fmt.Errorf("encode submission: %w", err), result.Detail{Code: result.UnknownTransformError})
	}

	data, err := c.do(ctx, call{
		method:    http.MethodPost,
		operation: "edit_submission",
		url:       c.endpoint(EditSubmissionEndpoint),
		body:      payload,
	})
	if err == nil {
		resp := map[string]any{}
		if len(bytes.TrimSpace(data)) > 0 {
			if err = json.Unmarshal(data, &resp); err != nil {
				err = fmt.Errorf("decode edit response: %w", err)
			}
		}
		if err == nil {
			c.logger.Emit(logging.VerboseEntry("Edited submission with _id: %s for form: %s", submission.ID(), formID))
			return result.Ok(resp)
		}
	}

	c.logger.Emit(logging.ErrorEntry("Failed to edit submission with _id: %s for form with id: %s with err: %s", submission.ID(), formID, logging.Truncate(err.Error(), maxLoggedErrorLen)))
	return result.Fail[map[string]any](err, result.Detail{Code: codeFor(err)})
}

// UploadMarkerColor sets marker-color on a copy of submission and pushes it.
func (c *Client) UploadMarkerColor(ctx context.Context, formID string, submission models.Submission, color string) result.Result[map[string]any] {
	updated := submission.Clone()
	updated[models.FieldMarkerColor] = color
	return c.EditSubmission(ctx, formID, updated)
}
