// Package httpsource is a reference Source that talks to an external
// JSON-over-HTTP API, using github.com/cenkalti/backoff/v4 for the retry
// policy and golang.org/x/sync/errgroup to commit a changeset's per-type
// batches concurrently.
package httpsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	rst "github.com/linagora/overture/internal/recordstore/types"
)

// Reconciler is the subset of *recordstore.Store this Source calls back
// into (see memsource.Reconciler for why this isn't just an import).
type Reconciler interface {
	GetStoreKey(typeName, id string) rst.StoreKey
	SourceDidFetchRecords(typeName string, records []rst.Hash, all bool)
	SourceCouldNotFindRecords(typeName string, ids []string)
	SourceDidCommitCreate(skToID map[rst.StoreKey]string)
	SourceDidNotCreate(sks []rst.StoreKey)
	SourceDidCommitUpdate(sks []rst.StoreKey)
	SourceDidNotUpdate(sks []rst.StoreKey)
	SourceDidCommitDestroy(sks []rst.StoreKey)
	SourceDidNotDestroy(sks []rst.StoreKey)
	SourceDidError(sks []rst.StoreKey)
}

// Config configures the REST endpoint layout. BaseURL must not have a
// trailing slash. Collection paths are assumed to be the plural of
// typeName unless overridden in CollectionPath.
type Config struct {
	BaseURL        string
	HTTPClient     *http.Client
	CollectionPath map[string]string
	MaxElapsedTime time.Duration
}

// Source implements types.Source against a REST API, retrying transient
// transport/5xx failures with exponential backoff before giving up and
// reporting the transient sourceDidNot* callback (a permanent 4xx is never
// retried and reports sourceDidError immediately).
type Source struct {
	cfg   Config
	store Reconciler
}

// New returns a Source bound to cfg. Call Bind before use.
func New(cfg Config) *Source {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.MaxElapsedTime == 0 {
		cfg.MaxElapsedTime = 30 * time.Second
	}
	return &Source{cfg: cfg}
}

// Bind attaches the Store this Source calls back into.
func (s *Source) Bind(store Reconciler) { s.store = store }

func (s *Source) collection(typeName string) string {
	if p, ok := s.cfg.CollectionPath[typeName]; ok {
		return p
	}
	return typeName + "s"
}

// retryPolicy returns a fresh exponential backoff bounded by
// cfg.MaxElapsedTime.
func (s *Source) retryPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.cfg.MaxElapsedTime
	return backoff.WithContext(b, ctx)
}

// permanentHTTPError wraps a non-retryable (4xx) response so backoff.Retry
// stops immediately instead of exhausting the policy.
type permanentHTTPError struct {
	status int
	body   string
}

func (e *permanentHTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.status, e.body)
}

func (s *Source) doJSON(ctx context.Context, method, url string, reqBody any, out any) error {
	op := func() error {
		var bodyReader io.Reader
		if reqBody != nil {
			b, err := json.Marshal(reqBody)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("marshal request: %w", err))
			}
			bodyReader = bytes.NewReader(b)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		if reqBody != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.cfg.HTTPClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(&permanentHTTPError{status: resp.StatusCode, body: string(respBody)})
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(&permanentHTTPError{status: resp.StatusCode, body: string(respBody)})
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return backoff.Permanent(&permanentHTTPError{status: resp.StatusCode, body: string(respBody)})
		}

		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
			}
		}
		return nil
	}

	return backoff.Retry(op, s.retryPolicy(ctx))
}

func (s *Source) FetchRecord(ctx context.Context, typeName, id string) error {
	var rec rst.Hash
	url := fmt.Sprintf("%s/%s/%s", s.cfg.BaseURL, s.collection(typeName), id)
	if err := s.doJSON(ctx, http.MethodGet, url, nil, &rec); err != nil {
		var perm *permanentHTTPError
		if asPermanentNotFound(err, &perm) {
			s.store.SourceCouldNotFindRecords(typeName, []string{id})
			return nil
		}
		return err
	}
	s.store.SourceDidFetchRecords(typeName, []rst.Hash{rec}, false)
	return nil
}

func (s *Source) RefreshRecord(ctx context.Context, typeName, id string) error {
	return s.FetchRecord(ctx, typeName, id)
}

func (s *Source) FetchRecords(ctx context.Context, typeName string) error {
	var recs []rst.Hash
	url := fmt.Sprintf("%s/%s", s.cfg.BaseURL, s.collection(typeName))
	if err := s.doJSON(ctx, http.MethodGet, url, nil, &recs); err != nil {
		return err
	}
	s.store.SourceDidFetchRecords(typeName, recs, true)
	return nil
}

// FetchQuery issues a GET to BaseURL/query/<QueryID> and decodes the
// response as a list of records. The decoded records are not reported back
// to the store; only a transport or HTTP error is returned.
func (s *Source) FetchQuery(ctx context.Context, q rst.RemoteQuery) error {
	url := fmt.Sprintf("%s/query/%s", s.cfg.BaseURL, q.QueryID())
	var recs []rst.Hash
	return s.doJSON(ctx, http.MethodGet, url, nil, &recs)
}

// CommitChanges fans the per-type changesets out concurrently via
// errgroup.Group, reporting per-batch reconciliation callbacks
// independently (a failure in one type's batch does not block another
// type's ack). Failures reach the store only through those callbacks; the
// returned error is always nil.
func (s *Source) CommitChanges(ctx context.Context, changeset rst.Changeset) error {
	g, ctx := errgroup.WithContext(ctx)
	for typeName, tc := range changeset {
		typeName, tc := typeName, tc
		g.Go(func() error {
			s.commitCreate(ctx, typeName, tc.Create)
			s.commitUpdate(ctx, typeName, tc.Update)
			s.commitDestroy(ctx, typeName, tc.Destroy)
			return nil
		})
	}
	return g.Wait()
}

func (s *Source) commitCreate(ctx context.Context, typeName string, c rst.ChangesetCreate) {
	if len(c.StoreKeys) == 0 {
		return
	}
	acked := make(map[rst.StoreKey]string, len(c.StoreKeys))
	var failed []rst.StoreKey
	var permanent []rst.StoreKey
	for i, sk := range c.StoreKeys {
		var created rst.Hash
		url := fmt.Sprintf("%s/%s", s.cfg.BaseURL, s.collection(typeName))
		err := s.doJSON(ctx, http.MethodPost, url, c.Records[i], &created)
		switch {
		case err == nil:
			id, _ := created["id"].(string)
			acked[sk] = id
		case isPermanent(err):
			permanent = append(permanent, sk)
		default:
			failed = append(failed, sk)
		}
	}
	if len(acked) > 0 {
		s.store.SourceDidCommitCreate(acked)
	}
	if len(failed) > 0 {
		s.store.SourceDidNotCreate(failed)
	}
	if len(permanent) > 0 {
		s.store.SourceDidError(permanent)
	}
}

func (s *Source) commitUpdate(ctx context.Context, typeName string, u rst.ChangesetUpdate) {
	if len(u.StoreKeys) == 0 {
		return
	}
	var ok, failed, permanent []rst.StoreKey
	for i, sk := range u.StoreKeys {
		id, _ := u.Records[i]["id"].(string)
		url := fmt.Sprintf("%s/%s/%s", s.cfg.BaseURL, s.collection(typeName), id)
		err := s.doJSON(ctx, http.MethodPatch, url, u.Records[i], nil)
		switch {
		case err == nil:
			ok = append(ok, sk)
		case isPermanent(err):
			permanent = append(permanent, sk)
		default:
			failed = append(failed, sk)
		}
	}
	if len(ok) > 0 {
		s.store.SourceDidCommitUpdate(ok)
	}
	if len(failed) > 0 {
		s.store.SourceDidNotUpdate(failed)
	}
	if len(permanent) > 0 {
		s.store.SourceDidError(permanent)
	}
}

func (s *Source) commitDestroy(ctx context.Context, typeName string, d rst.ChangesetDestroy) {
	if len(d.StoreKeys) == 0 {
		return
	}
	var ok, failed, permanent []rst.StoreKey
	for i, sk := range d.StoreKeys {
		url := fmt.Sprintf("%s/%s/%s", s.cfg.BaseURL, s.collection(typeName), d.IDs[i])
		err := s.doJSON(ctx, http.MethodDelete, url, nil, nil)
		switch {
		case err == nil:
			ok = append(ok, sk)
		case isPermanent(err):
			permanent = append(permanent, sk)
		default:
			failed = append(failed, sk)
		}
	}
	if len(ok) > 0 {
		s.store.SourceDidCommitDestroy(ok)
	}
	if len(failed) > 0 {
		s.store.SourceDidNotDestroy(failed)
	}
	if len(permanent) > 0 {
		s.store.SourceDidError(permanent)
	}
}

func isPermanent(err error) bool {
	_, ok := err.(*permanentHTTPError)
	return ok
}

func asPermanentNotFound(err error, target **permanentHTTPError) bool {
	if pe, ok := err.(*permanentHTTPError); ok && pe.status == http.StatusNotFound {
		*target = pe
		return true
	}
	return false
}
