package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/ManuGH/adlu-proxy/internal/base"
	"github.com/ManuGH/adlu-proxy/internal/protocol"
	"github.com/rs/zerolog"
)

// Datasource names one of the three cached data families, used by the
// import/export/report CLI commands to pick which family to operate on.
type Datasource int

const (
	DatasourceFRL Datasource = iota
	DatasourceLog
	DatasourceNul
)

func (d Datasource) String() string {
	switch d {
	case DatasourceFRL:
		return "frl"
	case DatasourceLog:
		return "log"
	case DatasourceNul:
		return "nul"
	default:
		return "unknown"
	}
}

// ParseDatasource parses the --kind flag value of the report command.
func ParseDatasource(s string) (Datasource, error) {
	switch s {
	case "frl":
		return DatasourceFRL, nil
	case "log":
		return DatasourceLog, nil
	case "nul":
		return DatasourceNul, nil
	default:
		return 0, fmt.Errorf("cache: unrecognized datasource %q", s)
	}
}

// Cache is the proxy's durable store, fronting a *DB with the
// request/response-shaped operations the dispatcher and replay driver
// use. Every method logs and swallows its own errors where the caller
// has no useful recovery (store/fetch paths called from the hot request
// path), matching the original's treatment of cache failures as
// best-effort.
type Cache struct {
	db  *DB
	log zerolog.Logger
}

// OpenCache opens the cache database at path and wraps it for
// request-shaped access.
func OpenCache(path string, logger zerolog.Logger) (*Cache, error) {
	db, err := Open(path, DefaultPoolConfig())
	if err != nil {
		return nil, err
	}
	return &Cache{db: db, log: logger.With().Str("component", "cache").Logger()}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Clear removes every stored request, response, and session across all
// three families. Confirmation (the original's interactive "Really clear
// the cache?" prompt) is the CLI layer's responsibility, not the store's.
func (c *Cache) Clear() error {
	if err := clearFRL(c.db.sql); err != nil {
		return err
	}
	if err := clearLog(c.db.sql); err != nil {
		return err
	}
	return clearNul(c.db.sql)
}

// Import loads answered FRL request/response pairs from the database at
// path into the cache. Only the FRL family supports import, matching the
// original: log and NUL sessions are derived from traffic, not records
// meant to be replayed.
func (c *Cache) Import(source Datasource, path string) (int, error) {
	if source != DatasourceFRL {
		return 0, fmt.Errorf("cache: import of %s is not supported", source)
	}
	src, err := Open(path, DefaultPoolConfig())
	if err != nil {
		return 0, fmt.Errorf("cache: open import source %s: %w", path, err)
	}
	defer src.Close()
	return importFRL(c.db.sql, src.sql)
}

// Export writes every unanswered FRL request from the cache into a new
// database at path, for later replay against an upstream the local
// proxy cannot reach. path must not already exist.
func (c *Cache) Export(source Datasource, path string) (int, error) {
	if source != DatasourceFRL {
		return 0, fmt.Errorf("cache: export of %s is not supported", source)
	}
	if _, err := os.Stat(path); err == nil {
		return 0, fmt.Errorf("cache: export target %s already exists", path)
	}
	dst, err := Open(path, DefaultPoolConfig())
	if err != nil {
		return 0, fmt.Errorf("cache: open export target %s: %w", path, err)
	}
	defer dst.Close()
	return exportFRL(c.db.sql, dst.sql)
}

// Report writes a CSV summary of source's stored sessions to w. FRL
// reporting is not supported: the original never implemented it, since
// FRL's cached rows are request/response pairs rather than sessions.
func (c *Cache) Report(source Datasource, w io.Writer, emptyToo, timezone, rfc3339 bool) error {
	switch source {
	case DatasourceLog:
		return WriteLogReport(c.db, w, !emptyToo, timezone, rfc3339)
	case DatasourceNul:
		return WriteNulReport(c.db, w, timezone, rfc3339)
	default:
		return fmt.Errorf("cache: reporting of %s is not supported", source)
	}
}

// StoreRequest caches req according to its type. Failures are logged and
// swallowed: caching is an optimization, not a requirement for serving
// the request.
func (c *Cache) StoreRequest(req *protocol.Request) {
	var err error
	switch req.Type {
	case protocol.FrlActivation:
		err = c.storeActivationRequest(req)
	case protocol.FrlDeactivation:
		err = c.storeDeactivationRequest(req)
	case protocol.NulLicense:
		err = c.storeLicenseRequest(req)
	case protocol.LogUpload:
		err = StoreLogUpload(c.db, req.SourceAddr, req.Body)
	}
	if err != nil {
		c.log.Error().Err(err).Str("request", req.String()).Msg("cache store of request failed")
	}
}

// StoreResponse caches resp as the answer to req. NUL and log upload
// responses carry nothing worth caching (matching the original), so
// those branches are no-ops.
func (c *Cache) StoreResponse(req *protocol.Request, resp *protocol.Response) {
	var err error
	switch req.Type {
	case protocol.FrlActivation:
		err = c.storeActivationResponse(req, resp)
	case protocol.FrlDeactivation:
		err = c.storeDeactivationResponse(req, resp)
	}
	if err != nil {
		c.log.Error().Err(err).Str("request", req.String()).Msg("cache store of response failed")
	}
}

// FetchResponse looks for a previously cached response to req, returning
// nil if none is cached or req's type never caches responses.
func (c *Cache) FetchResponse(req *protocol.Request) *protocol.Response {
	resp, err := c.fetchResponse(req)
	if err != nil {
		c.log.Error().Err(err).Str("request", req.String()).Msg("cache fetch of response failed")
		return nil
	}
	return resp
}

func (c *Cache) fetchResponse(req *protocol.Request) (*protocol.Response, error) {
	switch req.Type {
	case protocol.FrlActivation:
		ar, err := c.activationRequestFromFrlBody(req)
		if err != nil {
			return nil, err
		}
		resp, err := fetchActivationResponse(c.db.sql, ar)
		if err != nil || resp == nil {
			return nil, err
		}
		return &protocol.Response{
			Timestamp: resp.Timestamp, Type: req.Type, Status: http.StatusOK,
			Body: resp.Body, RequestID: resp.RequestID,
		}, nil
	case protocol.FrlDeactivation:
		dr, err := c.deactivationRequestFromQuery(req)
		if err != nil {
			return nil, err
		}
		resp, err := fetchDeactivationResponse(c.db.sql, dr)
		if err != nil || resp == nil {
			return nil, err
		}
		return &protocol.Response{
			Timestamp: resp.Timestamp, Type: req.Type, Status: http.StatusOK,
			Body: resp.Body, RequestID: resp.RequestID,
		}, nil
	case protocol.LogUpload:
		// every log upload is answered the same way; nothing to look up.
		return &protocol.Response{Timestamp: base.Now(), Type: req.Type, Status: http.StatusOK}, nil
	default:
		return nil, nil
	}
}

// FetchUnansweredRequests returns every FRL activation and deactivation
// still awaiting a response, in timestamp order. NUL and log traffic
// never queue: there is nothing to forward offline for them.
func (c *Cache) FetchUnansweredRequests() ([]*protocol.Request, error) {
	pending, err := fetchUnansweredFRLRequests(c.db.sql)
	if err != nil {
		return nil, err
	}
	result := make([]*protocol.Request, 0, len(pending))
	for _, p := range pending {
		if p.Activation != nil {
			req, err := activationToProtocolRequest(p.Activation)
			if err != nil {
				return nil, err
			}
			result = append(result, req)
		} else {
			result = append(result, deactivationToProtocolRequest(p.Deactivation))
		}
	}
	return result, nil
}

func (c *Cache) storeActivationRequest(req *protocol.Request) error {
	ar, err := c.activationRequestFromFrlBody(req)
	if err != nil {
		return err
	}
	return storeActivationRequest(c.db.sql, ar)
}

func (c *Cache) storeDeactivationRequest(req *protocol.Request) error {
	dr, err := c.deactivationRequestFromQuery(req)
	if err != nil {
		return err
	}
	return storeDeactivationRequest(c.db.sql, dr)
}

func (c *Cache) storeActivationResponse(req *protocol.Request, resp *protocol.Response) error {
	ar, err := c.activationRequestFromFrlBody(req)
	if err != nil {
		return err
	}
	return storeActivationResponse(c.db.sql, ar, &ActivationResponse{
		RequestID: resp.RequestID, Timestamp: resp.Timestamp, Body: resp.Body,
	})
}

func (c *Cache) storeDeactivationResponse(req *protocol.Request, resp *protocol.Response) error {
	dr, err := c.deactivationRequestFromQuery(req)
	if err != nil {
		return err
	}
	return storeDeactivationResponse(c.db.sql, dr, &DeactivationResponse{
		RequestID: resp.RequestID, Timestamp: resp.Timestamp, Body: resp.Body,
	})
}

func (c *Cache) storeLicenseRequest(req *protocol.Request) error {
	body, err := protocol.ParseNulLicenseRequestBody(req.Body)
	if err != nil {
		return fmt.Errorf("cache: parse NUL license request %s: %w", req.RequestID, err)
	}
	return StoreLicenseSession(c.db, req.Timestamp, req.SessionID, body)
}

func (c *Cache) activationRequestFromFrlBody(req *protocol.Request) (*ActivationRequest, error) {
	var body protocol.FrlActivationRequestBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, fmt.Errorf("cache: parse FRL activation request %s: %w", req.RequestID, err)
	}
	return &ActivationRequest{
		APIKey: req.APIKey, RequestID: req.RequestID, SessionID: req.SessionID,
		Timestamp: req.Timestamp, Body: body,
	}, nil
}

func (c *Cache) deactivationRequestFromQuery(req *protocol.Request) (*DeactivationRequest, error) {
	params, err := protocol.ParseFrlDeactivationQueryParams(req.Query)
	if err != nil {
		return nil, fmt.Errorf("cache: parse FRL deactivation request %s: %w", req.RequestID, err)
	}
	return &DeactivationRequest{
		APIKey: req.APIKey, RequestID: req.RequestID, Timestamp: req.Timestamp, Params: *params,
	}, nil
}

func activationToProtocolRequest(a *ActivationRequest) (*protocol.Request, error) {
	body, err := json.Marshal(a.Body)
	if err != nil {
		return nil, fmt.Errorf("cache: encode FRL activation request %s: %w", a.RequestID, err)
	}
	return &protocol.Request{
		Timestamp: a.Timestamp, Type: protocol.FrlActivation, APIKey: a.APIKey,
		RequestID: a.RequestID, SessionID: a.SessionID,
		Method: http.MethodPost, Path: "/asnp/frl_connected/values/v2", Body: body,
	}, nil
}

func deactivationToProtocolRequest(d *DeactivationRequest) *protocol.Request {
	return &protocol.Request{
		Timestamp: d.Timestamp, Type: protocol.FrlDeactivation, APIKey: d.APIKey,
		RequestID: d.RequestID, Query: d.Params.Encode(),
		Method: http.MethodDelete, Path: "/asnp/frl_connected/v1",
	}
}
