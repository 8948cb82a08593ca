package cache

import (
	"database/sql"
	"fmt"

	"github.com/ManuGH/adlu-proxy/internal/base"
	"github.com/ManuGH/adlu-proxy/internal/protocol"
)

// ActivationRequest is a stored FRL activation request, keyed by its
// computed activation and deactivation identities.
type ActivationRequest struct {
	APIKey    string
	RequestID string
	SessionID string
	Timestamp base.Timestamp
	Body      protocol.FrlActivationRequestBody
}

func (r *ActivationRequest) activationKey() string   { return r.Body.ActivationKey() }
func (r *ActivationRequest) deactivationKey() string { return r.Body.DeactivationKey() }

// ActivationResponse is the cached response to an ActivationRequest.
type ActivationResponse struct {
	RequestID string
	Timestamp base.Timestamp
	Body      []byte
}

// DeactivationRequest is a stored FRL deactivation request.
type DeactivationRequest struct {
	APIKey    string
	RequestID string
	Timestamp base.Timestamp
	Params    protocol.FrlDeactivationQueryParams
}

func (r *DeactivationRequest) deactivationKey() string { return r.Params.DeactivationKey() }

// DeactivationResponse is the cached response to a DeactivationRequest.
type DeactivationResponse struct {
	RequestID string
	Timestamp base.Timestamp
	Body      []byte
}

const (
	frlActivationRequestSchema = `
	create table if not exists activation_requests (
		activation_key text not null unique,
		deactivation_key text not null,
		api_key text not null,
		request_id text not null,
		session_id text not null,
		device_date text not null,
		package_id text not null,
		asnp_id text not null,
		device_id text not null,
		os_user_id text not null,
		is_vdi boolean not null,
		is_domain_user boolean not null,
		is_virtual boolean not null,
		os_name text not null,
		os_version text not null,
		app_id text not null,
		app_version text not null,
		ngl_version text not null,
		timestamp text not null
	);
	create index if not exists deactivation_request_index on activation_requests (
		deactivation_key
	);`

	frlActivationResponseSchema = `
	create table if not exists activation_responses (
		activation_key text not null unique,
		deactivation_key text not null,
		request_id text not null,
		body text not null,
		timestamp text not null
	);
	create index if not exists deactivation_response_index on activation_responses (
		deactivation_key
	);`

	frlDeactivationRequestSchema = `
	create table if not exists deactivation_requests (
		deactivation_key text not null unique,
		api_key text not null,
		request_id text not null,
		package_id text not null,
		device_id text not null,
		os_user_id text not null,
		is_domain_user boolean not null,
		is_vdi boolean not null,
		is_virtual boolean not null,
		timestamp text not null
	);`

	frlDeactivationResponseSchema = `
	create table if not exists deactivation_responses (
		deactivation_key text not null unique,
		request_id text not null,
		body text not null,
		timestamp text not null
	);`
)

func initFRLSchema(db *sql.DB) error {
	for _, stmt := range []string{
		frlActivationRequestSchema,
		frlActivationResponseSchema,
		frlDeactivationRequestSchema,
		frlDeactivationResponseSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("cache: init frl schema: %w", err)
		}
	}
	return nil
}

func storeActivationRequest(db execer, req *ActivationRequest) error {
	d := req.Body.DeviceDetails
	a := req.Body.AppDetails
	_, err := db.Exec(`
		insert or replace into activation_requests (
			activation_key, deactivation_key, api_key, request_id, session_id, device_date,
			package_id, asnp_id, device_id, os_user_id, is_vdi, is_domain_user, is_virtual,
			os_name, os_version, app_id, app_version, ngl_version, timestamp
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.activationKey(), req.deactivationKey(), req.APIKey, req.RequestID, req.SessionID,
		d.CurrentDate, req.Body.NpdID, req.Body.AsnpTemplateID, d.DeviceID, d.OsUserID,
		d.EnableVdiMarkerExists, d.IsOsUserAccountInDomain, d.IsVirtualEnvironment,
		d.OsName, d.OsVersion, a.NglAppID, a.NglAppVersion, a.NglLibVersion,
		req.Timestamp.ToDB(),
	)
	if err != nil {
		return fmt.Errorf("cache: store activation request %s: %w", req.RequestID, err)
	}
	return nil
}

func storeDeactivationRequest(db execer, req *DeactivationRequest) error {
	p := req.Params
	_, err := db.Exec(`
		insert or replace into deactivation_requests (
			deactivation_key, api_key, request_id, package_id,
			device_id, os_user_id, is_vdi, is_domain_user, is_virtual, timestamp
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.deactivationKey(), req.APIKey, req.RequestID, p.NpdID, p.DeviceID, p.OsUserID,
		p.EnableVdiMarkerExists, p.IsOsUserAccountInDomain, p.IsVirtualEnvironment,
		req.Timestamp.ToDB(),
	)
	if err != nil {
		return fmt.Errorf("cache: store deactivation request %s: %w", req.RequestID, err)
	}
	return nil
}

// storeActivationResponse stores resp and, in the same transaction,
// retires any deactivation rows sharing the activation's deactivation
// key: once an activation has succeeded, a previously queued
// deactivation for the same device is stale.
func storeActivationResponse(db *sql.DB, req *ActivationRequest, resp *ActivationResponse) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin store activation response: %w", err)
	}
	defer tx.Rollback()

	aKey, dKey := req.activationKey(), req.deactivationKey()
	if _, err := tx.Exec(
		`insert or replace into activation_responses (activation_key, deactivation_key, request_id, body, timestamp)
		 values (?, ?, ?, ?, ?)`,
		aKey, dKey, resp.RequestID, resp.Body, resp.Timestamp.ToDB(),
	); err != nil {
		return fmt.Errorf("cache: store activation response %s: %w", resp.RequestID, err)
	}
	if _, err := tx.Exec(`delete from deactivation_requests where deactivation_key = ?`, dKey); err != nil {
		return fmt.Errorf("cache: retire deactivation requests for %s: %w", dKey, err)
	}
	if _, err := tx.Exec(`delete from deactivation_responses where deactivation_key = ?`, dKey); err != nil {
		return fmt.Errorf("cache: retire deactivation responses for %s: %w", dKey, err)
	}
	return tx.Commit()
}

// storeDeactivationResponse stores resp and, in the same transaction,
// removes all activation and deactivation rows sharing this deactivation
// key: a successful deactivation retires both the activation it revokes
// and any other queued deactivation for the same device.
func storeDeactivationResponse(db *sql.DB, req *DeactivationRequest, resp *DeactivationResponse) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin store deactivation response: %w", err)
	}
	defer tx.Rollback()

	dKey := req.deactivationKey()
	for _, stmt := range []string{
		`delete from activation_requests where deactivation_key = ?`,
		`delete from activation_responses where deactivation_key = ?`,
		`delete from deactivation_requests where deactivation_key = ?`,
		`delete from deactivation_responses where deactivation_key = ?`,
	} {
		if _, err := tx.Exec(stmt, dKey); err != nil {
			return fmt.Errorf("cache: retire rows for %s: %w", dKey, err)
		}
	}
	if _, err := tx.Exec(
		`insert or replace into deactivation_responses (deactivation_key, request_id, body, timestamp)
		 values (?, ?, ?, ?)`,
		dKey, resp.RequestID, resp.Body, resp.Timestamp.ToDB(),
	); err != nil {
		return fmt.Errorf("cache: store deactivation response %s: %w", resp.RequestID, err)
	}
	return tx.Commit()
}

func fetchActivationResponse(db *sql.DB, req *ActivationRequest) (*ActivationResponse, error) {
	var resp ActivationResponse
	var ts string
	err := db.QueryRow(
		`select request_id, body, timestamp from activation_responses where activation_key = ?`,
		req.activationKey(),
	).Scan(&resp.RequestID, &resp.Body, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: fetch activation response for %s: %w", req.RequestID, err)
	}
	resp.Timestamp = base.FromDB(ts)
	return &resp, nil
}

func fetchDeactivationResponse(db *sql.DB, req *DeactivationRequest) (*DeactivationResponse, error) {
	var resp DeactivationResponse
	var ts string
	err := db.QueryRow(
		`select request_id, body, timestamp from deactivation_responses where deactivation_key = ?`,
		req.deactivationKey(),
	).Scan(&resp.RequestID, &resp.Body, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: fetch deactivation response for %s: %w", req.RequestID, err)
	}
	resp.Timestamp = base.FromDB(ts)
	return &resp, nil
}

// fetchUnansweredActivations returns activation requests with no
// activation_response row sharing the same activation_key.
func fetchUnansweredActivations(db *sql.DB) ([]*ActivationRequest, error) {
	rows, err := db.Query(`
		select activation_key, deactivation_key, api_key, request_id, session_id, device_date,
			package_id, asnp_id, device_id, os_user_id, is_vdi, is_domain_user, is_virtual,
			os_name, os_version, app_id, app_version, ngl_version, timestamp
		from activation_requests req where not exists (
			select 1 from activation_responses resp
			where resp.activation_key = req.activation_key
		)
		order by req.timestamp`)
	if err != nil {
		return nil, fmt.Errorf("cache: fetch unanswered activations: %w", err)
	}
	defer rows.Close()

	var result []*ActivationRequest
	for rows.Next() {
		req, err := scanActivationRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func fetchUnansweredDeactivations(db *sql.DB) ([]*DeactivationRequest, error) {
	rows, err := db.Query(`
		select deactivation_key, api_key, request_id, package_id,
			device_id, os_user_id, is_vdi, is_domain_user, is_virtual, timestamp
		from deactivation_requests
		order by timestamp`)
	if err != nil {
		return nil, fmt.Errorf("cache: fetch unanswered deactivations: %w", err)
	}
	defer rows.Close()

	var result []*DeactivationRequest
	for rows.Next() {
		req, err := scanDeactivationRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

type answeredActivation struct {
	req  *ActivationRequest
	resp *ActivationResponse
}

func fetchAnsweredActivations(db *sql.DB) ([]answeredActivation, error) {
	rows, err := db.Query(`
		select req.activation_key, req.deactivation_key, req.api_key, req.request_id, req.session_id,
			req.device_date, req.package_id, req.asnp_id, req.device_id, req.os_user_id,
			req.is_vdi, req.is_domain_user, req.is_virtual, req.os_name, req.os_version,
			req.app_id, req.app_version, req.ngl_version, req.timestamp, resp.body
		from activation_requests req
		inner join activation_responses resp on req.activation_key = resp.activation_key
		order by req.timestamp`)
	if err != nil {
		return nil, fmt.Errorf("cache: fetch answered activations: %w", err)
	}
	defer rows.Close()

	var result []answeredActivation
	for rows.Next() {
		var (
			req                                                                          ActivationRequest
			body                                                                          []byte
			activationKey, deactivationKey, deviceDate, asnpID, appID, appVersion, nglVer string
			ts                                                                            string
			isVdi, isDomainUser, isVirtual                                                bool
		)
		if err := rows.Scan(
			&activationKey, &deactivationKey, &req.APIKey, &req.RequestID, &req.SessionID,
			&deviceDate, &req.Body.NpdID, &asnpID, &req.Body.DeviceDetails.DeviceID, &req.Body.DeviceDetails.OsUserID,
			&isVdi, &isDomainUser, &isVirtual, &req.Body.DeviceDetails.OsName, &req.Body.DeviceDetails.OsVersion,
			&appID, &appVersion, &nglVer, &ts, &body,
		); err != nil {
			return nil, fmt.Errorf("cache: scan answered activation: %w", err)
		}
		req.Body.AsnpTemplateID = asnpID
		req.Body.AppDetails.NglAppID = appID
		req.Body.AppDetails.NglAppVersion = appVersion
		req.Body.AppDetails.NglLibVersion = nglVer
		req.Body.DeviceDetails.CurrentDate = deviceDate
		req.Body.DeviceDetails.EnableVdiMarkerExists = isVdi
		req.Body.DeviceDetails.IsOsUserAccountInDomain = isDomainUser
		req.Body.DeviceDetails.IsVirtualEnvironment = isVirtual
		req.Timestamp = base.FromDB(ts)

		result = append(result, answeredActivation{
			req:  &req,
			resp: &ActivationResponse{RequestID: req.RequestID, Timestamp: req.Timestamp, Body: body},
		})
	}
	return result, rows.Err()
}

type answeredDeactivation struct {
	req  *DeactivationRequest
	resp *DeactivationResponse
}

func fetchAnsweredDeactivations(db *sql.DB) ([]answeredDeactivation, error) {
	rows, err := db.Query(`
		select req.deactivation_key, req.api_key, req.request_id, req.package_id,
			req.device_id, req.os_user_id, req.is_vdi, req.is_domain_user, req.is_virtual,
			req.timestamp, resp.body
		from deactivation_requests req
		inner join deactivation_responses resp on req.deactivation_key = resp.deactivation_key
		order by req.timestamp`)
	if err != nil {
		return nil, fmt.Errorf("cache: fetch answered deactivations: %w", err)
	}
	defer rows.Close()

	var result []answeredDeactivation
	for rows.Next() {
		var (
			req  DeactivationRequest
			body []byte
			key  string
			ts   string
		)
		if err := rows.Scan(
			&key, &req.APIKey, &req.RequestID, &req.Params.NpdID, &req.Params.DeviceID,
			&req.Params.OsUserID, &req.Params.EnableVdiMarkerExists, &req.Params.IsOsUserAccountInDomain,
			&req.Params.IsVirtualEnvironment, &ts, &body,
		); err != nil {
			return nil, fmt.Errorf("cache: scan answered deactivation: %w", err)
		}
		req.Timestamp = base.FromDB(ts)
		result = append(result, answeredDeactivation{
			req:  &req,
			resp: &DeactivationResponse{RequestID: req.RequestID, Timestamp: req.Timestamp, Body: body},
		})
	}
	return result, rows.Err()
}

// FRLRequest is either an ActivationRequest or a DeactivationRequest,
// used by fetchUnansweredFRLRequests to present a single timestamp-
// ordered stream of outstanding work to the forwarder.
type FRLRequest struct {
	Activation   *ActivationRequest
	Deactivation *DeactivationRequest
}

func (r FRLRequest) timestamp() base.Timestamp {
	if r.Activation != nil {
		return r.Activation.Timestamp
	}
	return r.Deactivation.Timestamp
}

// fetchUnansweredFRLRequests interleaves outstanding activations and
// deactivations in timestamp order. Activations and deactivations
// interact with each other (storing one retires the other), so a batch
// forwarder must replay them in the order they originally arrived.
func fetchUnansweredFRLRequests(db *sql.DB) ([]FRLRequest, error) {
	activations, err := fetchUnansweredActivations(db)
	if err != nil {
		return nil, err
	}
	deactivations, err := fetchUnansweredDeactivations(db)
	if err != nil {
		return nil, err
	}

	var result []FRLRequest
	i, j := 0, 0
	for i < len(activations) || j < len(deactivations) {
		switch {
		case i >= len(activations):
			result = append(result, FRLRequest{Deactivation: deactivations[j]})
			j++
		case j >= len(deactivations):
			result = append(result, FRLRequest{Activation: activations[i]})
			i++
		case activations[i].Timestamp.Millis() <= deactivations[j].Timestamp.Millis():
			result = append(result, FRLRequest{Activation: activations[i]})
			i++
		default:
			result = append(result, FRLRequest{Deactivation: deactivations[j]})
			j++
		}
	}
	return result, nil
}

// importFRL reads answered request/response pairs from src and stores
// them into db, interleaved in timestamp order because an activation
// stored after a later deactivation (or vice versa) would incorrectly
// retire rows that the original session never retired.
func importFRL(db, src *sql.DB) (int, error) {
	answeredAct, err := fetchAnsweredActivations(src)
	if err != nil {
		return 0, err
	}
	answeredDeact, err := fetchAnsweredDeactivations(src)
	if err != nil {
		return 0, err
	}

	i, j := 0, 0
	for i < len(answeredAct) || j < len(answeredDeact) {
		useAct := j >= len(answeredDeact) ||
			(i < len(answeredAct) && answeredAct[i].req.Timestamp.Millis() <= answeredDeact[j].req.Timestamp.Millis())
		if useAct {
			if err := storeActivationRequest(db, answeredAct[i].req); err != nil {
				return 0, err
			}
			if err := storeActivationResponse(db, answeredAct[i].req, answeredAct[i].resp); err != nil {
				return 0, err
			}
			i++
		} else {
			if err := storeDeactivationRequest(db, answeredDeact[j].req); err != nil {
				return 0, err
			}
			if err := storeDeactivationResponse(db, answeredDeact[j].req, answeredDeact[j].resp); err != nil {
				return 0, err
			}
			j++
		}
	}
	return len(answeredAct) + len(answeredDeact), nil
}

// exportFRL writes every unanswered FRL request from db into dst, for
// later replay against an upstream the local proxy cannot reach.
func exportFRL(db, dst *sql.DB) (int, error) {
	requests, err := fetchUnansweredFRLRequests(db)
	if err != nil {
		return 0, err
	}
	for _, r := range requests {
		if r.Activation != nil {
			if err := storeActivationRequest(dst, r.Activation); err != nil {
				return 0, err
			}
		} else {
			if err := storeDeactivationRequest(dst, r.Deactivation); err != nil {
				return 0, err
			}
		}
	}
	return len(requests), nil
}

func clearFRL(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin clear frl: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		`delete from deactivation_responses`,
		`delete from deactivation_requests`,
		`delete from activation_responses`,
		`delete from activation_requests`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("cache: clear frl: %w", err)
		}
	}
	return tx.Commit()
}

// scanner matches the subset of *sql.Rows used by the row-decoding
// helpers below, letting them read from a *sql.Rows cursor.
type scanner interface {
	Scan(dest ...any) error
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func scanActivationRequest(row scanner) (*ActivationRequest, error) {
	var (
		req                                                       ActivationRequest
		activationKey, deactivationKey                             string
		deviceDate, asnpID, appID, appVersion, nglVer, ts           string
		isVdi, isDomainUser, isVirtual                              bool
	)
	if err := row.Scan(
		&activationKey, &deactivationKey, &req.APIKey, &req.RequestID, &req.SessionID, &deviceDate,
		&req.Body.NpdID, &asnpID, &req.Body.DeviceDetails.DeviceID, &req.Body.DeviceDetails.OsUserID,
		&isVdi, &isDomainUser, &isVirtual, &req.Body.DeviceDetails.OsName, &req.Body.DeviceDetails.OsVersion,
		&appID, &appVersion, &nglVer, &ts,
	); err != nil {
		return nil, fmt.Errorf("cache: scan activation request: %w", err)
	}
	req.Body.AsnpTemplateID = asnpID
	req.Body.AppDetails.NglAppID = appID
	req.Body.AppDetails.NglAppVersion = appVersion
	req.Body.AppDetails.NglLibVersion = nglVer
	req.Body.DeviceDetails.CurrentDate = deviceDate
	req.Body.DeviceDetails.EnableVdiMarkerExists = isVdi
	req.Body.DeviceDetails.IsOsUserAccountInDomain = isDomainUser
	req.Body.DeviceDetails.IsVirtualEnvironment = isVirtual
	req.Timestamp = base.FromDB(ts)
	return &req, nil
}

func scanDeactivationRequest(row scanner) (*DeactivationRequest, error) {
	var req DeactivationRequest
	var key, ts string
	if err := row.Scan(
		&key, &req.APIKey, &req.RequestID, &req.Params.NpdID, &req.Params.DeviceID,
		&req.Params.OsUserID, &req.Params.EnableVdiMarkerExists, &req.Params.IsOsUserAccountInDomain,
		&req.Params.IsVirtualEnvironment, &ts,
	); err != nil {
		return nil, fmt.Errorf("cache: scan deactivation request: %w", err)
	}
	req.Timestamp = base.FromDB(ts)
	return &req, nil
}
