package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const restPrefix = "/rest/v1"

// PostgRESTStore speaks the Supabase REST dialect over HTTP.
type PostgRESTStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewPostgRESTStore constructs the REST-backed store. A nil client gets one with the given timeout.
func NewPostgRESTStore(baseURL, apiKey string, timeout time.Duration, client *http.Client) *PostgRESTStore {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &PostgRESTStore{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

type restError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// Select loads every row of table matching all filters, ordered by id.
func (s *PostgRESTStore) Select(ctx context.Context, table string, dest interface{}, filters ...Filter) error {
	if err := checkTable(table); err != nil {
		return newError("select", table, err)
	}
	query := url.Values{}
	query.Set("select", strings.Join(columnNames(table), ","))
	query.Set("order", "id.asc")
	for _, f := range filters {
		query.Set(f.Column, "eq."+fmt.Sprint(f.Value))
	}
	return s.do(ctx, "select", table, http.MethodGet, s.tableURL(table, query), nil, dest)
}

// Insert writes one row and decodes the stored representation into dest.
func (s *PostgRESTStore) Insert(ctx context.Context, table string, row Row, dest interface{}) error {
	if err := checkTable(table); err != nil {
		return newError("insert", table, err)
	}
	query := url.Values{}
	query.Set("select", strings.Join(columnNames(table), ","))
	return s.do(ctx, "insert", table, http.MethodPost, s.tableURL(table, query), row, dest)
}

// Update patches the row with the id.
func (s *PostgRESTStore) Update(ctx context.Context, table string, row Row, id int64) error {
	if err := checkTable(table); err != nil {
		return newError("update", table, err)
	}
	body := make(Row, len(row))
	for column, value := range row {
		if column != "id" {
			body[column] = value
		}
	}
	return s.mutateByID(ctx, "update", table, http.MethodPatch, id, body)
}

// Delete removes the row with the id.
func (s *PostgRESTStore) Delete(ctx context.Context, table string, id int64) error {
	if err := checkTable(table); err != nil {
		return newError("delete", table, err)
	}
	return s.mutateByID(ctx, "delete", table, http.MethodDelete, id, nil)
}

// Call invokes a database function exposed under /rpc.
func (s *PostgRESTStore) Call(ctx context.Context, procedure string, params map[string]interface{}, dest interface{}) error {
	if !identifierPattern.MatchString(procedure) {
		return newError("rpc", procedure, fmt.Errorf("invalid procedure name %q", procedure))
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	endpoint := s.baseURL + restPrefix + "/rpc/" + procedure
	return s.do(ctx, "rpc", procedure, http.MethodPost, endpoint, params, dest)
}

// mutateByID asks for the affected rows back so a missing id can be told apart from success.
func (s *PostgRESTStore) mutateByID(ctx context.Context, op, table, method string, id int64, body interface{}) error {
	query := url.Values{}
	query.Set("id", fmt.Sprintf("eq.%d", id))
	query.Set("select", "id")
	var affected []json.RawMessage
	if err := s.do(ctx, op, table, method, s.tableURL(table, query), body, &affected); err != nil {
		return err
	}
	if len(affected) == 0 {
		return notFound(op, table, id)
	}
	return nil
}

func (s *PostgRESTStore) tableURL(table string, query url.Values) string {
	return s.baseURL + restPrefix + "/" + table + "?" + query.Encode()
}

func (s *PostgRESTStore) do(ctx context.Context, op, table, method, endpoint string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return newError(op, table, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return newError(op, table, err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return newError(op, table, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(op, table, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		var restErr restError
		if jsonErr := json.Unmarshal(raw, &restErr); jsonErr != nil || restErr.Message == "" {
			restErr.Message = fmt.Sprintf("%s %s: %s", op, table, http.StatusText(resp.StatusCode))
		}
		return &Error{Op: op, Table: table, Message: restErr.Message, Err: fmt.Errorf("status %d code %q", resp.StatusCode, restErr.Code)}
	}

	if dest == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return newError(op, table, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// columnNames strips SQL expressions from the projection, keeping the result column names.
func columnNames(table string) []string {
	cols := columns[table]
	names := make([]string, len(cols))
	for i, col := range cols {
		if idx := strings.LastIndex(col, " AS "); idx >= 0 {
			col = col[idx+len(" AS "):]
		}
		names[i] = col
	}
	return names
}
