package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]interface{}
}

func newTestValues(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*SheetValues, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	v, err := NewSheetValues(context.Background(), "sheet-1",
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return v, &calls
}

func TestGetStringifiesCells(t *testing.T) {
	v, calls := newTestValues(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"range":"Tasks!A1:I3","majorDimension":"ROWS","values":[["ID","Title"],[1,"Ship"],["2"]]}`))
	})

	rows, err := v.Get(context.Background(), "Tasks!A1:I")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"ID", "Title"}, {"1", "Ship"}, {"2"}}, rows)

	require.Len(t, *calls, 1)
	c := (*calls)[0]
	require.Equal(t, http.MethodGet, c.method)
	require.True(t, strings.HasSuffix(c.path, "/spreadsheets/sheet-1/values/Tasks!A1:I"), c.path)
}

func TestUpdateWritesRawValues(t *testing.T) {
	v, calls := newTestValues(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"updatedRows":2}`))
	})

	err := v.Update(context.Background(), "Tasks!A1:I", [][]string{{"ID", "Title"}, {"1", "=SUM(A1)"}})
	require.NoError(t, err)

	c := (*calls)[0]
	require.Equal(t, http.MethodPut, c.method)
	require.Contains(t, c.query, "valueInputOption=RAW")
	require.Equal(t, []interface{}{
		[]interface{}{"ID", "Title"},
		[]interface{}{"1", "=SUM(A1)"},
	}, c.body["values"])
}

func TestClear(t *testing.T) {
	v, calls := newTestValues(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"clearedRange":"Tasks!A1:I"}`))
	})

	require.NoError(t, v.Clear(context.Background(), "Tasks!A1:I"))
	c := (*calls)[0]
	require.Equal(t, http.MethodPost, c.method)
	require.True(t, strings.HasSuffix(c.path, ":clear"), c.path)
}

func TestAPIErrorIsWrapped(t *testing.T) {
	v, _ := newTestValues(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission"}}`))
	})

	_, err := v.Get(context.Background(), "Tasks!A1:I")
	require.ErrorContains(t, err, "reading Tasks!A1:I")
	require.ErrorContains(t, err, "permission")
}
