// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/oapi-codegen/oapi-codegen/v2/pkg/codegen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadOpenAPIDoc(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData(openAPISpec)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

// fullServer mounts every optional route.
func fullServer(t *testing.T) http.Handler {
	t.Helper()
	stub := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	return newTestServer(t, nil, Deps{Proxy: stub, Webhook: stub})
}

func TestOpenAPI_RouteParity(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	h := fullServer(t)

	paths := doc.Paths.InMatchingOrder()
	sort.Strings(paths)
	for _, path := range paths {
		for method := range doc.Paths.Value(path).Operations() {
			body := ""
			if method == http.MethodPost {
				body = "{}"
			}
			w := do(h, method, path+"?url=x", body)
			if w.Code == http.StatusNotFound || w.Code == http.StatusMethodNotAllowed {
				t.Fatalf("route not mounted: %s %s -> %d", method, path, w.Code)
			}
		}
	}
}

// Every operation in the document must map to a generated handler, so a
// stale server_gen.go fails here before it fails in production.
func TestOpenAPI_OperationsMatchServerInterface(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	iface := reflect.TypeOf((*ServerInterface)(nil)).Elem()

	ops := 0
	for _, path := range doc.Paths.InMatchingOrder() {
		for method, op := range doc.Paths.Value(path).Operations() {
			ops++
			name := codegen.ToCamelCase(op.OperationID)
			if _, ok := iface.MethodByName(name); !ok {
				t.Errorf("%s %s: ServerInterface has no method %s", method, path, name)
			}
		}
	}
	assert.Equal(t, ops, iface.NumMethod())
}

func TestOpenAPI_ServedDocument(t *testing.T) {
	w := do(fullServer(t), http.MethodGet, PathOpenAPI, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, bytes.Equal(openAPISpec, w.Body.Bytes()))
}

func TestOpenAPI_ResponsesMatchSchema(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	router, err := legacy.NewRouter(doc)
	require.NoError(t, err)
	h := fullServer(t)

	cases := []struct {
		method, target, body string
	}{
		{http.MethodGet, "/api/normalize?url=https%3A%2F%2Fa.example%2Fx.m3u8", ""},
		{http.MethodGet, "/api/normalize?url=%20", ""},
		{http.MethodGet, "/api/normalize", ""},
		{http.MethodGet, "/api/status", ""},
		{http.MethodPost, "/api/stream", `{"url":"https://a.example/x.mp4"}`},
		{http.MethodPost, "/api/stream", `{"url":""}`},
		{http.MethodPost, "/api/probe", `{"url":"https://a.example/x.mp4"}`},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			w := do(h, tc.method, tc.target, tc.body)

			req := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			route, params, err := router.FindRoute(req)
			require.NoError(t, err)

			input := &openapi3filter.ResponseValidationInput{
				RequestValidationInput: &openapi3filter.RequestValidationInput{
					Request:    req,
					PathParams: params,
					Route:      route,
				},
				Status: w.Code,
				Header: w.Header(),
				Body:   io.NopCloser(bytes.NewReader(w.Body.Bytes())),
			}
			require.NoError(t, openapi3filter.ValidateResponse(context.Background(), input), w.Body.String())
		})
	}
}
