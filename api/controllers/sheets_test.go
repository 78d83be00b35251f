package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ecosheet/ecosheet-backend/api/middleware"
	"github.com/ecosheet/ecosheet-backend/internal/pipeline"
	pkgerrors "github.com/ecosheet/ecosheet-backend/pkg/errors"
	"github.com/ecosheet/ecosheet-backend/pkg/logger"
)

type testPipelineService struct {
	headersFn   func(ctx context.Context, accessToken, spreadsheetID string) (string, []string, error)
	mapFieldsFn func(ctx context.Context, accessToken string, input pipeline.JobInput) (*pipeline.JobResult, error)
}

func (s *testPipelineService) Headers(ctx context.Context, accessToken, spreadsheetID string) (string, []string, error) {
	if s.headersFn != nil {
		return s.headersFn(ctx, accessToken, spreadsheetID)
	}
	return "", nil, nil
}

func (s *testPipelineService) MapFields(ctx context.Context, accessToken string, input pipeline.JobInput) (*pipeline.JobResult, error) {
	if s.mapFieldsFn != nil {
		return s.mapFieldsFn(ctx, accessToken, input)
	}
	return &pipeline.JobResult{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withToken(req *http.Request, token string) *http.Request {
	return req.WithContext(middleware.WithAccessToken(req.Context(), token))
}

func TestSheetHeadersSuccess(t *testing.T) {
	svc := &testPipelineService{
		headersFn: func(_ context.Context, token, spreadsheetID string) (string, []string, error) {
			if token != "tok" {
				t.Fatalf("unexpected token %q", token)
			}
			if spreadsheetID != "sheet-1" {
				t.Fatalf("unexpected spreadsheet %q", spreadsheetID)
			}
			return "원본", []string{"주문번호", "이름"}, nil
		},
	}

	req := withToken(httptest.NewRequest(http.MethodGet, "/api/v1/sheets/headers?spreadsheetId=sheet-1", nil), "tok")
	resp := httptest.NewRecorder()
	SheetHeaders(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			SheetName string   `json:"sheetName"`
			Headers   []string `json:"headers"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.SheetName != "원본" || len(envelope.Data.Headers) != 2 {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestSheetHeadersRequiresToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sheets/headers?spreadsheetId=sheet-1", nil)
	resp := httptest.NewRecorder()
	SheetHeaders(&testPipelineService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestSheetHeadersRequiresSpreadsheetID(t *testing.T) {
	req := withToken(httptest.NewRequest(http.MethodGet, "/api/v1/sheets/headers", nil), "tok")
	resp := httptest.NewRecorder()
	SheetHeaders(&testPipelineService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMapFieldsSuccess(t *testing.T) {
	orderID := "order_id"
	svc := &testPipelineService{
		mapFieldsFn: func(_ context.Context, token string, input pipeline.JobInput) (*pipeline.JobResult, error) {
			if token != "tok" {
				t.Fatalf("unexpected token %q", token)
			}
			if input.SpreadsheetID != "sheet-1" || len(input.Headers) != 2 {
				t.Fatalf("unexpected input %+v", input)
			}
			return &pipeline.JobResult{
				SalesMapping:        map[string]*string{"주문번호": &orderID},
				CustomerMapping:     map[string]*string{"이름": nil},
				Message:             `Sales sheet "제품_판매_기록" created, customer sheet "고객_정보" updated.`,
				SalesSheetName:      "제품_판매_기록",
				CustomerSheetName:   "고객_정보",
				SalesSheetExists:    false,
				CustomerSheetExists: true,
			}, nil
		},
	}

	body := `{"spreadsheetId":"sheet-1","headers":["주문번호","이름"]}`
	req := withToken(httptest.NewRequest(http.MethodPost, "/api/v1/sheets/map-fields", strings.NewReader(body)), "tok")
	resp := httptest.NewRecorder()
	MapFields(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			Message             string             `json:"message"`
			SalesMapping        map[string]*string `json:"salesMapping"`
			SalesSheetName      string             `json:"salesSheetName"`
			CustomerSheetName   string             `json:"customerSheetName"`
			SalesSheetExists    bool               `json:"salesSheetExists"`
			CustomerSheetExists bool               `json:"customerSheetExists"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.SalesMapping["주문번호"] == nil || *envelope.Data.SalesMapping["주문번호"] != "order_id" {
		t.Fatalf("unexpected sales mapping %+v", envelope.Data.SalesMapping)
	}
	if envelope.Data.SalesSheetName != "제품_판매_기록" || envelope.Data.CustomerSheetName != "고객_정보" {
		t.Fatalf("unexpected sheet names %+v", envelope.Data)
	}
	if envelope.Data.SalesSheetExists {
		t.Fatal("new sales sheet must report salesSheetExists=false")
	}
	if !envelope.Data.CustomerSheetExists {
		t.Fatal("existing customer sheet must report customerSheetExists=true")
	}
}

func TestMapFieldsRequiresToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sheets/map-fields", strings.NewReader(`{"spreadsheetId":"sheet-1"}`))
	resp := httptest.NewRecorder()
	MapFields(&testPipelineService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestMapFieldsValidatesBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing spreadsheet id", `{"headers":["a"]}`},
		{"unknown field", `{"spreadsheetId":"s","extra":true}`},
		{"malformed json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withToken(httptest.NewRequest(http.MethodPost, "/api/v1/sheets/map-fields", strings.NewReader(tt.body)), "tok")
			resp := httptest.NewRecorder()
			MapFields(&testPipelineService{}, testLogger())(resp, req)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
		})
	}
}

func TestMapFieldsLockHeldConflict(t *testing.T) {
	svc := &testPipelineService{
		mapFieldsFn: func(context.Context, string, pipeline.JobInput) (*pipeline.JobResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeLockHeld, "another mapping job is already writing to this spreadsheet")
		},
	}
	req := withToken(httptest.NewRequest(http.MethodPost, "/api/v1/sheets/map-fields", strings.NewReader(`{"spreadsheetId":"sheet-1"}`)), "tok")
	resp := httptest.NewRecorder()
	MapFields(svc, testLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeLockHeld) {
		t.Fatalf("unexpected code %q", envelope.Error.Code)
	}
}
