package envelope

import (
	"encoding/json"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantWrap bool
		wantCode string
		wantMsg  string
		wantData string
	}{
		{
			name:     "success envelope",
			body:     `{"code":0,"message":"ok","data":{"items":[1,2],"total":7,"pages":1}}`,
			wantWrap: true,
			wantOK:   true,
			wantCode: "0",
			wantMsg:  "ok",
			wantData: `{"items":[1,2],"total":7,"pages":1}`,
		},
		{
			name:     "application error",
			body:     `{"code":4001,"message":"invalid filter"}`,
			wantWrap: true,
			wantOK:   false,
			wantCode: "4001",
			wantMsg:  "invalid filter",
		},
		{
			name:     "string code is never success",
			body:     `{"code":"0","data":1}`,
			wantWrap: true,
			wantOK:   false,
			wantCode: "0",
			wantData: `1`,
		},
		{
			name:     "null code",
			body:     `{"code":null,"message":"weird"}`,
			wantWrap: true,
			wantOK:   false,
			wantMsg:  "weird",
		},
		{
			name:     "object without code",
			body:     `{"items":[]}`,
			wantWrap: false,
		},
		{
			name:     "array body",
			body:     `[1,2,3]`,
			wantWrap: false,
		},
		{
			name:     "html page",
			body:     `<html><body>502 Bad Gateway</body></html>`,
			wantWrap: false,
		},
		{
			name:     "empty body",
			body:     ``,
			wantWrap: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, wrapped := Decode([]byte(tt.body))
			if wrapped != tt.wantWrap {
				t.Fatalf("Decode() wrapped = %v, want %v", wrapped, tt.wantWrap)
			}
			if !wrapped {
				return
			}

			if env.OK() != tt.wantOK {
				t.Errorf("OK() = %v, want %v", env.OK(), tt.wantOK)
			}
			if env.CodeString() != tt.wantCode {
				t.Errorf("CodeString() = %q, want %q", env.CodeString(), tt.wantCode)
			}
			if env.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", env.Message, tt.wantMsg)
			}
			if tt.wantData != "" && string(env.Data) != tt.wantData {
				t.Errorf("Data = %s, want %s", env.Data, tt.wantData)
			}
		})
	}
}

func TestDecode_DataIsUsable(t *testing.T) {
	env, ok := Decode([]byte(`{"code":0,"message":"ok","data":{"items":["a","b"],"total":7,"pages":1}}`))
	if !ok || !env.OK() {
		t.Fatal("expected success envelope")
	}

	var page struct {
		Items []string `json:"items"`
		Total int      `json:"total"`
		Pages int      `json:"pages"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if len(page.Items) != 2 || page.Total != 7 || page.Pages != 1 {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Payload
	}{
		{
			name: "full payload",
			body: `{"code":"OPS_DISABLED","message":"Ops monitoring is disabled"}`,
			want: Payload{Code: "OPS_DISABLED", Message: "Ops monitoring is disabled"},
		},
		{
			name: "numeric code and detail",
			body: `{"code":500,"detail":"boom"}`,
			want: Payload{Code: "500", Detail: "boom"},
		},
		{
			name: "html error page",
			body: `<!DOCTYPE html><html>oops</html>`,
			want: Payload{},
		},
		{
			name: "truncated json",
			body: `{"code":1,"mess`,
			want: Payload{},
		},
		{
			name: "non-scalar message",
			body: `{"message":{"nested":true}}`,
			want: Payload{},
		},
		{
			name: "null body",
			body: `null`,
			want: Payload{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodePayload([]byte(tt.body))
			if got != tt.want {
				t.Errorf("DecodePayload() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
