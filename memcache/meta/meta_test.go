package meta

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestWriteGetRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      *Request
		expected string
	}{
		{
			name:     "basic get",
			req:      NewRequest(CmdGet, "mykey", nil),
			expected: "mg mykey\r\n",
		},
		{
			name:     "get with value flag",
			req:      NewRequest(CmdGet, "mykey", nil, Flag{Type: FlagReturnValue}),
			expected: "mg mykey v\r\n",
		},
		{
			name: "get with multiple flags",
			req: NewRequest(CmdGet, "mykey", nil,
				Flag{Type: FlagReturnValue},
				Flag{Type: FlagReturnCAS},
				Flag{Type: FlagReturnTTL},
			),
			expected: "mg mykey v c t\r\n",
		},
		{
			name: "get with token flags",
			req: NewRequest(CmdGet, "mykey", nil,
				Flag{Type: FlagReturnValue},
				Flag{Type: FlagOpaque, Token: "mytoken"},
			),
			expected: "mg mykey v Omytoken\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := WriteRequest(&buf, tt.req); err != nil {
				t.Fatalf("WriteRequest failed: %v", err)
			}
			if got := buf.String(); got != tt.expected {
				t.Errorf("WriteRequest() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWriteSetRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      *Request
		expected string
	}{
		{
			name:     "basic set",
			req:      NewRequest(CmdSet, "mykey", []byte("hello")),
			expected: "ms mykey 5\r\nhello\r\n",
		},
		{
			name:     "set with zero-length value",
			req:      NewRequest(CmdSet, "mykey", []byte("")),
			expected: "ms mykey 0\r\n\r\n",
		},
		{
			name:     "set with TTL",
			req:      NewRequest(CmdSet, "mykey", []byte("hello"), Flag{Type: FlagTTL, Token: "60"}),
			expected: "ms mykey 5 T60\r\nhello\r\n",
		},
		{
			name:     "set with mode",
			req:      NewRequest(CmdSet, "mykey", []byte("hello"), Flag{Type: FlagMode, Token: ModeAdd}),
			expected: "ms mykey 5 ME\r\nhello\r\n",
		},
		{
			name: "set with CAS and client flags",
			req: NewRequest(CmdSet, "mykey", []byte("hello"),
				Flag{Type: FlagCAS, Token: "12345"},
				Flag{Type: FlagClientFlags, Token: "30"},
			),
			expected: "ms mykey 5 C12345 F30\r\nhello\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := WriteRequest(&buf, tt.req); err != nil {
				t.Fatalf("WriteRequest failed: %v", err)
			}
			if got := buf.String(); got != tt.expected {
				t.Errorf("WriteRequest() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWriteDeleteRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      *Request
		expected string
	}{
		{
			name:     "basic delete",
			req:      NewRequest(CmdDelete, "mykey", nil),
			expected: "md mykey\r\n",
		},
		{
			name:     "delete with CAS",
			req:      NewRequest(CmdDelete, "mykey", nil, Flag{Type: FlagCAS, Token: "12345"}),
			expected: "md mykey C12345\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := WriteRequest(&buf, tt.req); err != nil {
				t.Fatalf("WriteRequest failed: %v", err)
			}
			if got := buf.String(); got != tt.expected {
				t.Errorf("WriteRequest() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWriteArithmeticRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      *Request
		expected string
	}{
		{
			name:     "basic increment",
			req:      NewRequest(CmdArithmetic, "counter", nil, Flag{Type: FlagReturnValue}),
			expected: "ma counter v\r\n",
		},
		{
			name: "increment with delta",
			req: NewRequest(CmdArithmetic, "counter", nil,
				Flag{Type: FlagReturnValue},
				Flag{Type: FlagDelta, Token: "5"},
			),
			expected: "ma counter v D5\r\n",
		},
		{
			name: "decrement",
			req: NewRequest(CmdArithmetic, "counter", nil,
				Flag{Type: FlagReturnValue},
				Flag{Type: FlagMode, Token: ModeDecrement},
			),
			expected: "ma counter v MD\r\n",
		},
		{
			name: "auto-create with initial value",
			req: NewRequest(CmdArithmetic, "counter", nil,
				Flag{Type: FlagReturnValue},
				Flag{Type: FlagVivify, Token: "60"},
				Flag{Type: FlagInitialValue, Token: "100"},
			),
			expected: "ma counter v N60 J100\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := WriteRequest(&buf, tt.req); err != nil {
				t.Fatalf("WriteRequest failed: %v", err)
			}
			if got := buf.String(); got != tt.expected {
				t.Errorf("WriteRequest() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWriteNoOpRequest(t *testing.T) {
	req := NewRequest(CmdNoOp, "", nil)
	var buf bytes.Buffer
	if _, err := WriteRequest(&buf, req); err != nil {
		t.Fatalf("WriteRequest failed: %v", err)
	}
	if got, expected := buf.String(), "mn\r\n"; got != expected {
		t.Errorf("WriteRequest() = %q, want %q", got, expected)
	}
}

func TestWriteFlushAllRequest(t *testing.T) {
	req := NewRequest(CmdFlushAll, "", nil)
	var buf bytes.Buffer
	if _, err := WriteRequest(&buf, req); err != nil {
		t.Fatalf("WriteRequest failed: %v", err)
	}
	if got, expected := buf.String(), "flush_all\r\n"; got != expected {
		t.Errorf("WriteRequest() = %q, want %q", got, expected)
	}
}

func TestWriteVersionRequest(t *testing.T) {
	req := NewRequest(CmdVersion, "", nil)
	var buf bytes.Buffer
	if _, err := WriteRequest(&buf, req); err != nil {
		t.Fatalf("WriteRequest failed: %v", err)
	}
	if got, expected := buf.String(), "version\r\n"; got != expected {
		t.Errorf("WriteRequest() = %q, want %q", got, expected)
	}
}

func TestReadLineResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "ok", input: "OK\r\n", expected: "OK"},
		{name: "version", input: "VERSION 1.6.21\r\n", expected: "VERSION 1.6.21"},
		{name: "client error", input: "CLIENT_ERROR bad command line\r\n", wantErr: true},
		{name: "server error", input: "SERVER_ERROR out of memory\r\n", wantErr: true},
		{name: "generic error", input: "ERROR\r\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			got, err := ReadLineResponse(r)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ReadLineResponse(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadLineResponse(%q) failed: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ReadLineResponse(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestReadResponse_HD(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedFlags []Flag
	}{
		{name: "HD basic", input: "HD\r\n"},
		{
			name:  "HD with flags",
			input: "HD c12345 t3600\r\n",
			expectedFlags: []Flag{
				{Type: FlagReturnCAS, Token: "12345"},
				{Type: FlagReturnTTL, Token: "3600"},
			},
		},
		{
			name:          "HD with opaque",
			input:         "HD Omytoken\r\n",
			expectedFlags: []Flag{{Type: FlagOpaque, Token: "mytoken"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			resp, err := ReadResponse(r)
			if err != nil {
				t.Fatalf("ReadResponse failed: %v", err)
			}
			if resp.Status != StatusHD {
				t.Errorf("Status = %q, want HD", resp.Status)
			}
			if len(resp.Flags) != len(tt.expectedFlags) {
				t.Fatalf("Flags length = %d, want %d", len(resp.Flags), len(tt.expectedFlags))
			}
			for i, flag := range resp.Flags {
				if flag != tt.expectedFlags[i] {
					t.Errorf("Flag[%d] = %+v, want %+v", i, flag, tt.expectedFlags[i])
				}
			}
		})
	}
}

func TestReadResponse_VA(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedData  []byte
		expectedFlags []Flag
	}{
		{name: "VA basic", input: "VA 5\r\nhello\r\n", expectedData: []byte("hello")},
		{
			name:         "VA with flags",
			input:        "VA 5 c12345 t3600\r\nhello\r\n",
			expectedData: []byte("hello"),
			expectedFlags: []Flag{
				{Type: FlagReturnCAS, Token: "12345"},
				{Type: FlagReturnTTL, Token: "3600"},
			},
		},
		{
			name:          "VA with win flag",
			input:         "VA 5 W\r\nhello\r\n",
			expectedData:  []byte("hello"),
			expectedFlags: []Flag{{Type: FlagWin}},
		},
		{name: "VA zero-length", input: "VA 0\r\n\r\n", expectedData: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			resp, err := ReadResponse(r)
			if err != nil {
				t.Fatalf("ReadResponse failed: %v", err)
			}
			if resp.Status != StatusVA {
				t.Errorf("Status = %q, want VA", resp.Status)
			}
			if !bytes.Equal(resp.Data, tt.expectedData) {
				t.Errorf("Data = %q, want %q", resp.Data, tt.expectedData)
			}
			if len(resp.Flags) != len(tt.expectedFlags) {
				t.Errorf("Flags length = %d, want %d", len(resp.Flags), len(tt.expectedFlags))
			}
		})
	}
}

func TestReadResponse_InvalidVASize(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedError string
	}{
		{name: "negative size", input: "VA -1\r\n", expectedError: "negative size in VA response"},
		{name: "missing size", input: "VA\r\n", expectedError: "VA response missing size"},
		{name: "invalid size format", input: "VA abc\r\n", expectedError: "invalid size in VA response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			_, err := ReadResponse(r)
			parseErr, ok := err.(*ParseError)
			if !ok {
				t.Fatalf("Expected ParseError, got %T", err)
			}
			if parseErr.Message != tt.expectedError {
				t.Errorf("Error message = %q, want %q", parseErr.Message, tt.expectedError)
			}
		})
	}
}

func TestReadResponse_Errors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		shouldClose bool
	}{
		{name: "CLIENT_ERROR", input: "CLIENT_ERROR bad command line format\r\n", shouldClose: true},
		{name: "SERVER_ERROR", input: "SERVER_ERROR out of memory\r\n", shouldClose: false},
		{name: "ERROR", input: "ERROR\r\n", shouldClose: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			resp, err := ReadResponse(r)
			if err != nil {
				t.Fatalf("ReadResponse returned error: %v", err)
			}
			if !resp.HasError() {
				t.Fatal("HasError() = false, want true")
			}
			if ShouldCloseConnection(resp.Error) != tt.shouldClose {
				t.Errorf("ShouldCloseConnection() = %v, want %v", ShouldCloseConnection(resp.Error), tt.shouldClose)
			}
		})
	}
}

func TestReadResponse_OtherStatuses(t *testing.T) {
	tests := []struct {
		input    string
		expected StatusType
	}{
		{"EN\r\n", StatusEN},
		{"NF\r\n", StatusNF},
		{"NS\r\n", StatusNS},
		{"EX\r\n", StatusEX},
		{"MN\r\n", StatusMN},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			resp, err := ReadResponse(r)
			if err != nil {
				t.Fatalf("ReadResponse failed: %v", err)
			}
			if resp.Status != tt.expected {
				t.Errorf("Status = %q, want %q", resp.Status, tt.expected)
			}
		})
	}
}

func TestWriteMultipleRequests(t *testing.T) {
	reqs := []*Request{
		NewRequest(CmdGet, "key1", nil, Flag{Type: FlagReturnValue}, Flag{Type: FlagQuiet}),
		NewRequest(CmdGet, "key2", nil, Flag{Type: FlagReturnValue}, Flag{Type: FlagQuiet}),
		NewRequest(CmdGet, "key3", nil, Flag{Type: FlagReturnValue}),
		NewRequest(CmdNoOp, "", nil),
	}

	var buf bytes.Buffer
	for _, req := range reqs {
		if _, err := WriteRequest(&buf, req); err != nil {
			t.Fatalf("WriteRequest failed: %v", err)
		}
	}

	expected := "mg key1 v q\r\nmg key2 v q\r\nmg key3 v\r\nmn\r\n"
	if got := buf.String(); got != expected {
		t.Errorf("Multiple WriteRequest() = %q, want %q", got, expected)
	}
}

func TestReadResponseBatch_StopAtNoOp(t *testing.T) {
	input := "VA 5\r\nhello\r\nHD\r\nEN\r\nMN\r\n"
	r := bufio.NewReader(strings.NewReader(input))

	resps, err := ReadResponseBatch(r, 0, true)
	if err != nil {
		t.Fatalf("ReadResponseBatch failed: %v", err)
	}
	if len(resps) != 3 {
		t.Fatalf("got %d responses, want 3", len(resps))
	}
	if resps[0].Status != StatusVA || resps[1].Status != StatusHD || resps[2].Status != StatusEN {
		t.Errorf("unexpected statuses: %v %v %v", resps[0].Status, resps[1].Status, resps[2].Status)
	}
}

func TestResponse_HelperMethods(t *testing.T) {
	t.Run("IsSuccess", func(t *testing.T) {
		tests := []struct {
			status   StatusType
			expected bool
		}{
			{StatusHD, true}, {StatusVA, true}, {StatusMN, true},
			{StatusEN, false}, {StatusNF, false}, {StatusNS, false}, {StatusEX, false},
		}
		for _, tt := range tests {
			resp := &Response{Status: tt.status}
			if got := resp.IsSuccess(); got != tt.expected {
				t.Errorf("IsSuccess() for %q = %v, want %v", tt.status, got, tt.expected)
			}
		}
	})

	t.Run("IsMiss", func(t *testing.T) {
		tests := []struct {
			status   StatusType
			expected bool
		}{
			{StatusEN, true}, {StatusNF, true}, {StatusHD, false}, {StatusVA, false},
		}
		for _, tt := range tests {
			resp := &Response{Status: tt.status}
			if got := resp.IsMiss(); got != tt.expected {
				t.Errorf("IsMiss() for %q = %v, want %v", tt.status, got, tt.expected)
			}
		}
	})

	t.Run("HasWinFlag", func(t *testing.T) {
		resp := &Response{Flags: []Flag{{Type: FlagWin}}}
		if !resp.HasWinFlag() {
			t.Error("HasWinFlag() = false, want true")
		}
	})

	t.Run("GetFlagToken", func(t *testing.T) {
		resp := &Response{Flags: []Flag{
			{Type: FlagReturnCAS, Token: "12345"},
			{Type: FlagReturnTTL, Token: "3600"},
		}}
		if got := resp.GetFlagToken(FlagReturnCAS); got != "12345" {
			t.Errorf("GetFlagToken(c) = %q, want %q", got, "12345")
		}
		if got := resp.GetFlagToken(FlagReturnTTL); got != "3600" {
			t.Errorf("GetFlagToken(t) = %q, want %q", got, "3600")
		}
		if got := resp.GetFlagToken('x'); got != "" {
			t.Errorf("GetFlagToken(x) = %q, want empty", got)
		}
	})
}

func TestRequest_HelperMethods(t *testing.T) {
	t.Run("HasFlag", func(t *testing.T) {
		req := NewRequest(CmdGet, "mykey", nil, Flag{Type: FlagReturnValue}, Flag{Type: FlagReturnCAS})
		if !req.HasFlag(FlagReturnValue) {
			t.Error("HasFlag(v) = false, want true")
		}
		if req.HasFlag(FlagReturnTTL) {
			t.Error("HasFlag(t) = true, want false")
		}
	})

	t.Run("GetFlag", func(t *testing.T) {
		req := NewRequest(CmdGet, "mykey", nil, Flag{Type: FlagVivify, Token: "30"})
		flag, ok := req.GetFlag(FlagVivify)
		if !ok {
			t.Fatal("GetFlag(N) ok = false, want true")
		}
		if flag.Token != "30" {
			t.Errorf("GetFlag(N).Token = %q, want %q", flag.Token, "30")
		}
		if _, ok := req.GetFlag('x'); ok {
			t.Error("GetFlag(x) ok = true, want false")
		}
	})

	t.Run("AddFlag", func(t *testing.T) {
		req := NewRequest(CmdGet, "mykey", nil)
		req.AddFlag(Flag{Type: FlagReturnValue})
		if !req.HasFlag(FlagReturnValue) {
			t.Error("HasFlag(v) after AddFlag = false, want true")
		}
	})
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		hasBase64Flag bool
		wantErr       bool
		errContains   string
	}{
		{name: "valid simple key", key: "mykey"},
		{name: "valid key with special chars", key: "key:foo-bar_baz.v1"},
		{name: "empty key", key: "", wantErr: true, errContains: "empty"},
		{name: "key too long", key: string(make([]byte, 251)), wantErr: true, errContains: "maximum length"},
		{name: "key with space", key: "my key", wantErr: true, errContains: "whitespace"},
		{name: "key with tab", key: "my\tkey", wantErr: true, errContains: "whitespace"},
		{name: "key with space but base64 flag", key: "bXkga2V5", hasBase64Flag: true},
		{name: "max length key", key: string(make([]byte, 250))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key, tt.hasBase64Flag)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errContains)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error = %v, want error containing %q", err, tt.errContains)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestWriteRequest_InvalidKey(t *testing.T) {
	tests := []*Request{
		NewRequest(CmdGet, "", nil),
		NewRequest(CmdGet, string(make([]byte, 251)), nil),
		NewRequest(CmdGet, "my key", nil),
	}

	for _, req := range tests {
		var buf bytes.Buffer
		if _, err := WriteRequest(&buf, req); err == nil {
			t.Errorf("WriteRequest(%+v) expected error for invalid key, got nil", req)
		}
	}
}

func TestWriteRequest_ValidKeyWithBase64Flag(t *testing.T) {
	req := NewRequest(CmdGet, "bXkga2V5", nil, Flag{Type: FlagBase64Key})

	var buf bytes.Buffer
	if _, err := WriteRequest(&buf, req); err != nil {
		t.Fatalf("unexpected error for base64 key: %v", err)
	}

	if expected := "mg bXkga2V5 b\r\n"; buf.String() != expected {
		t.Errorf("WriteRequest() = %q, want %q", buf.String(), expected)
	}
}

func TestParseDebugParams(t *testing.T) {
	if params := ParseDebugParams([]byte("")); len(params) != 0 {
		t.Errorf("ParseDebugParams(empty) = %v, want empty map", params)
	}

	params := ParseDebugParams([]byte("size=1024 ttl=3600 flags=0"))
	expected := map[string]string{"size": "1024", "ttl": "3600", "flags": "0"}
	for key, want := range expected {
		if got := params[key]; got != want {
			t.Errorf("ParseDebugParams()[%q] = %q, want %q", key, got, want)
		}
	}

	params = ParseDebugParams([]byte("key1= key2=value"))
	if params["key1"] != "" {
		t.Errorf("ParseDebugParams()[key1] = %q, want empty", params["key1"])
	}
	if params["key2"] != "value" {
		t.Errorf("ParseDebugParams()[key2] = %q, want %q", params["key2"], "value")
	}
}

func TestReadResponse_ME(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("ME mykey size=1024 ttl=3600\r\n"))
	resp, err := ReadResponse(r)
	if err != nil {
		t.Fatalf("ReadResponse() error = %v", err)
	}
	if resp.Status != StatusME {
		t.Errorf("Status = %q, want %q", resp.Status, StatusME)
	}
	if expected := "size=1024 ttl=3600"; string(resp.Data) != expected {
		t.Errorf("Data = %q, want %q", resp.Data, expected)
	}
}

func TestFormatFlagInt(t *testing.T) {
	tests := []struct {
		name      string
		flagType  FlagType
		value     int
		wantToken string
	}{
		{name: "small value", flagType: FlagTTL, value: 0, wantToken: "0"},
		{name: "one minute", flagType: FlagTTL, value: 60, wantToken: "60"},
		{name: "cached one hour", flagType: FlagTTL, value: 3600, wantToken: "3600"},
		{name: "cached one day", flagType: FlagTTL, value: 86400, wantToken: "86400"},
		{name: "non-cached", flagType: FlagTTL, value: 42, wantToken: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := FormatFlagInt(tt.flagType, tt.value)
			if flag.Type != tt.flagType {
				t.Errorf("Type = %v, want %v", flag.Type, tt.flagType)
			}
			if flag.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", flag.Token, tt.wantToken)
			}
		})
	}
}
