package status

import "testing"

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		wantCode Code
		wantStr  string
	}{
		{
			name:     "basic error",
			err:      New(InvalidArgument, "bad input"),
			wantCode: InvalidArgument,
			wantStr:  "InvalidArgument: bad input",
		},
		{
			name:     "formatted error",
			err:      Newf(NotFound, "user %s not found", "123"),
			wantCode: NotFound,
			wantStr:  "NotFound: user 123 not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Code(); got != tt.wantCode {
				t.Errorf("Code() = %v, want %v", got, tt.wantCode)
			}
			if got := tt.err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestNilErrorIsOK(t *testing.T) {
	var e *Error
	if !e.IsOK() {
		t.Error("nil *Error should report OK")
	}
	if code := e.Code(); code != OK {
		t.Errorf("nil *Error Code() = %v, want OK", code)
	}
}

func TestIsOK(t *testing.T) {
	if !New(OK, "").IsOK() {
		t.Error("OK status should report IsOK")
	}
	if New(Internal, "boom").IsOK() {
		t.Error("Internal status should not report IsOK")
	}
}
