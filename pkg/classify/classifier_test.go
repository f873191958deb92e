package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/robustfetch/pkg/types"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want Action
	}{
		{99, ActionPanic},
		{100, ActionPanic},
		{200, ActionPanic},
		{301, ActionPanic},
		{399, ActionPanic},
		{400, ActionLimitedRetry},
		{401, ActionMoveOn},
		{403, ActionMoveOn},
		{404, ActionLimitedRetry},
		{408, ActionRetry},
		{410, ActionMoveOn},
		{429, ActionRetry},
		{499, ActionMoveOn},
		{500, ActionRetry},
		{503, ActionRetry},
		{599, ActionRetry},
		{600, ActionPanic},
		{999, ActionPanic},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.code), func(t *testing.T) {
			got, ok := Classify(StatusSignal(tt.code))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	tests := []struct {
		name   string
		signal Signal
		want   Action
		ok     bool
	}{
		{"timeout", TransportSignal(KindTimeout, ""), ActionRetry, true},
		{"unknown host", TransportSignal(KindUnknownHost, ""), ActionRetry, true},
		{"connection reset", TransportSignal(KindConnectionReset, ""), ActionLimitedRetry, true},
		{"local not found", TransportSignal(KindResourceNotFound, ""), ActionMoveOn, true},
		{"io with embedded 503", TransportSignal(KindGenericIO, "Server returned HTTP response code: 503 for URL"), ActionRetry, true},
		{"io with embedded 403", TransportSignal(KindGenericIO, "unexpected status code: 403"), ActionMoveOn, true},
		{"io without code", TransportSignal(KindGenericIO, "unexpected EOF"), 0, false},
		{"other", TransportSignal(KindOther, "boom"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.signal)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestActionSeverity(t *testing.T) {
	assert.Less(t, ActionRetry, ActionLimitedRetry)
	assert.Less(t, ActionLimitedRetry, ActionMoveOn)
	assert.Less(t, ActionMoveOn, ActionPanic)

	assert.False(t, ActionRetry.Terminal())
	assert.False(t, ActionMoveOn.Terminal())
	assert.True(t, ActionPanic.Terminal())
	assert.True(t, Action(0).Terminal())
	assert.True(t, Action(42).Terminal())

	assert.Equal(t, "limited_retry", ActionLimitedRetry.String())
	assert.Equal(t, "unknown", Action(0).String())
}

func TestEmbeddedStatus(t *testing.T) {
	tests := []struct {
		msg  string
		code int
		ok   bool
	}{
		{"Server returned HTTP response code: 400 for URL: http://x", 400, true},
		{"http 502: bad gateway", 502, true},
		{"Status: 404", 404, true},
		{`Get "http://127.0.0.1:8080/x": EOF`, 0, false},
		{"no digits here", 0, false},
		{"status 12345", 0, false},
	}

	for _, tt := range tests {
		code, ok := EmbeddedStatus(tt.msg)
		assert.Equal(t, tt.ok, ok, tt.msg)
		assert.Equal(t, tt.code, code, tt.msg)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestSignalFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Signal
	}{
		{
			name: "status error",
			err:  fmt.Errorf("get page: %w", types.NewStatusError(404, "http://x")),
			want: StatusSignal(404),
		},
		{
			name: "econnreset",
			err:  &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)},
			want: Signal{Kind: KindConnectionReset},
		},
		{
			name: "bad location",
			err:  errors.New(`failed to parse Location header "http://x/\x7f": invalid control character`),
			want: Signal{Kind: KindConnectionReset},
		},
		{
			name: "dns",
			err:  &net.DNSError{Err: "no such host", Name: "nowhere.invalid", IsNotFound: true},
			want: Signal{Kind: KindUnknownHost},
		},
		{
			name: "net timeout",
			err:  fmt.Errorf("read body: %w", timeoutError{}),
			want: Signal{Kind: KindTimeout},
		},
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: Signal{Kind: KindTimeout},
		},
		{
			name: "local not found",
			err:  &os.PathError{Op: "open", Path: "/missing/dir/file", Err: syscall.ENOENT},
			want: Signal{Kind: KindResourceNotFound},
		},
		{
			name: "unexpected eof",
			err:  fmt.Errorf("copy body: %w", io.ErrUnexpectedEOF),
			want: Signal{Kind: KindGenericIO},
		},
		{
			name: "embedded code",
			err:  errors.New("Server returned HTTP response code: 500"),
			want: Signal{Kind: KindGenericIO},
		},
		{
			name: "anything else",
			err:  errors.New("tls: handshake failure"),
			want: Signal{Kind: KindOther},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SignalFromError(tt.err)
			require.True(t, ok)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Status, got.Status)
		})
	}

	_, ok := SignalFromError(nil)
	assert.False(t, ok)
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, CategoryResourceAbsent, Categorize(StatusSignal(404)))
	assert.Equal(t, CategoryClientRejected, Categorize(StatusSignal(403)))
	assert.Equal(t, CategoryServerFault, Categorize(StatusSignal(503)))
	assert.Equal(t, CategoryProtocolViolation, Categorize(StatusSignal(200)))
	assert.Equal(t, CategoryProtocolViolation, Categorize(StatusSignal(700)))
	assert.Equal(t, CategoryTransientNetwork, Categorize(TransportSignal(KindUnknownHost, "")))
	assert.Equal(t, CategoryMalformedRedirect, Categorize(TransportSignal(KindConnectionReset, "")))
	assert.Equal(t, CategoryUnclassifiable, Categorize(TransportSignal(KindOther, "")))
}
