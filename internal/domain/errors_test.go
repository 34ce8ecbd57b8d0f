package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestListError(t *testing.T) {
	err := NewListError("/in/", io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrListFailure) {
		t.Error("ListError should match ErrListFailure")
	}
	if errors.Is(err, ErrStoreFailure) {
		t.Error("ListError should not match ErrStoreFailure")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("ListError should unwrap to the underlying error")
	}
	if got, want := err.Error(), "list /in/: unexpected EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  *StoreError
		want string
	}{
		{
			name: "with key",
			err:  NewStoreError("put", "/in/a.txt", io.EOF),
			want: `store put "/in/a.txt": EOF`,
		},
		{
			name: "store wide",
			err:  NewStoreError("open", "", io.EOF),
			want: "store open: EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, ErrStoreFailure) {
				t.Error("StoreError should match ErrStoreFailure")
			}
		})
	}
}

func TestSinkError_WrappedTwice(t *testing.T) {
	err := fmt.Errorf("cycle 3: %w", NewSinkError("/in/a.txt", context.DeadlineExceeded))

	if !errors.Is(err, ErrSinkFailure) {
		t.Error("wrapped SinkError should match ErrSinkFailure")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("wrapped SinkError should unwrap to context.DeadlineExceeded")
	}

	var sinkErr *SinkError
	if !errors.As(err, &sinkErr) {
		t.Fatal("errors.As should find *SinkError")
	}
	if sinkErr.Key != "/in/a.txt" {
		t.Errorf("Key = %q, want %q", sinkErr.Key, "/in/a.txt")
	}
}
