package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/teru01/filedb-go/dberr"
)

func TestIsAndCodeOf(t *testing.T) {
	inner := dberr.New(dberr.CodeCorruptData, "bad record", errors.New("short read"))
	outer := dberr.New(dberr.CodeIOError, "scan failed", fmt.Errorf("read row 3: %w", inner))
	wrapped := fmt.Errorf("select: %w", outer)

	if !dberr.Is(wrapped, dberr.CodeIOError) {
		t.Error("expected IO_ERROR in chain")
	}
	if !dberr.Is(wrapped, dberr.CodeCorruptData) {
		t.Error("expected CORRUPT_DATA in chain")
	}
	if dberr.Is(wrapped, dberr.CodeSyntaxError) {
		t.Error("did not expect SYNTAX_ERROR in chain")
	}
	if got := dberr.CodeOf(wrapped); got != dberr.CodeIOError {
		t.Errorf("expected outermost code IO_ERROR, got %s", got)
	}
	if got := dberr.CodeOf(errors.New("plain")); got != "" {
		t.Errorf("expected no code, got %s", got)
	}
	if dberr.Is(nil, dberr.CodeIOError) {
		t.Error("nil error has no code")
	}
}
