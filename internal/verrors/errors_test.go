package verrors

import "testing"

func TestErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		code Code
	}{
		{"empty batch", EmptyBatch(), CodeEmptyBatch},
		{"dimension mismatch", DimensionMismatch(128, 64), CodeDimensionMismatch},
		{"invalid vector", InvalidVector("non-finite component"), CodeInvalidVector},
		{"duplicate id", DuplicateId(7), CodeDuplicateId},
		{"capacity exceeded", CapacityExceeded(10, 10), CodeCapacityExceeded},
		{"unknown id", UnknownId(42), CodeUnknownId},
		{"filter syntax", FilterSyntax("unexpected token", "did you mean >="), CodeFilterSyntax},
		{"corruption", Corruption("header", "bad magic"), CodeCorruption},
		{"alignment", AlignmentError("node array"), CodeAlignmentError},
		{"io", IoError("write", nil), CodeIoError},
		{"internal", Internal("should never happen"), CodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Fatalf("Code = %v, want %v", tc.err.Code, tc.code)
			}
			if tc.err.Error() == "" {
				t.Fatalf("Error() returned empty string")
			}
		})
	}
}

func TestDimensionMismatchFields(t *testing.T) {
	e := DimensionMismatch(128, 64)
	if e.Expected != 128 || e.Actual != 64 {
		t.Fatalf("got expected=%d actual=%d", e.Expected, e.Actual)
	}
}

func TestAsUnwraps(t *testing.T) {
	inner := UnknownId(5)
	wrapped := IoError("read", inner)
	ve, ok := As(wrapped)
	if !ok || ve.Code != CodeIoError {
		t.Fatalf("As() = %v, %v", ve, ok)
	}
}
