package result

import (
	"context"
	"errors"
	"testing"
)

func TestOkErrVariant(t *testing.T) {
	ok := Ok[int, string](42)
	if !ok.IsOk() || ok.IsErr() {
		t.Fatalf("Ok(42) reported wrong variant")
	}
	if ok.Unwrap() != 42 {
		t.Fatalf("Unwrap() = %d, want 42", ok.Unwrap())
	}

	err := Err[int, string]("boom")
	if !err.IsErr() || err.IsOk() {
		t.Fatalf("Err(boom) reported wrong variant")
	}
	if err.UnwrapErr() != "boom" {
		t.Fatalf("UnwrapErr() = %q, want boom", err.UnwrapErr())
	}
}

func TestUnwrapPanicsOnErr(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("Unwrap on Err did not panic")
		}
	}()
	Err[int, string]("boom").Unwrap()
}

func TestUnwrapErrPanicsOnOk(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("UnwrapErr on Ok did not panic")
		}
	}()
	Ok[int, string](1).UnwrapErr()
}

func TestMapAndThen(t *testing.T) {
	r := Ok[int, string](2)
	doubled := Map(r, func(v int) int { return v * 2 })
	if doubled.Unwrap() != 4 {
		t.Fatalf("Map result = %d, want 4", doubled.Unwrap())
	}

	chained := AndThen(doubled, func(v int) Result[string, string] {
		if v != 4 {
			return Err[string, string]("unexpected")
		}
		return Ok[string, string]("yes")
	})
	if chained.Unwrap() != "yes" {
		t.Fatalf("AndThen result = %q, want yes", chained.Unwrap())
	}

	errIn := Err[int, string]("boom")
	if !Map(errIn, func(v int) int { return v * 2 }).IsErr() {
		t.Fatalf("Map over Err should stay Err")
	}
}

func TestMapErr(t *testing.T) {
	e := Err[int, string]("boom")
	mapped := MapErr(e, func(s string) error { return errors.New(s) })
	if mapped.UnwrapErr().Error() != "boom" {
		t.Fatalf("MapErr produced %v, want boom", mapped.UnwrapErr())
	}
}

func TestInspect(t *testing.T) {
	var seen int
	Ok[int, string](7).Inspect(func(v int) { seen = v })
	if seen != 7 {
		t.Fatalf("Inspect did not observe Ok value")
	}

	var seenErr string
	Err[int, string]("x").InspectErr(func(e string) { seenErr = e })
	if seenErr != "x" {
		t.Fatalf("InspectErr did not observe Err value")
	}
}

func TestCollapseAndAs(t *testing.T) {
	if Collapse(Ok[string, string]("a")) != "a" {
		t.Fatalf("Collapse(Ok) wrong")
	}
	if Collapse(Err[string, string]("b")) != "b" {
		t.Fatalf("Collapse(Err) wrong")
	}

	redacted := As[int, string, bool, bool](Ok[int, string](1), true, false)
	if !redacted.Unwrap() {
		t.Fatalf("As did not preserve Ok variant")
	}
}

func TestFutureResultAwait(t *testing.T) {
	ctx := context.Background()

	f := ReadyOk[int, string](9)
	r, err := f.Await(ctx)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if r.Unwrap() != 9 {
		t.Fatalf("ReadyOk future did not resolve to 9")
	}

	asyncF := Go(func(ctx context.Context) Result[int, string] {
		return Ok[int, string](3)
	})
	r2, err := asyncF.Await(ctx)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if r2.Unwrap() != 3 {
		t.Fatalf("Go future did not resolve to 3")
	}
}

func TestFutureResultAndThen(t *testing.T) {
	ctx := context.Background()

	f := ReadyOk[int, string](2)
	chained := AndThenFut(f, func(v int) FutureResult[int, string] {
		return ReadyOk[int, string](v * 10)
	})
	cr, err := chained.Await(ctx)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if cr.Unwrap() != 20 {
		t.Fatalf("AndThenFut result wrong")
	}

	failing := ReadyErr[int, string]("nope")
	neverCalled := AndThenFut(failing, func(v int) FutureResult[int, string] {
		t.Fatalf("continuation should not run on Err")
		return ReadyOk[int, string](0)
	})
	nr, err := neverCalled.Await(ctx)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if !nr.IsErr() {
		t.Fatalf("AndThenFut over Err should remain Err")
	}
}

func TestFutureResultMap(t *testing.T) {
	ctx := context.Background()
	f := ReadyOk[int, string](5)
	mapped := MapFut(f, func(v int) string { return "n=5" })
	mr, err := mapped.Await(ctx)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if mr.Unwrap() != "n=5" {
		t.Fatalf("MapFut result wrong")
	}
}
