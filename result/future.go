package result

import "context"

// FutureResult represents a computation that, given a context, will
// eventually resolve to a Result[T, E], or fail with a fatal error
// that aborts the operation entirely; request failures are a separate
// channel from flow-level Result errors. The flow engine returns
// these so that request dispatch can be composed (Map/AndThen)
// without awaiting at every intermediate step, then resolved once via
// Await.
//
// A FutureResult is lazy: constructing one does not start any work.
// Work begins only when Await is called, and it is the underlying
// function's responsibility (invariably, the request dispatcher) to
// honor ctx cancellation.
type FutureResult[T, E any] func(ctx context.Context) (Result[T, E], error)

// Await resolves f, blocking until its computation completes or ctx is
// done (whichever the underlying function honors first). A non-nil
// error means the operation aborted fatally (e.g. *envelope.RequestError)
// before a flow-level Result could be produced; callers should not
// inspect the zero Result in that case.
func (f FutureResult[T, E]) Await(ctx context.Context) (Result[T, E], error) {
	return f(ctx)
}

// Ready returns a FutureResult that resolves immediately to r, ignoring ctx.
func Ready[T, E any](r Result[T, E]) FutureResult[T, E] {
	return func(context.Context) (Result[T, E], error) {
		return r, nil
	}
}

// ReadyOk is a convenience for Ready(Ok(v)).
func ReadyOk[T, E any](v T) FutureResult[T, E] {
	return Ready[T, E](Ok[T, E](v))
}

// ReadyErr is a convenience for Ready(Err(e)).
func ReadyErr[T, E any](e E) FutureResult[T, E] {
	return Ready[T, E](Err[T, E](e))
}

// Fatal returns a FutureResult that resolves with no Result and the
// given fatal error, ignoring ctx.
func Fatal[T, E any](err error) FutureResult[T, E] {
	return func(context.Context) (Result[T, E], error) {
		var zero Result[T, E]
		return zero, err
	}
}

// Go runs fn on its own goroutine and returns a FutureResult that
// resolves to its outcome. fn must itself respect ctx cancellation; Go
// does not impose a separate deadline.
//
// fn reports a fatal, non-flow-level failure (e.g. a
// *envelope.RequestError from an aborted request) by panicking with it
// rather than returning it; Go recovers any such panic and surfaces it
// through FutureResult.Await's error return, so a single flow's
// transport failure can never take down an unrelated goroutine.
func Go[T, E any](fn func(ctx context.Context) Result[T, E]) FutureResult[T, E] {
	return func(ctx context.Context) (Result[T, E], error) {
		type outcome struct {
			r   Result[T, E]
			err error
		}
		ch := make(chan outcome, 1)

		go func() {
			defer func() {
				if p := recover(); p != nil {
					var zero Result[T, E]
					if err, ok := p.(error); ok {
						ch <- outcome{zero, err}
						return
					}
					ch <- outcome{zero, panicError{p}}
				}
			}()
			ch <- outcome{fn(ctx), nil}
		}()

		select {
		case o := <-ch:
			return o.r, o.err
		case <-ctx.Done():
			o := <-ch
			return o.r, o.err
		}
	}
}

type panicError struct{ v interface{} }

func (p panicError) Error() string {
	return "result: recovered panic in FutureResult goroutine"
}

// Unwrap supports errors.Is/As against the recovered panic value when
// it is itself an error.
func (p panicError) Unwrap() error {
	if err, ok := p.v.(error); ok {
		return err
	}
	return nil
}

// MapFut transforms the Ok value of a resolved FutureResult.
func MapFut[T, E, U any](f FutureResult[T, E], fn func(T) U) FutureResult[U, E] {
	return func(ctx context.Context) (Result[U, E], error) {
		r, err := f(ctx)
		if err != nil {
			var zero Result[U, E]
			return zero, err
		}
		return Map(r, fn), nil
	}
}

// MapErrFut transforms the Err value of a resolved FutureResult.
func MapErrFut[T, E, F any](f FutureResult[T, E], fn func(E) F) FutureResult[T, F] {
	return func(ctx context.Context) (Result[T, F], error) {
		r, err := f(ctx)
		if err != nil {
			var zero Result[T, F]
			return zero, err
		}
		return MapErr(r, fn), nil
	}
}

// AndThenFut chains an asynchronous continuation onto the Ok value,
// flattening the inner FutureResult. A fatal error at either stage
// short-circuits the chain.
func AndThenFut[T, E, U any](f FutureResult[T, E], fn func(T) FutureResult[U, E]) FutureResult[U, E] {
	return func(ctx context.Context) (Result[U, E], error) {
		r, err := f(ctx)
		if err != nil {
			var zero Result[U, E]
			return zero, err
		}
		if r.IsErr() {
			return Err[U, E](r.UnwrapErr()), nil
		}
		return fn(r.Unwrap())(ctx)
	}
}

// InspectFut calls fn with the Ok value, if present, without altering the result.
func InspectFut[T, E any](f FutureResult[T, E], fn func(T)) FutureResult[T, E] {
	return func(ctx context.Context) (Result[T, E], error) {
		r, err := f(ctx)
		if err != nil {
			var zero Result[T, E]
			return zero, err
		}
		return r.Inspect(fn), nil
	}
}

// InspectErrFut calls fn with the Err value, if present, without altering the result.
func InspectErrFut[T, E any](f FutureResult[T, E], fn func(E)) FutureResult[T, E] {
	return func(ctx context.Context) (Result[T, E], error) {
		r, err := f(ctx)
		if err != nil {
			var zero Result[T, E]
			return zero, err
		}
		return r.InspectErr(fn), nil
	}
}
