package http

import (
	"net/http"

	"swiftconcur/internal/platform/net/http/bind"
)

// Call envelopes fn's result; a returned Response is written as is
func Call(fn func(*http.Request) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		out, err := fn(r)
		return settle(out, err)
	})
}

// JSONHandler decodes and validates T, then settles fn's result like Call
func JSONHandler[T any](fn func(*http.Request, T) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return Error(err)
		}
		out, err := fn(r, in)
		return settle(out, err)
	})
}

// PostJSON mounts fn on POST with a decoded body
func PostJSON[T any](r Router, path string, fn func(*http.Request, T) (any, error)) {
	r.Post(path, JSONHandler(fn))
}

func settle(out any, err error) Response {
	if err != nil {
		return Error(err)
	}
	if resp, ok := out.(Response); ok {
		return resp
	}
	return OK(out)
}
